package export

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/timeline"
)

func TestGenerateEDL_SingleEvent(t *testing.T) {
	events := []Event{{
		ClipName:  "Intro",
		MediaPath: "/media/intro.mp4",
		SourceIn:  0,
		SourceOut: 2,
		Speed:     1,
	}}

	edl := GenerateEDL(events, "Project One", 30.0)

	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /media/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
	if strings.Contains(edl, "M2") {
		t.Fatalf("unexpected motion line at speed 1: %q", edl)
	}
}

func TestGenerateEDL_RecordOffsets(t *testing.T) {
	events := FromRanges([]interval.Interval{{Start: 0, End: 1}, {Start: 4, End: 5.5}}, "talk", "/talk.mp4")

	edl := GenerateEDL(events, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:04:00 00:00:05:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_Speed(t *testing.T) {
	events := []Event{{ClipName: "fast", MediaPath: "/a.mp4", SourceIn: 10, SourceOut: 14, Speed: 2}}

	edl := GenerateEDL(events, "Speed", 25.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:10:00 00:00:14:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("record duration should be halved: %q", edl)
	}
	if !strings.Contains(edl, "M2   AX       050.0    00:00:10:00") {
		t.Fatalf("missing M2 line: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	events := []Event{{ClipName: "Clip", MediaPath: "/x.mp4", SourceIn: 0, SourceOut: 1, Speed: 1}}
	edl := GenerateEDL(events, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestGenerateEDL_DefaultFrameRate(t *testing.T) {
	events := []Event{{SourceIn: 0, SourceOut: 0.5, Speed: 1}}
	edl := GenerateEDL(events, "Default", 0)
	if !strings.Contains(edl, "00:00:00:00 00:00:00:15") {
		t.Fatalf("expected 30fps default: %q", edl)
	}
}

func TestFromTimeline_ExpandsRepeats(t *testing.T) {
	tl := &timeline.Timeline{Clips: []timeline.Clip{
		{SegmentID: 2, SourceStart: 5, SourceEnd: 7, Repeat: 2, Speed: 1},
		{SegmentID: 1, SourceStart: 0, SourceEnd: 4, Repeat: 1, Speed: 2},
	}}

	events := FromTimeline(tl, "demo", "/demo.mp4")
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].ClipName != "demo seg 2 (1/2)" || events[1].ClipName != "demo seg 2 (2/2)" {
		t.Errorf("repeat names = %q, %q", events[0].ClipName, events[1].ClipName)
	}
	if events[2].Speed != 2 || events[2].RecordDuration() != 2 {
		t.Errorf("speed event = %+v", events[2])
	}

	edl := GenerateEDL(events, "demo", 30)
	if !strings.Contains(edl, "003  AX       V     C        00:00:00:00 00:00:04:00 00:00:04:00 00:00:06:00") {
		t.Fatalf("third event mismatch: %q", edl)
	}
}

func TestFromRanges_SkipsEmpty(t *testing.T) {
	events := FromRanges([]interval.Interval{{Start: 1, End: 1}, {Start: 2, End: 3}}, "c", "/m")
	if len(events) != 1 || events[0].SourceIn != 2 {
		t.Errorf("FromRanges() = %+v", events)
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     int
		want    string
	}{
		{name: "zero", seconds: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", seconds: 1, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", seconds: 0.5, fps: 30, want: "00:00:00:15"},
		{name: "one minute", seconds: 60, fps: 30, want: "00:01:00:00"},
		{name: "one hour", seconds: 3600, fps: 30, want: "01:00:00:00"},
		{name: "negative clamps", seconds: -2, fps: 30, want: "00:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := secondsToTimecode(tc.seconds, tc.fps)
			if got != tc.want {
				t.Fatalf("secondsToTimecode(%v, %d) = %q, want %q", tc.seconds, tc.fps, got, tc.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("/out", "My <Cut>", "export", "edl")
	if got != filepath.Join("/out", "My _Cut_.edl") {
		t.Errorf("OutputPath() = %q", got)
	}
	if got := OutputPath("/out", "\x00", "export", ".edl"); got != filepath.Join("/out", "export.edl") {
		t.Errorf("OutputPath(empty) = %q", got)
	}
}
