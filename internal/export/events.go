package export

import (
	"fmt"

	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/timeline"
)

// FromRanges builds one event per kept source range, in source order.
func FromRanges(kept []interval.Interval, clipName, mediaPath string) []Event {
	events := make([]Event, 0, len(kept))
	for _, iv := range kept {
		if iv.Duration() <= 0 {
			continue
		}
		events = append(events, Event{
			ClipName:  clipName,
			MediaPath: mediaPath,
			SourceIn:  iv.Start,
			SourceOut: iv.End,
			Speed:     1,
		})
	}
	return events
}

// FromTimeline expands a composed timeline into one event per clip repeat.
func FromTimeline(tl *timeline.Timeline, clipName, mediaPath string) []Event {
	if tl == nil {
		return nil
	}
	var events []Event
	for _, c := range tl.Clips {
		for r := 0; r < c.Repeat; r++ {
			name := fmt.Sprintf("%s seg %d", clipName, c.SegmentID)
			if c.Repeat > 1 {
				name = fmt.Sprintf("%s (%d/%d)", name, r+1, c.Repeat)
			}
			events = append(events, Event{
				ClipName:  name,
				MediaPath: mediaPath,
				SourceIn:  c.SourceStart,
				SourceOut: c.SourceEnd,
				Speed:     c.Speed,
			})
		}
	}
	return events
}

// FromEditor picks the event list for mode: composed mode exports the
// timeline, the other modes export what the skip list leaves.
func FromEditor(ed *editor.Editor, mode playback.Mode, clipName, mediaPath string) []Event {
	if mode == playback.ModeComposed {
		return FromTimeline(ed.Timeline(), clipName, mediaPath)
	}
	kept := interval.Complement(ed.SkipIntervals(mode), ed.Index().Duration())
	return FromRanges(kept, clipName, mediaPath)
}
