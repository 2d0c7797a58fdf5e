// Package timeline composes the virtual output timeline used when
// duplication, reordering or speed changes are active, and maps positions
// between output time and source media time.
package timeline

import (
	"math"
	"sort"

	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// Clip is one placement of a source segment on the output timeline.
type Clip struct {
	Index       int     `json:"index"`
	SegmentID   int     `json:"segment_id"`
	SourceStart float64 `json:"source_start"`
	SourceEnd   float64 `json:"source_end"`
	Repeat      int     `json:"repeat_count"`
	Speed       float64 `json:"speed"`
	OutputStart float64 `json:"output_start"`
	OutputEnd   float64 `json:"output_end"`
}

// SingleDuration is the output length of one repeat.
func (c Clip) SingleDuration() float64 {
	return (c.SourceEnd - c.SourceStart) / c.Speed
}

// Duration is the output length of all repeats.
func (c Clip) Duration() float64 {
	return c.OutputEnd - c.OutputStart
}

// Position is a resolved point in source media.
type Position struct {
	Clip       int     `json:"clip_index"`
	SegmentID  int     `json:"segment_id"`
	Repeat     int     `json:"repeat_index"`
	SourceTime float64 `json:"source_time"`
}

// Timeline is an immutable ordered list of clips.
type Timeline struct {
	Clips []Clip `json:"clips"`
}

// Compose builds the output timeline for st over the transcript behind idx.
//
// When a custom order is set it is walked first; ids unknown to the
// transcript, deleted ids and repeats of an id are skipped. Remaining
// non-deleted segments follow in natural order so no kept content is lost.
// Clips always cover the full segment span; word deletions are not excised.
func Compose(idx *transcript.Index, st *edit.State) *Timeline {
	tl := &Timeline{Clips: []Clip{}}
	if idx == nil || idx.Empty() {
		return tl
	}

	placed := map[int]bool{}
	var ids []int
	for _, id := range st.Order {
		if placed[id] || st.DeletedSegments[id] || !idx.Has(id) {
			continue
		}
		placed[id] = true
		ids = append(ids, id)
	}
	for _, seg := range idx.Natural() {
		if placed[seg.ID] || st.DeletedSegments[seg.ID] {
			continue
		}
		placed[seg.ID] = true
		ids = append(ids, seg.ID)
	}

	offset := 0.0
	for _, id := range ids {
		seg, _ := idx.Segment(id)
		c := Clip{
			Index:       len(tl.Clips),
			SegmentID:   id,
			SourceStart: seg.Start,
			SourceEnd:   seg.End,
			Repeat:      st.RepeatOf(id),
			Speed:       st.SpeedOf(id),
			OutputStart: offset,
		}
		c.OutputEnd = offset + c.SingleDuration()*float64(c.Repeat)
		offset = c.OutputEnd
		tl.Clips = append(tl.Clips, c)
	}
	return tl
}

// Duration is the total output length.
func (t *Timeline) Duration() float64 {
	if len(t.Clips) == 0 {
		return 0
	}
	return t.Clips[len(t.Clips)-1].OutputEnd
}

// ClipAt returns the index of the clip whose [OutputStart, OutputEnd)
// contains out, or -1.
func (t *Timeline) ClipAt(out float64) int {
	i := sort.Search(len(t.Clips), func(i int) bool { return t.Clips[i].OutputEnd > out })
	if i < len(t.Clips) && t.Clips[i].OutputStart <= out {
		return i
	}
	return -1
}

// SourceTimeAt maps an output time to source media. The end of the
// timeline resolves to the end of the last clip.
func (t *Timeline) SourceTimeAt(out float64) (Position, bool) {
	if len(t.Clips) == 0 || out < 0 {
		return Position{}, false
	}
	i := t.ClipAt(out)
	if i < 0 {
		if out != t.Duration() {
			return Position{}, false
		}
		last := t.Clips[len(t.Clips)-1]
		return Position{Clip: last.Index, SegmentID: last.SegmentID, Repeat: last.Repeat - 1, SourceTime: last.SourceEnd}, true
	}

	c := t.Clips[i]
	single := c.SingleDuration()
	elapsed := out - c.OutputStart
	repeat := int(math.Floor(elapsed / single))
	if repeat > c.Repeat-1 {
		repeat = c.Repeat - 1
	}
	offset := elapsed - float64(repeat)*single
	return Position{
		Clip:       i,
		SegmentID:  c.SegmentID,
		Repeat:     repeat,
		SourceTime: c.SourceStart + offset*c.Speed,
	}, true
}

// OutputTimeInClip maps a source time to output time within a known clip
// and repeat. The source time is clamped to the clip span.
func (t *Timeline) OutputTimeInClip(src float64, clip, repeat int) (float64, bool) {
	if clip < 0 || clip >= len(t.Clips) {
		return 0, false
	}
	c := t.Clips[clip]
	if repeat < 0 {
		repeat = 0
	}
	if repeat > c.Repeat-1 {
		repeat = c.Repeat - 1
	}
	src = math.Max(c.SourceStart, math.Min(src, c.SourceEnd))
	return c.OutputStart + float64(repeat)*c.SingleDuration() + (src-c.SourceStart)/c.Speed, true
}

// OutputTimeAt maps a source time to the first clip, in clip order, whose
// span contains it. A source time inside a duplicated or reordered segment
// is ambiguous; callers that know the current clip should use
// OutputTimeInClip.
func (t *Timeline) OutputTimeAt(src float64) (float64, bool) {
	for i, c := range t.Clips {
		if src >= c.SourceStart && src < c.SourceEnd {
			return t.OutputTimeInClip(src, i, 0)
		}
	}
	return 0, false
}

// IndexOfSegment returns the first clip playing segment id, or -1.
func (t *Timeline) IndexOfSegment(id int) int {
	for i, c := range t.Clips {
		if c.SegmentID == id {
			return i
		}
	}
	return -1
}
