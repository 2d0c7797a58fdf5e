// Package playback derives what a media consumer must do to play an edit:
// the skip intervals for plain playback, and a Player that gates seeks and
// drives the composed timeline.
package playback

import (
	"fmt"

	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

type Mode string

const (
	// ModeEdited plays the source and jumps over deleted content.
	ModeEdited Mode = "edited"
	// ModeOriginal plays the unedited source.
	ModeOriginal Mode = "original"
	// ModeComposed plays the duplicated, reordered or speed-shifted timeline.
	ModeComposed Mode = "composed"
)

// ParseMode accepts an empty string as ModeEdited.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeEdited:
		return ModeEdited, nil
	case ModeOriginal, ModeComposed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown playback mode %q", s)
}

// ModeFor picks the playback mode an edit state calls for.
func ModeFor(st *edit.State) Mode {
	if st.IsComposed() {
		return ModeComposed
	}
	return ModeEdited
}

// Compiler turns deletions into merged skip intervals.
type Compiler struct {
	// Epsilon joins intervals separated by less than this many seconds.
	Epsilon float64
}

func NewCompiler(epsilon float64) *Compiler {
	return &Compiler{Epsilon: epsilon}
}

// Compile returns the ascending, disjoint source ranges plain playback must
// skip. ModeOriginal bypasses deletions and yields no intervals.
func (c *Compiler) Compile(idx *transcript.Index, st *edit.State, mode Mode) []interval.Interval {
	if mode == ModeOriginal || idx == nil || idx.Empty() {
		return []interval.Interval{}
	}

	var raw []interval.Interval
	for _, seg := range idx.Segments() {
		if st.DeletedSegments[seg.ID] {
			raw = append(raw, interval.Interval{Start: seg.Start, End: seg.End})
			continue
		}
		for i, w := range seg.Words {
			if st.DeletedWords[transcript.WordKey{SegmentID: seg.ID, WordIndex: i}] {
				raw = append(raw, interval.Interval{Start: w.Start, End: w.End})
			}
		}
	}
	return interval.MergeWithin(raw, c.Epsilon)
}

// Kept returns the complement of Compile over the media duration.
func (c *Compiler) Kept(idx *transcript.Index, st *edit.State, mode Mode) []interval.Interval {
	if idx == nil {
		return []interval.Interval{}
	}
	return interval.Complement(c.Compile(idx, st, mode), idx.Duration())
}
