// Package edit holds the non-destructive edit model applied over a
// transcript. A State never touches the transcript; every derived view is a
// pure function of (transcript, State).
package edit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/heimdex/heimdex-cut/internal/transcript"
)

var (
	ErrInvalidSpeed  = errors.New("speed must be greater than 0")
	ErrInvalidRepeat = errors.New("repeat count must be at least 1")
)

type WordKey = transcript.WordKey

// State is the authoritative edit model of an open project.
type State struct {
	DeletedSegments map[int]bool
	DeletedWords    map[WordKey]bool
	Corrections     map[WordKey]string
	Duplicates      map[int]int
	Order           []int
	SegmentSpeeds   map[int]float64
	GlobalSpeed     float64

	// Selection is UI state and is never persisted.
	Selection map[WordKey]bool
}

// New returns an empty State with a global speed of 1.
func New() *State {
	return &State{
		DeletedSegments: map[int]bool{},
		DeletedWords:    map[WordKey]bool{},
		Corrections:     map[WordKey]string{},
		Duplicates:      map[int]int{},
		SegmentSpeeds:   map[int]float64{},
		GlobalSpeed:     1,
		Selection:       map[WordKey]bool{},
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := New()
	for k, v := range s.DeletedSegments {
		c.DeletedSegments[k] = v
	}
	for k, v := range s.DeletedWords {
		c.DeletedWords[k] = v
	}
	for k, v := range s.Corrections {
		c.Corrections[k] = v
	}
	for k, v := range s.Duplicates {
		c.Duplicates[k] = v
	}
	for k, v := range s.SegmentSpeeds {
		c.SegmentSpeeds[k] = v
	}
	for k, v := range s.Selection {
		c.Selection[k] = v
	}
	c.Order = append([]int(nil), s.Order...)
	c.GlobalSpeed = s.GlobalSpeed
	return c
}

// IsComposed reports whether duplication, reordering or a non-default speed
// is active, which switches playback from skip gating to the composed
// timeline.
func (s *State) IsComposed() bool {
	return len(s.Duplicates) > 0 || len(s.Order) > 0 || len(s.SegmentSpeeds) > 0 || s.GlobalSpeed != 1
}

// SpeedOf returns the effective speed of a segment.
func (s *State) SpeedOf(id int) float64 {
	if v, ok := s.SegmentSpeeds[id]; ok {
		return v
	}
	return s.GlobalSpeed
}

// RepeatOf returns the repeat count of a segment (1 when not duplicated).
func (s *State) RepeatOf(id int) int {
	if v, ok := s.Duplicates[id]; ok {
		return v
	}
	return 1
}

// IsWordDeleted reports whether a word is removed, either directly or
// through its segment.
func (s *State) IsWordDeleted(key WordKey) bool {
	return s.DeletedSegments[key.SegmentID] || s.DeletedWords[key]
}

func (s *State) DeleteSegment(id int)  { s.DeletedSegments[id] = true }
func (s *State) RestoreSegment(id int) { delete(s.DeletedSegments, id) }
func (s *State) DeleteWord(key WordKey)  { s.DeletedWords[key] = true }
func (s *State) RestoreWord(key WordKey) { delete(s.DeletedWords, key) }

// Correct records replacement text for a word. An empty text removes the
// correction.
func (s *State) Correct(key WordKey, text string) {
	if text == "" {
		delete(s.Corrections, key)
		return
	}
	s.Corrections[key] = text
}

// DeleteTimeRange deletes every segment fully inside [start, end] and, for
// partially overlapping segments, every word fully inside the range. It
// returns the number of segments and words newly deleted.
func (s *State) DeleteTimeRange(idx *transcript.Index, start, end float64) (segments, words int) {
	if start > end {
		return 0, 0
	}
	for _, seg := range idx.Segments() {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		if seg.Start >= start && seg.End <= end {
			if !s.DeletedSegments[seg.ID] {
				s.DeletedSegments[seg.ID] = true
				segments++
			}
			continue
		}
		for i, w := range seg.Words {
			if w.Start >= start && w.End <= end {
				key := WordKey{SegmentID: seg.ID, WordIndex: i}
				if !s.DeletedWords[key] {
					s.DeletedWords[key] = true
					words++
				}
			}
		}
	}
	return segments, words
}

// SetRepeat records a duplication count. A count of 1 is kept as an entry.
func (s *State) SetRepeat(id, count int) error {
	if count < 1 {
		return fmt.Errorf("segment %d: %w", id, ErrInvalidRepeat)
	}
	s.Duplicates[id] = count
	return nil
}

// SetOrder replaces the custom segment order wholesale. Ids are not checked
// against the transcript.
func (s *State) SetOrder(order []int) {
	s.Order = append([]int(nil), order...)
}

func (s *State) SetSegmentSpeed(id int, speed float64) error {
	if !(speed > 0) {
		return fmt.Errorf("segment %d: %w", id, ErrInvalidSpeed)
	}
	s.SegmentSpeeds[id] = speed
	return nil
}

func (s *State) SetGlobalSpeed(speed float64) error {
	if !(speed > 0) {
		return ErrInvalidSpeed
	}
	s.GlobalSpeed = speed
	return nil
}

// ClearSelection empties the selection.
func (s *State) ClearSelection() {
	s.Selection = map[WordKey]bool{}
}

// SelectedKeys returns the selection in key order.
func (s *State) SelectedKeys() []WordKey {
	return sortedKeys(s.Selection)
}

// DeletedWordKeys returns the deleted word keys in key order.
func (s *State) DeletedWordKeys() []WordKey {
	return sortedKeys(s.DeletedWords)
}

// DeletedSegmentIDs returns the deleted segment ids ascending.
func (s *State) DeletedSegmentIDs() []int {
	ids := make([]int, 0, len(s.DeletedSegments))
	for id := range s.DeletedSegments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Equal compares the persisted facets of two states. Selection is ignored.
func (s *State) Equal(o *State) bool {
	if len(s.DeletedSegments) != len(o.DeletedSegments) ||
		len(s.DeletedWords) != len(o.DeletedWords) ||
		len(s.Corrections) != len(o.Corrections) ||
		len(s.Duplicates) != len(o.Duplicates) ||
		len(s.SegmentSpeeds) != len(o.SegmentSpeeds) ||
		len(s.Order) != len(o.Order) ||
		s.GlobalSpeed != o.GlobalSpeed {
		return false
	}
	for k := range s.DeletedSegments {
		if !o.DeletedSegments[k] {
			return false
		}
	}
	for k := range s.DeletedWords {
		if !o.DeletedWords[k] {
			return false
		}
	}
	for k, v := range s.Corrections {
		if o.Corrections[k] != v {
			return false
		}
	}
	for k, v := range s.Duplicates {
		if o.Duplicates[k] != v {
			return false
		}
	}
	for k, v := range s.SegmentSpeeds {
		if ov, ok := o.SegmentSpeeds[k]; !ok || ov != v {
			return false
		}
	}
	for i := range s.Order {
		if s.Order[i] != o.Order[i] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[WordKey]bool) []WordKey {
	keys := make([]WordKey, 0, len(m))
	for k, ok := range m {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
