package edl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// Kind is the action kind reported by the AI suggestion producer.
type Kind string

const (
	KindDeleteSegments    Kind = "delete_segments"
	KindDeleteWords       Kind = "delete_words"
	KindDeleteSilences    Kind = "delete_silences"
	KindKeepSegments      Kind = "keep_segments"
	KindDuplicateSegments Kind = "duplicate_segments"
	KindReorderSegments   Kind = "reorder_segments"
	KindSetSpeed          Kind = "set_speed"
	KindHighlight         Kind = "highlight_segments"
	KindNoAction          Kind = "no_action"
)

// Preview lists what a deletion suggestion would remove.
type Preview struct {
	Segments   []int               `json:"segments_to_delete"`
	Words      []WordItem          `json:"words_to_delete"`
	TimeRanges []interval.Interval `json:"time_ranges_to_delete"`
}

// Empty reports whether the preview removes nothing.
func (p Preview) Empty() bool {
	return len(p.Segments) == 0 && len(p.Words) == 0 && len(p.TimeRanges) == 0
}

// WordKeys flattens the word items into keys.
func (p Preview) WordKeys() []transcript.WordKey {
	var keys []transcript.WordKey
	for _, item := range p.Words {
		for _, wi := range item.WordIndices {
			keys = append(keys, transcript.WordKey{SegmentID: item.SegmentID, WordIndex: wi})
		}
	}
	return keys
}

// Suggestion is the canonical form of an AI suggestion, decoded once at the
// boundary.
type Suggestion struct {
	ID          string      `json:"action_id"`
	Kind        Kind        `json:"action"`
	Description string      `json:"description"`
	Preview     Preview     `json:"preview"`
	Highlights  []int       `json:"highlight_segments,omitempty"`
	Operations  []Operation `json:"operations"`
}

// Actionable reports whether confirming the suggestion changes anything.
func (s *Suggestion) Actionable() bool {
	return len(s.Operations) > 0
}

type suggestionWire struct {
	ActionID    string   `json:"action_id"`
	Action      Kind     `json:"action"`
	Description string   `json:"description"`
	Preview     *Preview `json:"preview"`

	SegmentsToDelete   []int               `json:"segments_to_delete"`
	WordsToDelete      []WordItem          `json:"words_to_delete"`
	TimeRangesToDelete []interval.Interval `json:"time_ranges_to_delete"`
	Threshold          *float64            `json:"threshold"`

	DuplicateItems      []DuplicateItem `json:"duplicate_items"`
	SuggestedDuplicates []DuplicateItem `json:"suggested_duplicates"`
	NewSegmentOrder     []int           `json:"new_segment_order"`
	SpeedItems          []SpeedItem     `json:"speed_items"`
	GlobalSpeed         *float64        `json:"global_speed"`
	HighlightSegments   []int           `json:"highlight_segments"`
}

// DecodeSuggestion parses a producer suggestion. Deletion fields may sit at
// the top level or under "preview"; a non-empty top-level field wins.
func DecodeSuggestion(data []byte, now time.Time) (*Suggestion, error) {
	var w suggestionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	if w.Action == "" {
		w.Action = KindNoAction
	}

	var nested Preview
	if w.Preview != nil {
		nested = *w.Preview
	}
	preview := Preview{
		Segments:   pick(w.SegmentsToDelete, nested.Segments),
		Words:      pick(w.WordsToDelete, nested.Words),
		TimeRanges: pick(w.TimeRangesToDelete, nested.TimeRanges),
	}

	s := &Suggestion{
		ID:          w.ActionID,
		Kind:        w.Action,
		Description: w.Description,
		Operations:  []Operation{},
	}

	switch w.Action {
	case KindDeleteSegments:
		s.Preview = Preview{Segments: preview.Segments}
		if len(preview.Segments) > 0 {
			s.Operations = append(s.Operations, NewOperation(DeleteSegments{SegmentIDs: preview.Segments}, now))
		}

	case KindDeleteWords:
		s.Preview = Preview{Words: preview.Words}
		if len(preview.Words) > 0 {
			s.Operations = append(s.Operations, NewOperation(DeleteWords{Items: preview.Words}, now))
		}

	case KindDeleteSilences:
		s.Preview = Preview{TimeRanges: preview.TimeRanges}
		if len(preview.TimeRanges) > 0 {
			threshold := 0.0
			if w.Threshold != nil {
				threshold = *w.Threshold
			}
			s.Operations = append(s.Operations, NewOperation(DeleteSilences{Threshold: threshold, TimeRanges: preview.TimeRanges}, now))
		}

	case KindDuplicateSegments:
		items := pick(w.DuplicateItems, w.SuggestedDuplicates)
		if len(items) > 0 {
			s.Operations = append(s.Operations, NewOperation(DuplicateSegments{Items: items}, now))
		}

	case KindReorderSegments:
		if len(w.NewSegmentOrder) > 0 {
			s.Operations = append(s.Operations, NewOperation(ReorderSegments{NewOrder: w.NewSegmentOrder}, now))
		}

	case KindSetSpeed:
		if len(w.SpeedItems) > 0 || w.GlobalSpeed != nil {
			s.Operations = append(s.Operations, NewOperation(SetSpeed{Items: w.SpeedItems, GlobalSpeed: w.GlobalSpeed}, now))
		}

	case KindHighlight:
		s.Highlights = w.HighlightSegments
		if len(w.SuggestedDuplicates) > 0 {
			s.Operations = append(s.Operations, NewOperation(DuplicateSegments{Items: w.SuggestedDuplicates}, now))
		}

	case KindKeepSegments:
		// Highlighted for the user only; confirming it changes nothing.
		s.Preview = Preview{Segments: preview.Segments}

	case KindNoAction:

	default:
		return nil, fmt.Errorf("unsupported suggestion action %q", w.Action)
	}

	return s, nil
}

func pick[T any](flat, nested []T) []T {
	if len(flat) > 0 {
		return flat
	}
	return nested
}
