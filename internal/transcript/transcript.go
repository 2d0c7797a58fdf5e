// Package transcript models the immutable, word-aligned transcript an edit
// session operates on, and provides lookups by segment id and word key.
package transcript

import "fmt"

// Word is a single timed token inside a segment.
type Word struct {
	Text  string  `json:"word" yaml:"word"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Segment is a contiguous, speaker-attributed span of words.
type Segment struct {
	ID      int     `json:"id" yaml:"id"`
	Speaker string  `json:"speaker" yaml:"speaker"`
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end" yaml:"end"`
	Text    string  `json:"text" yaml:"text"`
	Words   []Word  `json:"words" yaml:"words"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Silence is a detected pause in the source media.
type Silence struct {
	Start    float64 `json:"start" yaml:"start"`
	End      float64 `json:"end" yaml:"end"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// Transcript is the externally supplied, read-only transcript of a video.
type Transcript struct {
	Duration float64   `json:"duration" yaml:"duration"`
	Language string    `json:"language,omitempty" yaml:"language,omitempty"`
	Segments []Segment `json:"segments" yaml:"segments"`
	Silences []Silence `json:"silences,omitempty" yaml:"silences,omitempty"`
}

// WordKey addresses a word by segment id and positional index.
type WordKey struct {
	SegmentID int `json:"segment_id"`
	WordIndex int `json:"word_index"`
}

func (k WordKey) String() string {
	return fmt.Sprintf("%d-%d", k.SegmentID, k.WordIndex)
}

// Less orders keys in document order for segments whose ids ascend with time.
func (k WordKey) Less(o WordKey) bool {
	if k.SegmentID != o.SegmentID {
		return k.SegmentID < o.SegmentID
	}
	return k.WordIndex < o.WordIndex
}

// Validate checks the structural invariants of a transcript: unique segment
// ids, start < end for segments and words, and words that are monotonic and
// inside their segment.
func (t *Transcript) Validate() error {
	seen := make(map[int]bool, len(t.Segments))
	for _, s := range t.Segments {
		if seen[s.ID] {
			return fmt.Errorf("duplicate segment id %d", s.ID)
		}
		seen[s.ID] = true

		if s.Start >= s.End {
			return fmt.Errorf("segment %d: start %.3f must be before end %.3f", s.ID, s.Start, s.End)
		}

		prevEnd := s.Start
		for i, w := range s.Words {
			if w.Start >= w.End {
				return fmt.Errorf("segment %d word %d: start %.3f must be before end %.3f", s.ID, i, w.Start, w.End)
			}
			if w.Start < prevEnd || w.End > s.End {
				return fmt.Errorf("segment %d word %d: span [%.3f, %.3f] out of order or outside segment", s.ID, i, w.Start, w.End)
			}
			prevEnd = w.End
		}
	}
	return nil
}
