package editor

import (
	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/edl"
)

// Preview shows s without changing the edit. Deletion previews drive the
// IsWordSuggested and IsSegmentSuggested queries; highlights drive
// IsSegmentHighlighted.
func (e *Editor) Preview(s *edl.Suggestion) {
	e.mu.Lock()
	e.suggestion = s
	e.mu.Unlock()
	e.notify(Change{Action: "preview_suggestion"})
}

// Suggestion returns the suggestion being previewed, if any.
func (e *Editor) Suggestion() *edl.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestion
}

func (e *Editor) DismissSuggestion() {
	e.mu.Lock()
	e.suggestion = nil
	e.mu.Unlock()
	e.notify(Change{Action: "dismiss_suggestion"})
}

// ApplySuggestion replays the previewed suggestion's operations on top of
// the current state as a single undoable action. It returns the number of
// entries skipped for referencing content the transcript does not have.
func (e *Editor) ApplySuggestion() (int, error) {
	e.mu.Lock()
	s := e.suggestion
	e.mu.Unlock()
	if s == nil {
		return 0, ErrNoSuggestion
	}

	skipped, err := e.ApplyOperations("apply_suggestion", s.Operations)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.suggestion = nil
	e.mu.Unlock()
	return skipped, nil
}

// ApplyOperations appends ops to the current edit as one undoable action.
func (e *Editor) ApplyOperations(action string, ops []edl.Operation) (int, error) {
	skipped := 0
	err := e.mutate(action, func(st *edit.State) (bool, error) {
		if len(ops) == 0 {
			return false, nil
		}
		current := edl.Encode(st, e.idx, e.now())
		next, n := edl.Apply(e.idx, edl.Concat(current, ops))
		skipped = n
		next.Selection = st.Selection
		*st = *next
		return true, nil
	})
	return skipped, err
}

func (e *Editor) IsSegmentSuggested(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.segmentSuggested(id)
}

func (e *Editor) segmentSuggested(id int) bool {
	if e.suggestion == nil {
		return false
	}
	for _, sid := range e.suggestion.Preview.Segments {
		if sid == id {
			return true
		}
	}
	seg, ok := e.idx.Segment(id)
	if !ok {
		return false
	}
	for _, r := range e.suggestion.Preview.TimeRanges {
		if seg.Start >= r.Start && seg.End <= r.End {
			return true
		}
	}
	return false
}

// IsWordSuggested reports whether the previewed suggestion would delete the
// word, directly, through its segment, or through a time range that fully
// contains it.
func (e *Editor) IsWordSuggested(key WordKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suggestion == nil {
		return false
	}
	if e.segmentSuggested(key.SegmentID) {
		return true
	}
	for _, k := range e.suggestion.Preview.WordKeys() {
		if k == key {
			return true
		}
	}
	w, ok := e.idx.Word(key)
	if !ok {
		return false
	}
	for _, r := range e.suggestion.Preview.TimeRanges {
		if w.Start >= r.Start && w.End <= r.End {
			return true
		}
	}
	return false
}

func (e *Editor) IsSegmentHighlighted(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suggestion == nil {
		return false
	}
	for _, sid := range e.suggestion.Highlights {
		if sid == id {
			return true
		}
	}
	return false
}
