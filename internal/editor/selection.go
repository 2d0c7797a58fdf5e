package editor

import (
	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// SelectWord makes key the only selected word, or toggles it when multi is
// set.
func (e *Editor) SelectWord(key WordKey, multi bool) error {
	if err := e.checkWord(key); err != nil {
		return err
	}
	e.ui("select_word", func(st *edit.State) {
		if !multi {
			st.Selection = map[WordKey]bool{key: true}
			return
		}
		if st.Selection[key] {
			delete(st.Selection, key)
			return
		}
		st.Selection[key] = true
	})
	return nil
}

// SelectRange selects every word between a and b inclusive in document
// order. Whichever endpoint is met first during the scan opens the range.
func (e *Editor) SelectRange(a, b WordKey) error {
	if err := e.checkWord(a); err != nil {
		return err
	}
	if err := e.checkWord(b); err != nil {
		return err
	}

	selection := map[WordKey]bool{}
	inRange := false
	e.idx.Walk(func(key WordKey, _ *transcript.Word) bool {
		endpoint := key == a || key == b
		if endpoint || inRange {
			selection[key] = true
		}
		if endpoint {
			if inRange || a == b {
				return false
			}
			inRange = true
		}
		return true
	})

	e.ui("select_range", func(st *edit.State) {
		st.Selection = selection
	})
	return nil
}

func (e *Editor) ClearSelection() {
	e.ui("clear_selection", func(st *edit.State) {
		st.ClearSelection()
	})
}

// Selection returns the selected keys in document order.
func (e *Editor) Selection() []WordKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.SelectedKeys()
}

func (e *Editor) IsWordSelected(key WordKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Selection[key]
}

// DeleteSelection deletes the selected words. A segment whose every word is
// selected is deleted whole and its word entries dropped. The selection is
// cleared afterwards. It returns false without recording anything when the
// selection is empty or no transcript is loaded.
func (e *Editor) DeleteSelection() bool {
	if e.idx.Empty() {
		return false
	}
	changed := false
	e.mutate("delete_selection", func(st *edit.State) (bool, error) {
		if len(st.Selection) == 0 {
			return false, nil
		}

		bySegment := map[int][]WordKey{}
		for _, key := range st.SelectedKeys() {
			bySegment[key.SegmentID] = append(bySegment[key.SegmentID], key)
		}
		for id, selected := range bySegment {
			all := e.idx.Keys(id)
			if len(all) > 0 && len(selected) == len(all) {
				st.DeleteSegment(id)
				for _, key := range all {
					st.RestoreWord(key)
				}
				continue
			}
			for _, key := range selected {
				if _, ok := e.idx.Word(key); ok {
					st.DeleteWord(key)
				}
			}
		}
		st.ClearSelection()
		changed = true
		return true, nil
	})
	return changed
}
