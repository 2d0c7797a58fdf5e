// Package editor owns the single authoritative edit state of an open
// project. Every mutation goes through a named action that records an undo
// snapshot; derived views are recomputed from (transcript, state) on read.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/history"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/timeline"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

var (
	ErrUnknownSegment = errors.New("segment not found in transcript")
	ErrUnknownWord    = errors.New("word not found in transcript")
	ErrNoSuggestion   = errors.New("no suggestion is being previewed")
)

type WordKey = transcript.WordKey

// Change describes a completed action. Persist is false for changes that
// only touch UI state such as the selection or a suggestion preview.
type Change struct {
	Action  string
	Persist bool
}

type Options struct {
	HistoryLimit int
	Epsilon      float64
	Logger       *slog.Logger
	Now          func() time.Time
}

type Editor struct {
	mu         sync.Mutex
	idx        *transcript.Index
	state      *edit.State
	history    *history.History
	compiler   *playback.Compiler
	suggestion *edl.Suggestion
	listeners  []func(Change)
	logger     *slog.Logger
	now        func() time.Time
}

func New(tr *transcript.Transcript, opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = interval.DefaultEpsilon
	}
	return &Editor{
		idx:      transcript.NewIndex(tr),
		state:    edit.New(),
		history:  history.New(opts.HistoryLimit),
		compiler: playback.NewCompiler(opts.Epsilon),
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// OnChange registers fn to run after every action. Listeners run outside
// the editor lock.
func (e *Editor) OnChange(fn func(Change)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Editor) notify(c Change) {
	e.mu.Lock()
	listeners := append([]func(Change){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// mutate runs fn against a copy of the state. When fn reports a change the
// copy becomes current and its snapshot is recorded for undo.
func (e *Editor) mutate(action string, fn func(st *edit.State) (bool, error)) error {
	e.mu.Lock()
	next := e.state.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		e.mu.Unlock()
		return err
	}
	e.state = next
	e.history.Push(action, edl.Encode(next, e.idx, e.now()))
	e.mu.Unlock()

	e.logger.Debug("edit applied", "action", action)
	e.notify(Change{Action: action, Persist: true})
	return nil
}

func (e *Editor) ui(action string, fn func(st *edit.State)) {
	e.mu.Lock()
	fn(e.state)
	e.mu.Unlock()
	e.notify(Change{Action: action})
}

func (e *Editor) checkSegment(id int) error {
	if !e.idx.Has(id) {
		return fmt.Errorf("segment %d: %w", id, ErrUnknownSegment)
	}
	return nil
}

func (e *Editor) checkWord(key WordKey) error {
	if _, ok := e.idx.Word(key); !ok {
		return fmt.Errorf("word %s: %w", key, ErrUnknownWord)
	}
	return nil
}

func (e *Editor) DeleteSegment(id int) error {
	if err := e.checkSegment(id); err != nil {
		return err
	}
	return e.mutate("delete_segment", func(st *edit.State) (bool, error) {
		if st.DeletedSegments[id] {
			return false, nil
		}
		st.DeleteSegment(id)
		return true, nil
	})
}

func (e *Editor) RestoreSegment(id int) error {
	if err := e.checkSegment(id); err != nil {
		return err
	}
	return e.mutate("restore_segment", func(st *edit.State) (bool, error) {
		if !st.DeletedSegments[id] {
			return false, nil
		}
		st.RestoreSegment(id)
		return true, nil
	})
}

func (e *Editor) DeleteWord(key WordKey) error {
	if err := e.checkWord(key); err != nil {
		return err
	}
	return e.mutate("delete_word", func(st *edit.State) (bool, error) {
		if st.DeletedWords[key] {
			return false, nil
		}
		st.DeleteWord(key)
		return true, nil
	})
}

func (e *Editor) RestoreWord(key WordKey) error {
	if err := e.checkWord(key); err != nil {
		return err
	}
	return e.mutate("restore_word", func(st *edit.State) (bool, error) {
		if !st.DeletedWords[key] {
			return false, nil
		}
		st.RestoreWord(key)
		return true, nil
	})
}

// DeleteTimeRange deletes segments fully inside [start, end] and the fully
// contained words of partially covered segments. Nothing is recorded when
// no transcript is loaded or nothing new falls inside the range.
func (e *Editor) DeleteTimeRange(start, end float64) (segments, words int) {
	if e.idx.Empty() {
		return 0, 0
	}
	e.mutate("delete_time_range", func(st *edit.State) (bool, error) {
		segments, words = st.DeleteTimeRange(e.idx, start, end)
		return segments+words > 0, nil
	})
	return segments, words
}

// CorrectWord replaces the display text of a word. An empty text reverts to
// the transcript text.
func (e *Editor) CorrectWord(key WordKey, text string) error {
	if err := e.checkWord(key); err != nil {
		return err
	}
	return e.mutate("correct_text", func(st *edit.State) (bool, error) {
		if st.Corrections[key] == text {
			return false, nil
		}
		st.Correct(key, text)
		return true, nil
	})
}

// DuplicateSegment plays a segment count times. A count of 1 is recorded.
func (e *Editor) DuplicateSegment(id, count int) error {
	if err := e.checkSegment(id); err != nil {
		return err
	}
	return e.mutate("duplicate_segment", func(st *edit.State) (bool, error) {
		return true, st.SetRepeat(id, count)
	})
}

// ReorderSegments replaces the custom order. Ids are not validated; the
// timeline skips unknown ids and appends segments missing from the order.
func (e *Editor) ReorderSegments(order []int) error {
	return e.mutate("reorder_segments", func(st *edit.State) (bool, error) {
		st.SetOrder(order)
		return true, nil
	})
}

func (e *Editor) SetSegmentSpeed(id int, speed float64) error {
	if err := e.checkSegment(id); err != nil {
		return err
	}
	return e.mutate("set_segment_speed", func(st *edit.State) (bool, error) {
		return true, st.SetSegmentSpeed(id, speed)
	})
}

func (e *Editor) SetGlobalSpeed(speed float64) error {
	return e.mutate("set_global_speed", func(st *edit.State) (bool, error) {
		return true, st.SetGlobalSpeed(speed)
	})
}

func (e *Editor) Undo() bool {
	return e.travel("undo", e.history.Undo)
}

func (e *Editor) Redo() bool {
	return e.travel("redo", e.history.Redo)
}

func (e *Editor) travel(action string, step func() ([]edl.Operation, bool)) bool {
	e.mu.Lock()
	ops, ok := step()
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.restore(ops)
	e.mu.Unlock()

	e.notify(Change{Action: action, Persist: true})
	return true
}

// restore rebuilds the state from a snapshot, keeping the selection.
func (e *Editor) restore(ops []edl.Operation) int {
	selection := e.state.Selection
	st, skipped := edl.Apply(e.idx, ops)
	st.Selection = selection
	e.state = st
	return skipped
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Operations serializes the current state for persistence.
func (e *Editor) Operations() []edl.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return edl.Encode(e.state, e.idx, e.now())
}

// Load replaces the state with a replay of ops and makes it the undo base.
// It returns the number of entries skipped for referencing content the
// transcript does not have.
func (e *Editor) Load(ops []edl.Operation) int {
	e.mu.Lock()
	skipped := e.restore(ops)
	e.history.Reset(edl.Encode(e.state, e.idx, e.now()))
	e.suggestion = nil
	e.mu.Unlock()

	if skipped > 0 {
		e.logger.Warn("skipped operations referencing missing content", "skipped", skipped)
	}
	e.notify(Change{Action: "load"})
	return skipped
}

// ClearEDL drops every edit and the undo history.
func (e *Editor) ClearEDL() {
	e.mu.Lock()
	e.state = edit.New()
	e.history.Reset(nil)
	e.suggestion = nil
	e.mu.Unlock()

	e.notify(Change{Action: "clear", Persist: true})
}

// State returns a copy of the current edit state.
func (e *Editor) State() *edit.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *Editor) Index() *transcript.Index {
	return e.idx
}

// Mode is the playback mode the current state calls for.
func (e *Editor) Mode() playback.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return playback.ModeFor(e.state)
}

// SkipIntervals returns the merged ranges plain playback jumps over.
func (e *Editor) SkipIntervals(mode playback.Mode) []interval.Interval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compiler.Compile(e.idx, e.state, mode)
}

// KeptRanges returns the source ranges plain playback plays.
func (e *Editor) KeptRanges() []interval.Interval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compiler.Kept(e.idx, e.state, playback.ModeEdited)
}

// Timeline composes the output clips for the current state.
func (e *Editor) Timeline() *timeline.Timeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return timeline.Compose(e.idx, e.state)
}

func (e *Editor) IsSegmentDeleted(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.DeletedSegments[id]
}

func (e *Editor) IsWordDeleted(key WordKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsWordDeleted(key)
}

// WordText returns the corrected text of a word, or its transcript text.
func (e *Editor) WordText(key WordKey) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if text, ok := e.state.Corrections[key]; ok {
		return text
	}
	if w, ok := e.idx.Word(key); ok {
		return w.Text
	}
	return ""
}
