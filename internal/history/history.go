// Package history keeps a bounded linear undo/redo stack of EDL snapshots.
//
// Every entry is the full operation list as it stood after one mutation.
// The base snapshot is what the editor was loaded with; undoing past the
// first entry restores it.
package history

import (
	"sync"

	"github.com/heimdex/heimdex-cut/internal/edl"
)

// DefaultMaxEntries bounds the stack when no limit is configured.
const DefaultMaxEntries = 100

// Entry is one recorded mutation.
type Entry struct {
	Label      string
	Operations []edl.Operation
}

// History is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	base    []edl.Operation
	entries []Entry
	cursor  int
	max     int
}

// New creates an empty history. A max of 0 or less uses DefaultMaxEntries.
func New(max int) *History {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &History{cursor: -1, max: max, base: []edl.Operation{}}
}

// Reset drops every entry and makes ops the new base snapshot.
func (h *History) Reset(ops []edl.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = clone(ops)
	h.entries = nil
	h.cursor = -1
}

// Push records the snapshot after a mutation. Entries after the cursor are
// discarded; the oldest entry is folded into the base once the stack is full.
func (h *History) Push(label string, ops []edl.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.cursor+1], Entry{Label: label, Operations: clone(ops)})
	if len(h.entries) > h.max {
		drop := len(h.entries) - h.max
		h.base = h.entries[drop-1].Operations
		h.entries = append([]Entry(nil), h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo steps back one entry and returns the snapshot to restore.
func (h *History) Undo() ([]edl.Operation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor < 0 {
		return nil, false
	}
	h.cursor--
	return h.current(), true
}

// Redo steps forward one entry and returns the snapshot to restore.
func (h *History) Redo() ([]edl.Operation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= len(h.entries)-1 {
		return nil, false
	}
	h.cursor++
	return h.current(), true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Cursor returns the index of the current entry, -1 at the base.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Labels returns entry labels oldest first.
func (h *History) Labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Label
	}
	return out
}

func (h *History) current() []edl.Operation {
	if h.cursor < 0 {
		return clone(h.base)
	}
	return clone(h.entries[h.cursor].Operations)
}

func clone(ops []edl.Operation) []edl.Operation {
	return append([]edl.Operation{}, ops...)
}
