package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/logging"
)

// Saver persists an EDL under optimistic concurrency. version must be the
// stored version plus one; the stored version is returned.
type Saver interface {
	SaveEDL(ctx context.Context, projectID string, version int, ops []edl.Operation) (int, error)
}

// Autosaver debounces persistence of editor changes. Save failures are
// logged and kept for the next attempt; the editor state is never rolled
// back.
type Autosaver struct {
	saver     Saver
	projectID string
	delay     time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	version int
	pending []edl.Operation
	dirty   bool
	timer   *time.Timer
	lastErr error
	saving  sync.Mutex
}

func NewAutosaver(saver Saver, projectID string, version int, delay time.Duration, logger *slog.Logger) *Autosaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		saver:     saver,
		projectID: projectID,
		version:   version,
		delay:     delay,
		logger:    logging.WithProjectID(logger, projectID),
	}
}

// Attach saves ed's operations after every persisted change.
func (a *Autosaver) Attach(ed *Editor) {
	ed.OnChange(func(c Change) {
		if c.Persist {
			a.Notify(ed.Operations())
		}
	})
}

// Notify schedules ops to be saved once no further change arrives within
// the delay.
func (a *Autosaver) Notify(ops []edl.Operation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = ops
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		if err := a.Flush(context.Background()); err != nil {
			a.logger.Warn("autosave failed", "error", err)
		}
	})
}

// Flush saves pending operations now.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.saving.Lock()
	defer a.saving.Unlock()

	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	ops := a.pending
	next := a.version + 1
	a.dirty = false
	a.mu.Unlock()

	version, err := a.saver.SaveEDL(ctx, a.projectID, next, ops)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = err
	if err != nil {
		// Keep the newest snapshot for the next attempt.
		a.dirty = true
		return err
	}
	a.version = version
	a.logger.Debug("edl saved", "version", version, "operations", len(ops))
	return nil
}

// Stop cancels a scheduled save without flushing.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *Autosaver) Version() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}

// SetVersion rebases onto a stored version, e.g. after reloading a
// conflicting EDL.
func (a *Autosaver) SetVersion(v int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.version = v
}

func (a *Autosaver) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

func (a *Autosaver) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}
