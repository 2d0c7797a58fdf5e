package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/heimdex/heimdex-cut/internal/edl"
)

const DefaultTTL = 5 * time.Minute

type Service struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Register decodes a producer suggestion, assigns it an action id and keeps
// it pending until confirmed or expired.
func (s *Service) Register(ctx context.Context, projectID string, raw []byte) (*Pending, *edl.Suggestion, error) {
	now := s.now().UTC()
	sug, err := edl.DecodeSuggestion(raw, now)
	if err != nil {
		return nil, nil, err
	}

	p := &Pending{
		ActionID:  "action_" + ulid.Make().String(),
		ProjectID: projectID,
		Raw:       append([]byte(nil), raw...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("store suggestion: %w", err)
	}
	sug.ID = p.ActionID

	s.logger.Info("suggestion pending", "project_id", projectID, "action_id", p.ActionID, "action", sug.Kind)
	return p, sug, nil
}

// Resolve looks up a pending suggestion for confirmation. Expired entries
// are removed; a project mismatch leaves the entry in place.
func (s *Service) Resolve(ctx context.Context, projectID, actionID string) (*edl.Suggestion, error) {
	p, err := s.store.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if p.Expired(s.now()) {
		if err := s.store.Delete(ctx, actionID); err != nil {
			s.logger.Warn("failed to drop expired suggestion", "action_id", actionID, "error", err)
		}
		return nil, ErrExpired
	}
	if p.ProjectID != projectID {
		return nil, ErrProjectMismatch
	}

	sug, err := edl.DecodeSuggestion(p.Raw, s.now().UTC())
	if err != nil {
		return nil, err
	}
	sug.ID = p.ActionID
	return sug, nil
}

// Discard removes a suggestion once it has been confirmed or rejected.
func (s *Service) Discard(ctx context.Context, actionID string) error {
	err := s.store.Delete(ctx, actionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}
