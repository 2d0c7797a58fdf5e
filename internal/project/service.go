package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Repository() Repository {
	return s.repo
}

func (s *Service) CreateProject(ctx context.Context, name, mediaPath string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProject)
	}

	now := s.now().UTC()
	p := &Project{
		ID:        NewID(),
		Name:      name,
		MediaPath: mediaPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID, "name", name)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("project deleted", "project_id", id)
	}
	return nil
}

// SetTranscript validates and stores the transcript a project is edited
// against, replacing any previous one. Saved EDLs are kept; replay skips
// entries the new transcript cannot resolve.
func (s *Service) SetTranscript(ctx context.Context, projectID string, tr *transcript.Transcript) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}
	if tr == nil {
		return fmt.Errorf("transcript is required")
	}
	if err := tr.Validate(); err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}
	if err := s.repo.PutTranscript(ctx, projectID, tr); err != nil {
		return err
	}
	s.touch(ctx, projectID, s.now().UTC())

	if s.logger != nil {
		s.logger.Info("transcript stored", "project_id", projectID, "segments", len(tr.Segments))
	}
	return nil
}

func (s *Service) GetTranscript(ctx context.Context, projectID string) (*transcript.Transcript, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tr, err := s.repo.GetTranscript(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, ErrNoTranscript
	}
	return tr, nil
}

// GetEDL returns the latest saved version, or version 0 with no operations
// when nothing has been saved yet.
func (s *Service) GetEDL(ctx context.Context, projectID string) (*EDLVersion, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	v, err := s.repo.LatestEDL(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &EDLVersion{ProjectID: projectID, Version: 0, Operations: []edl.Operation{}}, nil
	}
	return v, nil
}

// SaveEDL stores ops as the given version, which must be one past the
// latest. delete_segments entries must name segments of the stored
// transcript. It returns the saved version.
func (s *Service) SaveEDL(ctx context.Context, projectID string, version int, ops []edl.Operation) (int, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return 0, err
	}

	tr, err := s.repo.GetTranscript(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if tr != nil {
		if err := checkSegmentRefs(transcript.NewIndex(tr), ops); err != nil {
			return 0, err
		}
	}
	return s.saveVersion(ctx, projectID, version, ops)
}

func (s *Service) saveVersion(ctx context.Context, projectID string, version int, ops []edl.Operation) (int, error) {
	v := &EDLVersion{
		ID:         newEDLID(),
		ProjectID:  projectID,
		Version:    version,
		Operations: ops,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateEDLVersion(ctx, v); err != nil {
		if errors.Is(err, ErrVersionConflict) && s.logger != nil {
			s.logger.Warn("edl version conflict", "project_id", projectID, "version", version)
		}
		return 0, err
	}
	s.touch(ctx, projectID, v.CreatedAt)

	if s.logger != nil {
		s.logger.Info("edl saved", "project_id", projectID, "version", version, "edl_id", v.ID, "operations", len(ops))
	}
	return version, nil
}

// AppendOperations saves the latest operations followed by ops as the next
// version and reports how many of ops were kept. Segment ids the transcript
// does not know are dropped from ops and the rest is applied; when nothing
// is left the current version is returned unchanged.
func (s *Service) AppendOperations(ctx context.Context, projectID string, ops []edl.Operation) (*EDLVersion, int, error) {
	current, err := s.GetEDL(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}

	tr, err := s.repo.GetTranscript(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	if tr != nil {
		var dropped []int
		ops, dropped = dropUnknownSegments(transcript.NewIndex(tr), ops)
		if len(dropped) > 0 && s.logger != nil {
			s.logger.Warn("skipped unknown segments", "project_id", projectID, "segment_ids", dropped)
		}
	}
	if len(ops) == 0 {
		return current, 0, nil
	}

	next := edl.Concat(current.Operations, ops)
	if _, err := s.saveVersion(ctx, projectID, current.Version+1, next); err != nil {
		return nil, 0, err
	}
	v, err := s.GetEDL(ctx, projectID)
	return v, len(ops), err
}

// OpenEditor loads the project's transcript and latest EDL into a new
// editor, together with the version it was loaded from.
func (s *Service) OpenEditor(ctx context.Context, projectID string, opts editor.Options) (*editor.Editor, *EDLVersion, error) {
	tr, err := s.GetTranscript(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.GetEDL(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if opts.Logger == nil && s.logger != nil {
		opts.Logger = s.logger.With("project_id", projectID)
	}

	ed := editor.New(tr, opts)
	ed.Load(v.Operations)
	return ed, v, nil
}

// dropUnknownSegments removes segment ids idx cannot resolve from
// delete_segments payloads. A payload left empty is dropped whole.
func dropUnknownSegments(idx *transcript.Index, ops []edl.Operation) ([]edl.Operation, []int) {
	var dropped []int
	out := make([]edl.Operation, 0, len(ops))
	for _, op := range ops {
		del, ok := op.Payload.(edl.DeleteSegments)
		if !ok {
			out = append(out, op)
			continue
		}
		kept := make([]int, 0, len(del.SegmentIDs))
		for _, id := range del.SegmentIDs {
			if idx.Has(id) {
				kept = append(kept, id)
			} else {
				dropped = append(dropped, id)
			}
		}
		if len(kept) == 0 {
			continue
		}
		del.SegmentIDs = kept
		op.Payload = del
		out = append(out, op)
	}
	return out, dropped
}

// touch bumps updated_at. A failure only leaves the timestamp stale, so it
// is logged and not returned.
func (s *Service) touch(ctx context.Context, projectID string, at time.Time) {
	if err := s.repo.TouchProject(ctx, projectID, at); err != nil && s.logger != nil {
		s.logger.Warn("failed to touch project", "project_id", projectID, "error", err)
	}
}

func checkSegmentRefs(idx *transcript.Index, ops []edl.Operation) error {
	for _, op := range ops {
		del, ok := op.Payload.(edl.DeleteSegments)
		if !ok {
			continue
		}
		for _, id := range del.SegmentIDs {
			if !idx.Has(id) {
				return fmt.Errorf("%w: %d", ErrInvalidSegment, id)
			}
		}
	}
	return nil
}
