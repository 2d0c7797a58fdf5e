package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/export"
	"github.com/heimdex/heimdex-cut/internal/playback"
)

// Export renders the project's latest EDL into req.OutputDir. Plain modes
// export the kept source ranges; composed mode exports one event per clip
// repeat. The export row records the outcome either way.
func (s *Service) Export(ctx context.Context, projectID string, req export.Request) (*Export, error) {
	if req.Format == "" {
		req.Format = ExportFormatEDL
	}
	if req.Format != ExportFormatEDL {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidExport, req.Format)
	}
	outDir, err := export.ResolveOutputDir(req.OutputDir, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ed, v, err := s.OpenEditor(ctx, projectID, editor.Options{Logger: s.logger})
	if err != nil {
		return nil, err
	}

	mode := ed.Mode()
	if req.Mode != "" {
		if mode, err = playback.ParseMode(req.Mode); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
		}
	}

	now := s.now().UTC()
	rec := &Export{
		ID:         newExportID(),
		ProjectID:  projectID,
		Format:     req.Format,
		Mode:       string(mode),
		Status:     ExportStatusProcessing,
		EDLVersion: v.Version,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateExport(ctx, rec); err != nil {
		return nil, err
	}

	clipName := p.Name
	mediaPath := p.MediaPath
	if mediaPath == "" {
		mediaPath = p.Name
	}

	events := export.FromEditor(ed, mode, clipName, mediaPath)

	outPath := export.OutputPath(outDir, p.Name, rec.ID, "edl")
	content := export.GenerateEDL(events, p.Name, req.FrameRate)

	rec.EventCount = len(events)
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		rec.Status = ExportStatusFailed
		rec.Error = err.Error()
		rec.UpdatedAt = s.now().UTC()
		s.repo.UpdateExport(ctx, rec)
		if s.logger != nil {
			s.logger.Error("export failed", "project_id", projectID, "export_id", rec.ID, "error", err)
		}
		return rec, fmt.Errorf("write export: %w", err)
	}

	rec.Status = ExportStatusCompleted
	rec.OutputPath = filepath.Clean(outPath)
	rec.FileSize = int64(len(content))
	rec.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateExport(ctx, rec); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("export completed", "project_id", projectID, "export_id", rec.ID,
			"mode", rec.Mode, "events", rec.EventCount, "path", rec.OutputPath)
	}
	return rec, nil
}

func (s *Service) GetExport(ctx context.Context, projectID, exportID string) (*Export, error) {
	e, err := s.repo.GetExport(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.ProjectID != projectID {
		return nil, ErrExportNotFound
	}
	return e, nil
}

func (s *Service) ListExports(ctx context.Context, projectID string) ([]*Export, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListExports(ctx, projectID)
}
