package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-cut/internal/transcribe"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// Transcribe runs the speech pipeline over the project's media and stores
// the result as its transcript. Pipeline output is written under workDir.
func (s *Service) Transcribe(ctx context.Context, projectID string, runner transcribe.Runner, workDir string) (*transcript.Transcript, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.MediaPath == "" {
		return nil, ErrNoMedia
	}
	if _, err := os.Stat(p.MediaPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMedia, err)
	}

	outPath := filepath.Join(workDir, projectID, "speech.json")
	tr, res, err := runner.Transcribe(ctx, p.MediaPath, outPath)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("transcription failed", "project_id", projectID, "exit_code", res.ExitCode, "error", err)
		}
		return nil, err
	}

	if err := s.SetTranscript(ctx, projectID, tr); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("project transcribed", "project_id", projectID,
			"segments", len(tr.Segments), "duration_ms", res.Duration.Milliseconds())
	}
	return tr, nil
}
