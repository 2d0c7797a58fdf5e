package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/heimdex/heimdex-cut/internal/transcribe"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

type stubTranscriber struct {
	err error
}

func (s stubTranscriber) Transcribe(ctx context.Context, mediaPath, outPath string) (*transcript.Transcript, transcribe.RunResult, error) {
	if s.err != nil {
		return nil, transcribe.RunResult{ExitCode: 2}, s.err
	}
	return testTranscript(), transcribe.RunResult{OutputPath: outPath}, nil
}

func TestTranscribeRoute(t *testing.T) {
	env := newTestEnv(t)
	media := filepath.Join(t.TempDir(), "demo.mp4")
	os.WriteFile(media, []byte("video"), 0o644)

	rr := env.do(t, http.MethodPost, "/projects", CreateProjectRequest{Name: "Demo", MediaPath: media})
	id := decodeInto[ProjectResponse](t, rr).ID

	rr = env.do(t, http.MethodPost, "/projects/"+id+"/transcribe", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("without transcriber status = %d, want 503", rr.Code)
	}

	env.cfg.Transcriber = stubTranscriber{}
	env.cfg.WorkDir = t.TempDir()
	env.router = NewRouter(env.cfg)

	rr = env.do(t, http.MethodPost, "/projects/"+id+"/transcribe", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("transcribe status = %d, body = %s", rr.Code, rr.Body.String())
	}
	sum := decodeInto[TranscriptSummaryResponse](t, rr)
	if sum.SegmentCount != 3 || sum.WordCount != 5 || sum.Duration != 10 {
		t.Errorf("summary = %+v", sum)
	}

	rr = env.do(t, http.MethodGet, "/projects/"+id+"/transcript", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("stored transcript status = %d", rr.Code)
	}
}

func TestTranscribeRoute_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Transcriber = stubTranscriber{err: fmt.Errorf("%w: exit 2", transcribe.ErrFailed)}
	env.cfg.WorkDir = t.TempDir()
	env.router = NewRouter(env.cfg)

	noMedia := env.newProject(t, "")
	rr := env.do(t, http.MethodPost, "/projects/"+noMedia+"/transcribe", nil)
	if rr.Code != http.StatusUnprocessableEntity || decodeJSONBody(t, rr)["code"] != "NO_MEDIA" {
		t.Errorf("no media status = %d, body = %s", rr.Code, rr.Body.String())
	}

	media := filepath.Join(t.TempDir(), "demo.mp4")
	os.WriteFile(media, []byte("video"), 0o644)
	id := env.newProject(t, media)
	rr = env.do(t, http.MethodPost, "/projects/"+id+"/transcribe", nil)
	if rr.Code != http.StatusBadGateway || decodeJSONBody(t, rr)["code"] != "TRANSCRIBE_FAILED" {
		t.Errorf("failing pipeline status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/projects/missing/transcribe", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown project status = %d, want 404", rr.Code)
	}
}
