package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-cut/internal/db"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/project"
	"github.com/heimdex/heimdex-cut/internal/suggest"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

const testToken = "test-token-0123456789"

type testEnv struct {
	cfg    ServerConfig
	router *chi.Mux
	store  *suggest.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := suggest.NewMemoryStore()
	cfg := ServerConfig{
		Projects:    project.NewService(repo, nil),
		Repository:  repo,
		Suggestions: suggest.NewService(store, time.Minute, logger),
		Media:       playback.NewMediaServer(logger),
		Logger:      logger,
		StartTime:   time.Now(),
		Version:     "test",
	}
	return &testEnv{cfg: cfg, router: NewRouter(cfg), store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		rdr = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// newProject creates a project with the three segment test transcript.
func (e *testEnv) newProject(t *testing.T, mediaPath string) string {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/projects", CreateProjectRequest{Name: "Demo", MediaPath: mediaPath})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var p ProjectResponse
	json.Unmarshal(rr.Body.Bytes(), &p)

	rr = e.do(t, http.MethodPut, "/projects/"+p.ID+"/transcript", testTranscript())
	if rr.Code != http.StatusOK {
		t.Fatalf("put transcript status = %d, body = %s", rr.Code, rr.Body.String())
	}
	return p.ID
}

func testTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		Duration: 10,
		Segments: []transcript.Segment{
			{ID: 1, Start: 0, End: 2, Text: "hello there", Words: []transcript.Word{
				{Text: "hello", Start: 0, End: 1}, {Text: "there", Start: 1, End: 2},
			}},
			{ID: 2, Start: 2, End: 5, Text: "um so", Words: []transcript.Word{
				{Text: "um", Start: 2, End: 3}, {Text: "so", Start: 3, End: 5},
			}},
			{ID: 3, Start: 5, End: 10, Text: "goodbye", Words: []transcript.Word{
				{Text: "goodbye", Start: 5, End: 10},
			}},
		},
	}
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rr.Body.String())
	}
	return body
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (%q)", v, err, rr.Body.String())
	}
	return v
}
