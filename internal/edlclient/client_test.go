package edlclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/editor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ editor.Saver = (*Client)(nil)

const transcriptJSON = `{
  "duration": 10,
  "segments": [
    {"id": 1, "speaker": "A", "start": 0, "end": 5, "text": "hello there",
     "words": [{"word": "hello", "start": 0, "end": 1}, {"word": "there", "start": 1, "end": 2}]},
    {"id": 2, "speaker": "B", "start": 5, "end": 10, "text": "goodbye",
     "words": [{"word": "goodbye", "start": 5, "end": 6}]}
  ]
}`

func TestClient_GetTranscript(t *testing.T) {
	var gotAuth, gotReqID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/p1/transcript" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Heimdex-Request-Id")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, transcriptJSON)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", testLogger())
	tr, err := c.GetTranscript(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if len(tr.Segments) != 2 || tr.Duration != 10 {
		t.Errorf("transcript = %+v", tr)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotReqID == "" {
		t.Error("missing X-Heimdex-Request-Id header")
	}
}

func TestClient_GetTranscript_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"no transcript","code":"TRANSCRIPT_NOT_FOUND"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "tok", testLogger()).GetTranscript(context.Background(), "p1")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("GetTranscript() error = %v, want HTTP 404", err)
	}
}

func TestClient_GetEDL_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"version":0,"operations":[]}`)
	}))
	defer server.Close()

	doc, err := NewClient(server.URL, "tok", testLogger()).GetEDL(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetEDL() error = %v", err)
	}
	if doc.Version != 0 || doc.Operations == nil || len(doc.Operations) != 0 {
		t.Errorf("GetEDL() = %+v", doc)
	}
}

func TestClient_SaveEDL(t *testing.T) {
	var received struct {
		Version    int             `json:"version"`
		Operations []edl.Operation `json:"operations"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/projects/p1/edl" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "edl_1",
			"version":    received.Version,
			"operations": received.Operations,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", testLogger())
	ops := []edl.Operation{edl.NewOperation(edl.DeleteSegments{SegmentIDs: []int{2}}, time.Now())}
	v, err := c.SaveEDL(context.Background(), "p1", 3, ops)
	if err != nil {
		t.Fatalf("SaveEDL() error = %v", err)
	}
	if v != 3 {
		t.Errorf("SaveEDL() version = %d, want 3", v)
	}
	if received.Version != 3 || len(received.Operations) != 1 {
		t.Errorf("server received %+v", received)
	}
	if p, ok := received.Operations[0].Payload.(edl.DeleteSegments); !ok || p.SegmentIDs[0] != 2 {
		t.Errorf("payload = %#v", received.Operations[0].Payload)
	}
}

func TestClient_SaveEDL_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		conflict  bool
		retryable bool
		code      string
	}{
		{"conflict", http.StatusConflict, `{"error":"version conflict","code":"VERSION_CONFLICT"}`, true, false, "VERSION_CONFLICT"},
		{"invalid segment", http.StatusUnprocessableEntity, `{"error":"bad id","code":"INVALID_SEGMENT_ID"}`, false, false, "INVALID_SEGMENT_ID"},
		{"server error", http.StatusInternalServerError, `oops`, false, true, ""},
		{"rate limited", http.StatusTooManyRequests, ``, false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := NewClient(server.URL, "tok", testLogger())
			c.SetSaveRate(0)
			_, err := c.SaveEDL(context.Background(), "p1", 1, nil)
			se, ok := err.(*SaveError)
			if !ok {
				t.Fatalf("error = %T %v, want *SaveError", err, err)
			}
			if se.StatusCode != tt.status || se.Code != tt.code {
				t.Errorf("SaveError = %+v", se)
			}
			if se.IsConflict() != tt.conflict || IsConflict(err) != tt.conflict {
				t.Errorf("IsConflict() = %v, want %v", se.IsConflict(), tt.conflict)
			}
			if se.IsRetryable() != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", se.IsRetryable(), tt.retryable)
			}
		})
	}
}

func TestClient_SaveEDL_RespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"version":1,"operations":[]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", testLogger())
	c.SetSaveRate(0.001)
	if _, err := c.SaveEDL(context.Background(), "p1", 1, nil); err != nil {
		t.Fatalf("first SaveEDL() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.SaveEDL(ctx, "p1", 2, nil); err == nil {
		t.Error("throttled SaveEDL() should fail once the context deadline passes")
	}
}

func TestClient_WithAutosaver(t *testing.T) {
	stored := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Version int `json:"version"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Version != stored+1 {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"error":"version conflict","code":"VERSION_CONFLICT"}`)
			return
		}
		stored = body.Version
		json.NewEncoder(w).Encode(map[string]any{"version": stored, "operations": []any{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", testLogger())
	c.SetSaveRate(0)
	a := editor.NewAutosaver(c, "p1", 0, time.Hour, testLogger())
	defer a.Stop()

	a.Notify([]edl.Operation{edl.NewOperation(edl.DeleteSegments{SegmentIDs: []int{1}}, time.Now())})
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if a.Version() != 1 || stored != 1 {
		t.Errorf("version = %d, server = %d", a.Version(), stored)
	}
}
