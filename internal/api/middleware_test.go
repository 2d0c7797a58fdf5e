package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost",
		"http://127.0.0.1:3000",
		"http://127.0.0.1",
		"https://acme.app.heimdex.co",
		"https://demo-org.app.heimdex.co",
		"https://acme.app.heimdex.local",
		"http://acme.app.heimdex.local",
		"http://devorg.app.heimdex.local:3000",
		"https://acme.app.heimdex.co:443",
		"https://a--b.app.heimdex.co",
		"https://a.app.heimdex.co",
	}
	for _, origin := range allowed {
		if !isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = false, want true", origin)
		}
	}

	denied := []string{
		"https://evil.com",
		"https://app.heimdex.co",
		"https://app.heimdex.co.evil.com",
		"https://acme.app.heimdex.co.evil.com",
		"http://acme.app.heimdex.co",
		"https://a.b.app.heimdex.co",
		"http://192.168.1.1:3000",
		"",
		"ftp://localhost:3000",
		"http://localhost:not-a-port",
		"http://localhost:3000/path",
		"https://-bad.app.heimdex.co",
		"https://bad-.app.heimdex.co",
		"https://acme.app.heimdex.co:3000/path",
	}
	for _, origin := range denied {
		if isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = true, want false", origin)
		}
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:12345", true},
		{"[::1]:12345", true},
		{"::1", true},
		{"[::1]", true},
		{"127.0.0.1", true},
		{"8.8.8.8:12345", false},
		{"192.168.1.1:8080", false},
		{"not-an-ip:1234", false},
		{"", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		if got := isLoopbackRemoteAddr(tc.addr); got != tc.want {
			t.Errorf("isLoopbackRemoteAddr(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowlist(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"allowed get", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"heimdex subdomain", http.MethodGet, "https://acme.app.heimdex.local", http.StatusOK, "https://acme.app.heimdex.local"},
		{"denied get still served", http.MethodGet, "https://evil.com", http.StatusOK, ""},
		{"denied preflight", http.MethodOptions, "https://evil.com", http.StatusForbidden, ""},
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
		{"allowed preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSAllowlist()(okHandler())
			req := httptest.NewRequest(tt.method, "/projects/p/media", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("ACAO = %q, want %q", got, tt.wantACAO)
			}
		})
	}
}

func TestCORSAllowlist_Headers(t *testing.T) {
	handler := CORSAllowlist()(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/projects/p/edl", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	req.Header.Set("Access-Control-Request-Headers", "range,authorization")
	rr := httptest.NewRecorder()
	rr.Header().Set("Vary", "Accept-Encoding")

	handler.ServeHTTP(rr, req)

	checks := map[string][]string{
		"Access-Control-Allow-Headers":  {"Range", "Content-Type", "Authorization", "X-Heimdex-Request-Id"},
		"Access-Control-Expose-Headers": {"Content-Range", "Accept-Ranges", "Content-Length", "Content-Type"},
		"Access-Control-Allow-Methods":  {"GET", "HEAD", "PUT", "POST", "OPTIONS"},
	}
	for header, want := range checks {
		parts := map[string]bool{}
		for _, p := range strings.Split(rr.Header().Get(header), ",") {
			parts[strings.TrimSpace(p)] = true
		}
		for _, w := range want {
			if !parts[w] {
				t.Errorf("%s missing %q, got %q", header, w, rr.Header().Get(header))
			}
		}
	}

	if got := rr.Header().Get("Access-Control-Allow-Headers"); strings.Count(got, ",") != 3 {
		t.Errorf("Access-Control-Allow-Headers = %q, want exactly the four request headers", got)
	}

	vary := strings.Join(rr.Header().Values("Vary"), ",")
	if !strings.Contains(vary, "Accept-Encoding") || !strings.Contains(vary, "Origin") {
		t.Errorf("Vary = %q, want Accept-Encoding and Origin", vary)
	}
}

func TestLoopbackGuard(t *testing.T) {
	tests := []struct {
		remote     string
		wantStatus int
	}{
		{"8.8.8.8:12345", http.StatusForbidden},
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			handler := LoopbackGuard()(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/projects/p/media", nil)
			req.RemoteAddr = tt.remote
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if code := decodeJSONBody(t, rr)["code"]; code != "FORBIDDEN" {
					t.Errorf("error code = %v, want FORBIDDEN", code)
				}
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer nope-nope-nope", http.StatusUnauthorized},
		{"valid", "Bearer " + testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			env.router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_NoStoredToken(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Repository.SetConfig(context.Background(), AuthTokenKey, "")

	rr := env.do(t, http.MethodGet, "/projects", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when no token is configured", rr.Code)
	}
}

func TestHealthRoute_CORS_Integration(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-Heimdex-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q", got)
	}
	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want caller id", got)
	}
	if body := decodeJSONBody(t, rr); body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v", body)
	}
}

func TestMediaRoute(t *testing.T) {
	env := newTestEnv(t)

	mediaPath := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(mediaPath, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	id := env.newProject(t, mediaPath)

	server := httptest.NewServer(env.router)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects/"+id+"/media", nil)
	req.Header.Set("Range", "bytes=2-5")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206 (loopback request needs no token)", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}

	head, _ := http.NewRequest(http.MethodHead, server.URL+"/projects/"+id+"/media", nil)
	hresp, err := http.DefaultClient.Do(head)
	if err != nil {
		t.Fatalf("HEAD error: %v", err)
	}
	hresp.Body.Close()
	if hresp.StatusCode != http.StatusOK || hresp.ContentLength != 10 {
		t.Errorf("HEAD status = %d, length = %d", hresp.StatusCode, hresp.ContentLength)
	}

	remote := httptest.NewRequest(http.MethodGet, "/projects/"+id+"/media", nil)
	remote.RemoteAddr = "10.0.0.8:5555"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, remote)
	if rr.Code != http.StatusForbidden {
		t.Errorf("remote media status = %d, want 403", rr.Code)
	}
}

func TestMediaRoute_NoMedia(t *testing.T) {
	env := newTestEnv(t)
	id := env.newProject(t, "")

	req := httptest.NewRequest(http.MethodGet, "/projects/"+id+"/media", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound || decodeJSONBody(t, rr)["code"] != "MEDIA_NOT_FOUND" {
		t.Errorf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}
