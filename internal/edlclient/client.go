// Package edlclient talks to a running heimdex-cut server to load a
// project's transcript and EDL and to save new EDL versions.
package edlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// DefaultSavesPerSecond caps how often SaveEDL hits the server.
const DefaultSavesPerSecond = 2

// SaveError is a non-2xx answer to a save.
type SaveError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *SaveError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("save edl failed: HTTP %d %s: %s", e.StatusCode, e.Code, e.Body)
	}
	return fmt.Sprintf("save edl failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsConflict reports a version conflict; the caller must reload before
// saving again.
func (e *SaveError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors (4xx) are considered permanent.
func (e *SaveError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsConflict reports whether err is a version conflict from SaveEDL.
func IsConflict(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && se.IsConflict()
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultSavesPerSecond), 1),
		logger:  logger,
	}
}

// SetSaveRate changes the save throttle. A non-positive rate disables it.
func (c *Client) SetSaveRate(perSecond float64) {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

func (c *Client) GetTranscript(ctx context.Context, projectID string) (*transcript.Transcript, error) {
	var tr transcript.Transcript
	if err := c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/transcript", &tr); err != nil {
		return nil, err
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transcript from server: %w", err)
	}
	return &tr, nil
}

// GetEDL returns the latest saved EDL; version 0 means nothing was saved.
func (c *Client) GetEDL(ctx context.Context, projectID string) (*edl.Document, error) {
	var doc edl.Document
	if err := c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/edl", &doc); err != nil {
		return nil, err
	}
	if doc.Operations == nil {
		doc.Operations = []edl.Operation{}
	}
	return &doc, nil
}

// SaveEDL stores ops as version, which must be the stored version plus
// one. Failures are returned as *SaveError.
func (c *Client) SaveEDL(ctx context.Context, projectID string, version int, ops []edl.Operation) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	if ops == nil {
		ops = []edl.Operation{}
	}
	body, err := json.Marshal(map[string]any{"version": version, "operations": ops})
	if err != nil {
		return 0, fmt.Errorf("marshal edl: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(projectID)+"/edl", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &SaveError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			se.Code = apiErr.Code
			if apiErr.Error != "" {
				se.Body = apiErr.Error
			}
		}
		return 0, se
	}

	var saved edl.Document
	if err := json.Unmarshal(respBody, &saved); err != nil {
		return 0, fmt.Errorf("decode save response: %w", err)
	}
	c.logger.Info("edl saved", "project_id", projectID, "version", saved.Version, "operations", len(ops))
	return saved.Version, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: HTTP %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Heimdex-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	return resp, nil
}
