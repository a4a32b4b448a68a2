package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

const (
	// DefaultTimeout bounds every backend call. The hotkey path has no other
	// way to cancel a hung request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// HTTPClient is the JSON-over-HTTP implementation of Client.
type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &resp, nil); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "healthy" {
		return &Error{Op: "health", Message: "status " + resp.Status}
	}
	return nil
}

func (c *HTTPClient) NewSession(ctx context.Context) (string, error) {
	var resp newSessionResponse
	if err := c.call(ctx, "new session", http.MethodPost, "/api/session/new", nil, &resp, &resp.envelope, nil); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &Error{Op: "new session", Message: "empty session id"}
	}
	return resp.SessionID, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	var resp sessionResponse
	path := "/api/session/" + url.PathEscape(sessionID)
	if err := c.call(ctx, "get session", http.MethodGet, path, nil, &resp, &resp.envelope, nil); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) CurrentTimestamp(ctx context.Context) (*Timestamp, error) {
	var resp timestampResponse
	if err := c.call(ctx, "timestamp", http.MethodGet, "/api/mpc/timestamp", nil, &resp, &resp.envelope, nil); err != nil {
		return nil, err
	}
	if resp.Data.CurrentPosition == "" {
		return nil, &Error{Op: "timestamp", Message: "empty current_position"}
	}
	return &resp.Data, nil
}

// AddClip posts a new clip. token is sent as X-Idempotency-Key so a backend
// that supports it can drop a replayed attempt.
func (c *HTTPClient) AddClip(ctx context.Context, sessionID string, clip NewClip, token string) error {
	var resp envelope
	path := "/api/clips/" + url.PathEscape(sessionID)
	headers := map[string]string{}
	if token != "" {
		headers["X-Idempotency-Key"] = token
	}
	return c.call(ctx, "add clip", http.MethodPost, path, clip, &resp, &resp, headers)
}

// UpdateClip replaces the clip at the backend's 0-based index.
func (c *HTTPClient) UpdateClip(ctx context.Context, sessionID string, index int, clip ClipRecord) error {
	var resp envelope
	path := fmt.Sprintf("/api/clips/%s/%d", url.PathEscape(sessionID), index)
	return c.call(ctx, "update clip", http.MethodPut, path, clip, &resp, &resp, nil)
}

// DeleteClip removes the clip at the backend's 0-based index.
func (c *HTTPClient) DeleteClip(ctx context.Context, sessionID string, index int) error {
	var resp envelope
	path := fmt.Sprintf("/api/clips/%s/%d", url.PathEscape(sessionID), index)
	return c.call(ctx, "delete clip", http.MethodDelete, path, nil, &resp, &resp, nil)
}

func (c *HTTPClient) Export(ctx context.Context, sessionID, outputPath string) (*Artifact, error) {
	var resp exportResponse
	path := "/api/export/" + url.PathEscape(sessionID)
	if err := c.call(ctx, "export", http.MethodPost, path, exportRequest{OutputPath: outputPath}, &resp, &resp.envelope, nil); err != nil {
		return nil, err
	}
	if resp.FilePath == "" {
		return nil, &Error{Op: "export", Message: "empty file_path"}
	}
	return &Artifact{Filename: resp.Filename, FilePath: resp.FilePath}, nil
}

func (c *HTTPClient) ClipVideos(ctx context.Context, jsonFile, outputDir string) error {
	var resp envelope
	body := clipVideosRequest{JSONFile: jsonFile, OutputDirectory: outputDir}
	return c.call(ctx, "clip videos", http.MethodPost, "/api/clip-videos", body, &resp, &resp, nil)
}

func (c *HTTPClient) ListAutoSaves(ctx context.Context) ([]AutoSave, error) {
	var resp autoSavesResponse
	if err := c.call(ctx, "list auto-saves", http.MethodGet, "/api/auto-saves", nil, &resp, &resp.envelope, nil); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) LoadAutoSave(ctx context.Context, filename string) (*SessionData, error) {
	var resp sessionResponse
	path := "/api/auto-saves/" + url.PathEscape(filename)
	if err := c.call(ctx, "load auto-save", http.MethodGet, path, nil, &resp, &resp.envelope, nil); err != nil {
		return nil, err
	}
	if resp.Data.SessionID == "" {
		return nil, &Error{Op: "load auto-save", Message: "empty session id"}
	}
	return &resp.Data, nil
}

// call is do plus the {success:false} check.
func (c *HTTPClient) call(ctx context.Context, op, method, path string, in, out interface{}, env *envelope, headers map[string]string) error {
	if err := c.do(ctx, op, method, path, in, out, headers); err != nil {
		return err
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "success=false"
		}
		return &Error{Op: op, Message: msg}
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out interface{}, headers map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "method", method, "path", path, "error", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &env) == nil && env.Error != "" {
			msg = env.Error
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
