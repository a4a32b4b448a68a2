package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/api"
	"github.com/clipmarker/clipmarker-agent/internal/config"
	"github.com/clipmarker/clipmarker-agent/internal/db"
	"github.com/clipmarker/clipmarker-agent/internal/store"
)

// TokenEnv overrides the token read from the agent database.
const TokenEnv = "CLIPMARKER_TOKEN"

// agentClient talks to a running agent's local API.
type agentClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAgentClient(ctx context.Context) (*agentClient, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	token := os.Getenv(TokenEnv)
	if token == "" {
		if token, err = readToken(ctx, cfg.DBPath()); err != nil {
			return nil, err
		}
	}

	return &agentClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func readToken(ctx context.Context, dbPath string) (string, error) {
	database, err := db.OpenReadOnly(dbPath)
	if err != nil {
		return "", fmt.Errorf("agent has not been started yet (run: clipmarker run): %w", err)
	}
	defer database.Close()

	token, err := store.NewRepository(database.Conn()).GetConfig(ctx, api.AuthTokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read auth token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("no auth token stored; set %s or start the agent once", TokenEnv)
	}
	return token, nil
}

// do sends a request and decodes a 2xx JSON body into out. Error bodies are
// returned as errors carrying the agent's message.
func (c *agentClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("agent returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("agent returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
