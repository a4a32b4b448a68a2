package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/clipmarker/clipmarker-agent/internal/api"
	"github.com/clipmarker/clipmarker-agent/internal/config"
	"github.com/clipmarker/clipmarker-agent/internal/db"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/ledger"
	"github.com/clipmarker/clipmarker-agent/internal/store"
)

func TestReadToken(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "clipmarker.db")

	if _, err := readToken(context.Background(), dbPath); err == nil {
		t.Fatal("readToken() with no database should fail")
	}

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	defer database.Close()

	if _, err := readToken(context.Background(), dbPath); err == nil {
		t.Fatal("readToken() with no stored token should fail")
	}

	repo := store.NewRepository(database.Conn())
	token, err := ensureAuthToken(context.Background(), repo)
	if err != nil {
		t.Fatalf("ensureAuthToken() error = %v", err)
	}

	got, err := readToken(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("readToken() error = %v", err)
	}
	if got != token {
		t.Errorf("readToken() = %q, want %q", got, token)
	}

	again, err := ensureAuthToken(context.Background(), repo)
	if err != nil {
		t.Fatalf("second ensureAuthToken() error = %v", err)
	}
	if again != token {
		t.Errorf("ensureAuthToken() rotated the token: %q -> %q", token, again)
	}
}

func TestNewAgentClient_TokenFromEnv(t *testing.T) {
	t.Setenv(config.EnvDataDir, t.TempDir())
	t.Setenv(config.EnvPort, "9911")
	t.Setenv(TokenEnv, "env-token")

	client, err := newAgentClient(context.Background())
	if err != nil {
		t.Fatalf("newAgentClient() error = %v", err)
	}
	if client.token != "env-token" {
		t.Errorf("token = %q, want env-token", client.token)
	}
	if client.baseURL != "http://127.0.0.1:9911" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
}

func TestAgentClientDo(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/commands/quick-add-clip":
			api.WriteJSON(w, http.StatusAccepted, api.CommandAcceptedResponse{Seq: 7, Tag: "quick-add-clip"})
		default:
			api.WriteError(w, http.StatusServiceUnavailable, "command queue is full", "QUEUE_FULL")
		}
	}))
	defer srv.Close()

	client := &agentClient{baseURL: srv.URL, token: "tok", httpClient: srv.Client()}

	var resp api.CommandAcceptedResponse
	if err := client.do(context.Background(), http.MethodPost, "/commands/quick-add-clip", &resp); err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/commands/quick-add-clip" || resp.Seq != 7 {
		t.Errorf("path = %q, resp = %+v", gotPath, resp)
	}

	err := client.do(context.Background(), http.MethodPost, "/commands/export-clips", nil)
	if err == nil || !strings.Contains(err.Error(), "command queue is full") {
		t.Errorf("do() error = %v, want the agent's message", err)
	}
}

func TestAgentClientDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := &agentClient{baseURL: url, token: "tok", httpClient: http.DefaultClient}
	err := client.do(context.Background(), http.MethodGet, "/status", nil)
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("do() error = %v, want not reachable", err)
	}
}

func TestPrintStatus(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printStatus(&buf, api.StatusResponse{
		SessionID: "sess-9",
		Draft:     ledger.Draft{Start: "00:02:00"},
		Clips: []api.ClipResponse{
			{Ordinal: 1, StartTime: "00:00:01", EndTime: "00:00:04", Name: "trip_1"},
			{Ordinal: 2, StartTime: "00:01:00", EndTime: "00:01:10", Name: "trip_2_intro"},
		},
		Notification: &api.NotificationStatus{Text: "Clip added: trip_2_intro", Visible: true},
	})

	out := buf.String()
	for _, want := range []string{"Session sess-9", "2 clips", "trip_2_intro", "00:01:10", "draft: 00:02:00 - -", "Clip added"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStatus_NoSession(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printStatus(&buf, api.StatusResponse{})
	if !strings.Contains(buf.String(), "no active session") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintCommands(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printCommands(&buf, []api.CommandResponse{
		{Seq: 3, Tag: "quick-add-clip", Origin: "hotkey", State: "REJECTED", Error: "please set both start and end times"},
		{Seq: 2, Tag: "get-end-time", Origin: "menu", State: "APPLIED"},
	})

	out := buf.String()
	for _, want := range []string{"quick-add-clip", "REJECTED", "hotkey", "get-end-time", "APPLIED"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printCommands(&buf, nil)
	if !strings.Contains(buf.String(), "no commands yet") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTagNames(t *testing.T) {
	names := tagNames()
	if len(names) != len(dispatch.Tags) {
		t.Fatalf("tagNames() = %d names, want %d", len(names), len(dispatch.Tags))
	}
	for _, n := range names {
		if _, err := dispatch.ParseTag(n); err != nil {
			t.Errorf("ParseTag(%q) error = %v", n, err)
		}
	}
}
