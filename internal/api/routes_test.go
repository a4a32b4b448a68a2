package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/ledger"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
	"github.com/clipmarker/clipmarker-agent/internal/notify"
	"github.com/clipmarker/clipmarker-agent/internal/session"
	"github.com/clipmarker/clipmarker-agent/internal/settings"
)

const testToken = "test-token"

type fakeController struct {
	snap       session.Snapshot
	deleteErr  error
	renameErr  error
	saves      []backend.AutoSave
	savesErr   error
	openErr    error
	deleted    []int
	renamed    map[int]string
	openedFile string
}

func (c *fakeController) Snapshot() session.Snapshot { return c.snap }

func (c *fakeController) DeleteClip(ctx context.Context, ordinal int) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, ordinal)
	return nil
}

func (c *fakeController) RenameClip(ctx context.Context, ordinal int, newName string) error {
	if c.renameErr != nil {
		return c.renameErr
	}
	if c.renamed == nil {
		c.renamed = make(map[int]string)
	}
	c.renamed[ordinal] = newName
	return nil
}

func (c *fakeController) ListAutoSaves(ctx context.Context) ([]backend.AutoSave, error) {
	return c.saves, c.savesErr
}

func (c *fakeController) OpenAutoSave(ctx context.Context, filename string) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.openedFile = filename
	return nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	seq       int64
	submitErr error
	submitted []dispatch.Tag
	done      []string
	depth     int
}

func (d *fakeDispatcher) Submit(tag dispatch.Tag, origin dispatch.Origin) (int64, <-chan dispatch.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitErr != nil {
		return 0, nil, d.submitErr
	}
	d.seq++
	d.submitted = append(d.submitted, tag)
	ch := make(chan dispatch.Result, 1)
	ch <- dispatch.Result{Seq: d.seq, Tag: string(tag), State: dispatch.StateApplied}
	return d.seq, ch, nil
}

func (d *fakeDispatcher) Do(ctx context.Context, name string, origin dispatch.Origin, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	if d.submitErr != nil {
		d.mu.Unlock()
		return d.submitErr
	}
	d.done = append(d.done, name)
	d.mu.Unlock()
	return fn(ctx)
}

func (d *fakeDispatcher) Depth() int { return d.depth }

type memConfig struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memConfig) GetConfig(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memConfig) SetConfig(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

type testEnv struct {
	ctrl     *fakeController
	disp     *fakeDispatcher
	repo     *fakeRepository
	settings *settings.Store
	notes    *notify.Channel
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ctrl:     &fakeController{},
		disp:     &fakeDispatcher{},
		repo:     &fakeRepository{token: testToken},
		settings: settings.NewStore(&memConfig{}, logging.Discard()),
		notes:    notify.New(),
	}
	t.Cleanup(env.notes.Stop)

	env.router = NewRouter(ServerConfig{
		Controller:    env.ctrl,
		Dispatcher:    env.disp,
		Settings:      env.settings,
		Notifications: env.notes,
		Repository:    env.repo,
		Logger:        logging.Discard(),
		StartTime:     time.Now().Add(-5 * time.Second),
		Version:       "test",
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
	if resp.UptimeS < 5 {
		t.Errorf("uptime_s = %d, want >= 5", resp.UptimeS)
	}
}

func TestStatus_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestStatus_ReportsSession(t *testing.T) {
	env := newTestEnv(t)
	env.ctrl.snap = session.Snapshot{
		SessionID: "sess-1",
		State:     session.StateActive,
		Draft:     ledger.Draft{Start: "00:00:10", End: "00:00:20"},
		Clips: []ledger.Clip{
			{Ordinal: 1, Start: "00:00:01", End: "00:00:05", Name: "trip_1"},
			{Ordinal: 2, Start: "00:01:00", End: "00:01:30", Name: "trip_2_intro"},
		},
	}
	env.disp.depth = 3
	env.notes.PostFor("Clip added: trip_2_intro", time.Minute)

	rr := env.do(t, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "sess-1" || resp.State != session.StateActive {
		t.Errorf("session = %q/%q", resp.SessionID, resp.State)
	}
	if !resp.CanCommit {
		t.Error("can_commit = false, want true for a complete draft")
	}
	if len(resp.Clips) != 2 || resp.Clips[1].Name != "trip_2_intro" || resp.Clips[1].Ordinal != 2 {
		t.Errorf("clips = %+v", resp.Clips)
	}
	if resp.QueueDepth != 3 {
		t.Errorf("queue_depth = %d, want 3", resp.QueueDepth)
	}
	if resp.Notification == nil || resp.Notification.Text != "Clip added: trip_2_intro" || !resp.Notification.Visible {
		t.Errorf("notification = %+v", resp.Notification)
	}
	if resp.Settings.Basename != settings.DefaultBasename {
		t.Errorf("settings.basename = %q, want %q", resp.Settings.Basename, settings.DefaultBasename)
	}
}

func TestStatus_NoNotification(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/status", nil)
	body := decodeJSONBody(t, rr)
	if _, ok := body["notification"]; ok {
		t.Error("notification should be omitted when nothing was posted")
	}
	if body["can_commit"] != false {
		t.Errorf("can_commit = %v, want false", body["can_commit"])
	}
}

func TestSubmitCommand_Accepted(t *testing.T) {
	env := newTestEnv(t)

	for _, tag := range dispatch.Tags {
		rr := env.do(t, http.MethodPost, "/commands/"+string(tag), nil)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("%s: status = %d, want %d", tag, rr.Code, http.StatusAccepted)
		}
	}

	if len(env.disp.submitted) != len(dispatch.Tags) {
		t.Fatalf("submitted = %v", env.disp.submitted)
	}

	rr := env.do(t, http.MethodPost, "/commands/new-session", nil)
	var resp CommandAcceptedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tag != "new-session" || resp.Seq != int64(len(dispatch.Tags)+1) {
		t.Errorf("accepted = %+v", resp)
	}
}

func TestSubmitCommand_UnknownTag(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/commands/launch-rockets", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "UNKNOWN_COMMAND" {
		t.Errorf("code = %v, want UNKNOWN_COMMAND", body["code"])
	}
	if len(env.disp.submitted) != 0 {
		t.Errorf("submitted = %v, want none", env.disp.submitted)
	}
}

func TestSubmitCommand_QueueFull(t *testing.T) {
	env := newTestEnv(t)
	env.disp.submitErr = dispatch.ErrQueueFull

	rr := env.do(t, http.MethodPost, "/commands/get-start-time", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "QUEUE_FULL" {
		t.Errorf("code = %v, want QUEUE_FULL", body["code"])
	}
}

func TestListCommands(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.repo.commands = []*dispatch.Command{
		{Seq: 2, Tag: "quick-add-clip", Origin: dispatch.OriginHotkey, State: dispatch.StateRejected, Error: "no active session", ReceivedAt: now, UpdatedAt: now},
		{Seq: 1, Tag: "new-session", Origin: dispatch.OriginMenu, State: dispatch.StateApplied, ReceivedAt: now, UpdatedAt: now},
	}

	rr := env.do(t, http.MethodGet, "/commands?limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if env.repo.lastLimit != 10 {
		t.Errorf("limit = %d, want 10", env.repo.lastLimit)
	}

	var resp CommandsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(resp.Commands))
	}
	first := resp.Commands[0]
	if first.Seq != 2 || first.State != "REJECTED" || first.Origin != "hotkey" || first.Error != "no active session" {
		t.Errorf("commands[0] = %+v", first)
	}
}

func TestListCommands_BadLimit(t *testing.T) {
	env := newTestEnv(t)

	for _, l := range []string{"0", "-1", "abc", "501"} {
		rr := env.do(t, http.MethodGet, "/commands?limit="+l, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", l, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestListCommands_DefaultLimit(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/commands", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if env.repo.lastLimit != 50 {
		t.Errorf("limit = %d, want 50", env.repo.lastLimit)
	}
	body := decodeJSONBody(t, rr)
	if cmds, ok := body["commands"].([]interface{}); !ok || len(cmds) != 0 {
		t.Errorf("commands = %v, want empty array", body["commands"])
	}
}

func TestDeleteClip(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodDelete, "/clips/2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(env.ctrl.deleted) != 1 || env.ctrl.deleted[0] != 2 {
		t.Errorf("deleted = %v, want [2]", env.ctrl.deleted)
	}
	if len(env.disp.done) != 1 || env.disp.done[0] != "delete-clip" {
		t.Errorf("dispatched = %v, want [delete-clip]", env.disp.done)
	}
}

func TestDeleteClip_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"no such clip", fmt.Errorf("%w: ordinal 9 out of range", session.ErrNoSuchClip), http.StatusNotFound, "NOT_FOUND"},
		{"no session", session.ErrNoSession, http.StatusConflict, "NO_SESSION"},
		{"backend", &backend.Error{Op: "delete_clip", StatusCode: 500, Message: "boom"}, http.StatusBadGateway, "BACKEND_ERROR"},
		{"backend timeout", &backend.Error{Op: "delete_clip", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "BACKEND_TIMEOUT"},
		{"queue full", dispatch.ErrQueueFull, http.StatusServiceUnavailable, "QUEUE_FULL"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.ctrl.deleteErr = tc.err

			rr := env.do(t, http.MethodDelete, "/clips/9", nil)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			body := decodeJSONBody(t, rr)
			if body["code"] != tc.code {
				t.Errorf("code = %v, want %s", body["code"], tc.code)
			}
		})
	}
}

func TestDeleteClip_BadOrdinal(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodDelete, "/clips/first", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(env.disp.done) != 0 {
		t.Errorf("dispatched = %v, want none", env.disp.done)
	}
}

func TestRenameClip(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPut, "/clips/1", RenameClipRequest{Name: "sunset"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := env.ctrl.renamed[1]; got != "sunset" {
		t.Errorf("renamed[1] = %q, want sunset", got)
	}
	if env.disp.done[0] != "rename-clip" {
		t.Errorf("dispatched = %v, want [rename-clip]", env.disp.done)
	}
}

func TestRenameClip_EmptyName(t *testing.T) {
	env := newTestEnv(t)
	env.ctrl.renameErr = session.ErrEmptyName

	rr := env.do(t, http.MethodPut, "/clips/1", RenameClipRequest{Name: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRenameClip_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/clips/1", strings.NewReader(`{"title":"x"}`))
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(env.ctrl.renamed) != 0 {
		t.Errorf("renamed = %v, want none", env.ctrl.renamed)
	}
}

func TestSettings_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	rr := env.do(t, http.MethodGet, "/settings", nil)
	var got settings.Values
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Basename != settings.DefaultBasename || got.OutputFolder != "" || got.DarkMode {
		t.Fatalf("initial settings = %+v", got)
	}

	name := "road trip"
	dark := true
	rr = env.do(t, http.MethodPut, "/settings", UpdateSettingsRequest{
		Basename:     &name,
		OutputFolder: &dir,
		DarkMode:     &dark,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Basename != "road trip" || got.OutputFolder != dir || !got.DarkMode {
		t.Errorf("updated settings = %+v", got)
	}
}

func TestSettings_Invalid(t *testing.T) {
	env := newTestEnv(t)

	empty := "   "
	rr := env.do(t, http.MethodPut, "/settings", UpdateSettingsRequest{Basename: &empty})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("basename: status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	missing := t.TempDir() + "/does-not-exist"
	rr = env.do(t, http.MethodPut, "/settings", UpdateSettingsRequest{OutputFolder: &missing})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("output folder: status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	name := "holiday"
	dark := true
	rr = env.do(t, http.MethodPut, "/settings", UpdateSettingsRequest{Basename: &name, OutputFolder: &missing, DarkMode: &dark})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("mixed update: status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	if v := env.settings.Values(); v.Basename != settings.DefaultBasename || v.OutputFolder != "" || v.DarkMode {
		t.Errorf("settings changed after rejected update: %+v", v)
	}
}

func TestAutoSaves_List(t *testing.T) {
	env := newTestEnv(t)
	env.ctrl.saves = []backend.AutoSave{
		{Filename: "session_a.json", FilePath: "/saves/session_a.json", SessionID: "a", ClipsCount: 4},
	}

	rr := env.do(t, http.MethodGet, "/autosaves", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp AutoSavesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.AutoSaves) != 1 || resp.AutoSaves[0].ClipsCount != 4 || resp.AutoSaves[0].SessionID != "a" {
		t.Errorf("autosaves = %+v", resp.AutoSaves)
	}
}

func TestAutoSaves_ListBackendDown(t *testing.T) {
	env := newTestEnv(t)
	env.ctrl.savesErr = &backend.Error{Op: "list_autosaves", Err: errors.New("connection refused")}

	rr := env.do(t, http.MethodGet, "/autosaves", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestAutoSaves_Open(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/autosaves/session_a.json/open", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if env.ctrl.openedFile != "session_a.json" {
		t.Errorf("opened = %q, want session_a.json", env.ctrl.openedFile)
	}
	if env.disp.done[0] != "open-autosave" {
		t.Errorf("dispatched = %v, want [open-autosave]", env.disp.done)
	}
}

func TestRouter_RejectsRemoteClients(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}
