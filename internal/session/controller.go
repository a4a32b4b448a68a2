// Package session owns the active clip-marking session: the draft range,
// the ledger mirror of the backend's clips, and every operation that
// changes them.
//
// Mutating operations run one at a time. The dispatcher already feeds them
// from a single goroutine; the controller additionally holds an operation
// lock so a direct caller cannot interleave with it. Reads go through
// Snapshot and never wait on a backend call.
//
// Every failure is posted to the notifier and leaves the in-memory state as
// it was before the call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/export"
	"github.com/clipmarker/clipmarker-agent/internal/ledger"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
	"github.com/clipmarker/clipmarker-agent/internal/timecode"
)

const maxNameLen = 100

// State is the session lifecycle state.
type State string

const (
	StateNone   State = "none"
	StateActive State = "active"
)

// Settings supplies the basename used to synthesize clip names.
type Settings interface {
	Basename() string
}

// Notifier receives short user-facing status messages.
type Notifier interface {
	Post(text string)
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	SessionID string        `json:"session_id"`
	State     State         `json:"state"`
	Draft     ledger.Draft  `json:"draft"`
	Clips     []ledger.Clip `json:"clips"`
}

// Controller is the single owner of session, draft and ledger state.
type Controller struct {
	backend  backend.Client
	settings Settings
	notifier Notifier
	logger   *slog.Logger
	newToken func() string

	op sync.Mutex

	mu        sync.RWMutex
	sessionID string
	state     State
	draft     ledger.Draft
	ledger    *ledger.Ledger
}

func NewController(client backend.Client, settings Settings, notifier Notifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		backend:  client,
		settings: settings,
		notifier: notifier,
		logger:   logging.WithComponent(logger, "session"),
		newToken: uuid.NewString,
		state:    StateNone,
		ledger:   ledger.New(),
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		SessionID: c.sessionID,
		State:     c.state,
		Draft:     c.draft,
		Clips:     c.ledger.Clips(),
	}
}

// CanCommit reports whether the draft has both ends set.
func (c *Controller) CanCommit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft.Complete()
}

// NewSession asks the backend for a fresh session and clears the draft and
// ledger. On failure the previous session id is dropped and nothing else
// changes.
func (c *Controller) NewSession(ctx context.Context) (string, error) {
	c.op.Lock()
	defer c.op.Unlock()

	id, err := c.backend.NewSession(ctx)
	if err != nil {
		c.mu.Lock()
		c.sessionID = ""
		c.state = StateNone
		c.mu.Unlock()
		return "", c.fail("Failed to create session", &SessionCreationError{Err: err})
	}

	c.mu.Lock()
	c.sessionID = id
	c.state = StateActive
	c.draft.Clear()
	c.ledger.Reset()
	c.mu.Unlock()

	logging.WithSessionID(c.logger, id).Info("session created")
	c.notify("New session created")
	return id, nil
}

// CaptureStart reads the player position into the draft start.
func (c *Controller) CaptureStart(ctx context.Context) (string, error) {
	c.op.Lock()
	defer c.op.Unlock()

	pos, err := c.fetchPosition(ctx, "start")
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.draft.Start = pos
	c.mu.Unlock()

	c.notify("Start time set: " + pos)
	return pos, nil
}

// CaptureEnd reads the player position into the draft end, then pushes the
// end past the start if needed. The returned value is the stored end.
func (c *Controller) CaptureEnd(ctx context.Context) (string, error) {
	c.op.Lock()
	defer c.op.Unlock()

	pos, err := c.fetchPosition(ctx, "end")
	if err != nil {
		return "", err
	}

	c.mu.RLock()
	start := c.draft.Start
	c.mu.RUnlock()

	end, adjusted := pos, false
	if start != "" {
		if end, adjusted, err = timecode.Repair(start, pos); err != nil {
			return "", c.fail("Invalid time format", err)
		}
	}

	c.mu.Lock()
	c.draft.End = end
	c.mu.Unlock()

	if !adjusted {
		c.notify("End time set: " + pos)
		return pos, nil
	}
	c.logger.Info("end time adjusted", "start", start, "end", pos, "adjusted", end)
	c.notify("End time adjusted to " + end)
	return end, nil
}

func (c *Controller) fetchPosition(ctx context.Context, field string) (string, error) {
	ts, err := c.backend.CurrentTimestamp(ctx)
	if err != nil {
		return "", c.fail("Failed to get timestamp", &TimestampFetchError{Field: field, Err: err})
	}
	if _, err := timecode.Parse(ts.CurrentPosition); err != nil {
		return "", c.fail("Invalid time format", &TimestampFetchError{Field: field, Err: err})
	}
	return ts.CurrentPosition, nil
}

// CommitDraft sends the draft to the backend as a new clip named from the
// basename and the next local ordinal. On success the ledger is reloaded
// and the draft cleared; on failure the draft stays for a retry.
func (c *Controller) CommitDraft(ctx context.Context, customName string) (string, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	draft := c.draft
	sessionID := c.sessionID
	next := c.ledger.Len() + 1
	c.mu.RUnlock()

	if !draft.Complete() {
		return "", c.fail("Please set both start and end times", ErrIncompleteDraft)
	}
	if sessionID == "" {
		return "", c.fail("No active session", ErrNoSession)
	}

	end, _, err := timecode.Repair(draft.Start, draft.End)
	if err != nil {
		return "", c.fail("Invalid time format", err)
	}

	custom := export.SanitizeName(customName, maxNameLen)
	name := ledger.ClipName(c.settings.Basename(), next, custom)
	token := c.newToken()

	clip := backend.NewClip{StartTime: draft.Start, EndTime: end, CustomName: name}
	if err := c.backend.AddClip(ctx, sessionID, clip, token); err != nil {
		return "", c.fail("Failed to add clip", err)
	}

	resyncErr := c.resync(ctx, sessionID)

	c.mu.Lock()
	c.draft.Clear()
	c.mu.Unlock()

	logging.WithSessionID(c.logger, sessionID).Info("clip added",
		"name", name, "start", draft.Start, "end", end, "token", token)

	if resyncErr != nil {
		return name, c.fail("Clip added but the list could not be refreshed", resyncErr)
	}
	if custom == "" {
		c.notify("Clip added: " + name)
	} else {
		c.notify("Clip added")
	}
	return name, nil
}

// DeleteClip removes the clip at ordinal on the backend and reloads.
func (c *Controller) DeleteClip(ctx context.Context, ordinal int) error {
	c.op.Lock()
	defer c.op.Unlock()

	sessionID, _, err := c.target(ordinal)
	if err != nil {
		return c.fail("Failed to delete clip", err)
	}

	if err := c.backend.DeleteClip(ctx, sessionID, ordinal-1); err != nil {
		return c.fail("Failed to delete clip", err)
	}
	if err := c.resync(ctx, sessionID); err != nil {
		return c.fail("Failed to refresh clips", err)
	}

	logging.WithSessionID(c.logger, sessionID).Info("clip deleted", "ordinal", ordinal)
	c.notify("Clip deleted")
	return nil
}

// RenameClip replaces the display name of the clip at ordinal. The rest of
// the backend record (times, path, created_at) is sent back unchanged.
func (c *Controller) RenameClip(ctx context.Context, ordinal int, newName string) error {
	c.op.Lock()
	defer c.op.Unlock()

	name := export.SanitizeName(newName, maxNameLen)
	if name == "" {
		return c.fail("Failed to update clip", ErrEmptyName)
	}

	sessionID, clip, err := c.target(ordinal)
	if err != nil {
		return c.fail("Failed to update clip", err)
	}

	rec := backend.ClipRecord{
		StartTime:  clip.Start,
		EndTime:    clip.End,
		CustomName: name,
		Path:       clip.Path,
		CreatedAt:  clip.CreatedRaw,
	}
	if err := c.backend.UpdateClip(ctx, sessionID, ordinal-1, rec); err != nil {
		return c.fail("Failed to update clip", err)
	}
	if err := c.resync(ctx, sessionID); err != nil {
		return c.fail("Failed to refresh clips", err)
	}

	logging.WithSessionID(c.logger, sessionID).Info("clip renamed", "ordinal", ordinal, "name", name)
	c.notify("Clip updated")
	return nil
}

// target resolves the session and clip addressed by ordinal.
func (c *Controller) target(ordinal int) (string, ledger.Clip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sessionID == "" {
		return "", ledger.Clip{}, ErrNoSession
	}
	clip, err := c.ledger.At(ordinal)
	if err != nil {
		return "", ledger.Clip{}, fmt.Errorf("%w: %w", ErrNoSuchClip, err)
	}
	return c.sessionID, clip, nil
}

// ExportSession asks the backend to write the session's clip list into
// outputFolder ("." when empty) and returns the artifact it wrote.
func (c *Controller) ExportSession(ctx context.Context, outputFolder string) (*backend.Artifact, error) {
	c.op.Lock()
	defer c.op.Unlock()
	return c.exportSession(ctx, outputFolder)
}

func (c *Controller) exportSession(ctx context.Context, outputFolder string) (*backend.Artifact, error) {
	c.mu.RLock()
	sessionID := c.sessionID
	n := c.ledger.Len()
	c.mu.RUnlock()

	if n == 0 {
		return nil, c.fail("No clips to export", ErrEmptyLedger)
	}
	if sessionID == "" {
		return nil, c.fail("No active session", ErrNoSession)
	}
	if outputFolder == "" {
		outputFolder = "."
	}

	artifact, err := c.backend.Export(ctx, sessionID, outputFolder)
	if err != nil {
		return nil, c.fail("Export failed", err)
	}

	logging.WithSessionID(c.logger, sessionID).Info("session exported",
		"file", logging.SanitizePath(artifact.FilePath), "clips", n)
	c.notify("Clips exported: " + artifact.Filename)
	return artifact, nil
}

// ClipVideos hands an exported clip list to the backend for trimming.
func (c *Controller) ClipVideos(ctx context.Context, artifact *backend.Artifact, outputFolder string) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.clipVideos(ctx, artifact, outputFolder)
}

func (c *Controller) clipVideos(ctx context.Context, artifact *backend.Artifact, outputFolder string) error {
	if outputFolder == "" {
		return c.fail("Please select an output folder", ErrMissingOutputFolder)
	}
	if artifact == nil || artifact.FilePath == "" {
		return c.fail("Failed to start clipping", ErrNoArtifact)
	}

	if err := c.backend.ClipVideos(ctx, artifact.FilePath, outputFolder); err != nil {
		return c.fail("Failed to start clipping", err)
	}

	c.logger.Info("clipping started",
		"json_file", logging.SanitizePath(artifact.FilePath),
		"output_directory", logging.SanitizePath(outputFolder))
	c.notify("Video clipping started")
	return nil
}

// StartClipping exports the session and trims it into outputFolder.
func (c *Controller) StartClipping(ctx context.Context, outputFolder string) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	n := c.ledger.Len()
	c.mu.RUnlock()

	if n == 0 {
		return c.fail("No clips to process", ErrEmptyLedger)
	}
	if outputFolder == "" {
		return c.fail("Please select an output folder", ErrMissingOutputFolder)
	}

	artifact, err := c.exportSession(ctx, outputFolder)
	if err != nil {
		return err
	}
	return c.clipVideos(ctx, artifact, outputFolder)
}

// ExportEDL writes the ledger as <basename>.edl into outputFolder.
func (c *Controller) ExportEDL(outputFolder string) (string, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	clips := c.ledger.Clips()
	c.mu.RUnlock()

	if len(clips) == 0 {
		return "", c.fail("No clips to export", ErrEmptyLedger)
	}
	if outputFolder == "" {
		return "", c.fail("Please select an output folder", ErrMissingOutputFolder)
	}

	path, err := export.WriteEDL(outputFolder, c.settings.Basename(), clips)
	if err != nil {
		return "", c.fail("Export failed", err)
	}

	c.logger.Info("edl written", "path", logging.SanitizePath(path), "clips", len(clips))
	c.notify("EDL exported")
	return path, nil
}

// ListAutoSaves returns the backend's auto-saved sessions. It does not
// touch controller state.
func (c *Controller) ListAutoSaves(ctx context.Context) ([]backend.AutoSave, error) {
	saves, err := c.backend.ListAutoSaves(ctx)
	if err != nil {
		return nil, c.fail("Failed to load auto-saves", err)
	}
	return saves, nil
}

// OpenAutoSave restores an auto-saved session and makes it the active one.
func (c *Controller) OpenAutoSave(ctx context.Context, filename string) error {
	c.op.Lock()
	defer c.op.Unlock()

	data, err := c.backend.LoadAutoSave(ctx, filename)
	if err != nil {
		return c.fail("Failed to load session", err)
	}
	if data.SessionID == "" {
		return c.fail("Failed to load session", ErrNoSession)
	}

	c.mu.Lock()
	c.sessionID = data.SessionID
	c.state = StateActive
	c.draft.Clear()
	c.ledger.Replace(toClips(data.Clips))
	n := c.ledger.Len()
	c.mu.Unlock()

	logging.WithSessionID(c.logger, data.SessionID).Info("auto-save restored", "file", filename, "clips", n)
	c.notify(fmt.Sprintf("Session loaded (%d clips)", n))
	return nil
}

// CheckHealth probes the backend.
func (c *Controller) CheckHealth(ctx context.Context) error {
	if err := c.backend.Health(ctx); err != nil {
		return c.fail("Backend connection failed", err)
	}
	return nil
}

// resync replaces the ledger with the backend's copy of the session.
func (c *Controller) resync(ctx context.Context, sessionID string) error {
	data, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}

	c.mu.Lock()
	c.ledger.Replace(toClips(data.Clips))
	c.mu.Unlock()
	return nil
}

func (c *Controller) fail(text string, err error) error {
	attrs := []any{"error", err}
	var be *backend.Error
	if errors.As(err, &be) {
		attrs = append(attrs, "op", be.Op, "timeout", be.IsTimeout())
	}
	c.logger.Warn(text, attrs...)

	c.notify(text)
	return err
}

func (c *Controller) notify(text string) {
	if c.notifier != nil {
		c.notifier.Post(text)
	}
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func toClips(records []backend.ClipRecord) []ledger.Clip {
	clips := make([]ledger.Clip, 0, len(records))
	for _, r := range records {
		clips = append(clips, ledger.Clip{
			Start:      r.StartTime,
			End:        r.EndTime,
			Name:       r.CustomName,
			Path:       r.Path,
			CreatedAt:  parseCreatedAt(r.CreatedAt),
			CreatedRaw: r.CreatedAt,
		})
	}
	return clips
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
