// Package ui runs the system tray: one menu entry per command, a status
// line mirroring the latest notification and the dark-mode toggle.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/notify"
	"github.com/clipmarker/clipmarker-agent/internal/session"
)

// Submitter queues a command.
type Submitter interface {
	Submit(tag dispatch.Tag, origin dispatch.Origin) (int64, <-chan dispatch.Result, error)
}

// StatusSource reports the session state shown in the menu header.
type StatusSource interface {
	Snapshot() session.Snapshot
}

// Notifications delivers status messages as they change.
type Notifications interface {
	OnChange(fn func(notify.Message))
}

// DarkMode reads and flips the persisted theme preference.
type DarkMode interface {
	DarkMode() bool
	ToggleDarkMode(ctx context.Context) (bool, error)
}

type menuEntry struct {
	title   string
	tooltip string
	tag     dispatch.Tag
}

// menuEntries is the command section of the menu, grouped by separators
// where group changes.
var menuEntries = []struct {
	group   int
	entries []menuEntry
}{
	{0, []menuEntry{
		{"New Session", "Start a new clipping session", dispatch.TagNewSession},
	}},
	{1, []menuEntry{
		{"Set Start Time", "Capture the player position as clip start", dispatch.TagStartTime},
		{"Set End Time", "Capture the player position as clip end", dispatch.TagEndTime},
		{"Add Clip", "Add the clip with a generated name", dispatch.TagQuickAdd},
		{"Name and Add Clip...", "Add the clip with a custom name", dispatch.TagNameClip},
	}},
	{2, []menuEntry{
		{"Export Clips", "Write the clip list to the output folder", dispatch.TagExportClips},
		{"Save Project", "Save the session to the output folder", dispatch.TagSaveProject},
		{"Clip Videos", "Export and cut the video clips", dispatch.TagClipVideos},
		{"Export EDL", "Write an edit decision list", dispatch.TagExportEDL},
	}},
}

type Tray struct {
	submitter Submitter
	status    StatusSource
	notes     Notifications
	theme     DarkMode
	logger    *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem
	darkItem   *systray.MenuItem

	mu    sync.Mutex
	ready bool

	onQuit func()
}

type TrayConfig struct {
	Submitter     Submitter
	Status        StatusSource
	Notifications Notifications
	DarkMode      DarkMode
	Logger        *slog.Logger
	OnQuit        func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		submitter: cfg.Submitter,
		status:    cfg.Status,
		notes:     cfg.Notifications,
		theme:     cfg.DarkMode,
		logger:    cfg.Logger,
		onQuit:    cfg.OnQuit,
	}
}

// Run blocks on the tray event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes(t.theme != nil && t.theme.DarkMode()))
	systray.SetTitle("ClipMarker")
	systray.SetTooltip("ClipMarker Agent")

	t.statusItem = systray.AddMenuItem(statusTitle(notify.Message{}), "Latest status")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem(clipsTitle(session.Snapshot{}), "Clips in this session")
	t.clipsItem.Disable()

	for _, g := range menuEntries {
		systray.AddSeparator()
		for _, e := range g.entries {
			item := systray.AddMenuItem(e.title, e.tooltip)
			go t.forward(item, e.tag)
		}
	}

	systray.AddSeparator()

	t.darkItem = systray.AddMenuItem("Dark Mode", "Toggle dark mode")
	if t.theme != nil && t.theme.DarkMode() {
		t.darkItem.Check()
	}

	quitItem := systray.AddMenuItem("Quit", "Quit ClipMarker Agent")

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()

	if t.notes != nil {
		t.notes.OnChange(t.refresh)
	}
	t.refresh(notify.Message{})

	go func() {
		for {
			select {
			case <-t.darkItem.ClickedCh:
				t.toggleDarkMode()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
	t.logger.Info("system tray exiting")
}

func (t *Tray) forward(item *systray.MenuItem, tag dispatch.Tag) {
	for range item.ClickedCh {
		if _, _, err := t.submitter.Submit(tag, dispatch.OriginMenu); err != nil {
			t.logger.Warn("menu command dropped", "command", tag, "error", err)
		}
	}
}

// refresh updates the header items. It runs on the notifier's goroutine.
func (t *Tray) refresh(msg notify.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ready {
		return
	}
	t.statusItem.SetTitle(statusTitle(msg))
	if t.status != nil {
		t.clipsItem.SetTitle(clipsTitle(t.status.Snapshot()))
	}
}

func (t *Tray) toggleDarkMode() {
	if t.theme == nil {
		return
	}
	on, err := t.theme.ToggleDarkMode(context.Background())
	if err != nil {
		t.logger.Error("failed to toggle dark mode", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if on {
		t.darkItem.Check()
	} else {
		t.darkItem.Uncheck()
	}
	systray.SetIcon(iconBytes(on))
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusTitle(msg notify.Message) string {
	if !msg.Visible || msg.Text == "" {
		return "Status: Ready"
	}
	return "Status: " + msg.Text
}

func clipsTitle(snap session.Snapshot) string {
	if snap.State != session.StateActive {
		return "No active session"
	}
	switch n := len(snap.Clips); n {
	case 1:
		return "1 clip"
	default:
		return fmt.Sprintf("%d clips", n)
	}
}
