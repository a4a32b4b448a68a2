// Package watcher reports changes to a single file by polling its size and
// modification time. The agent uses it to reload the hotkey bindings file.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

// DefaultInterval is how often the file is checked when none is given.
const DefaultInterval = 2 * time.Second

type Watcher interface {
	Watch(ctx context.Context, path string) error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

// PollWatcher polls one path at a fixed interval.
type PollWatcher struct {
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	callback func(path string, event EventType)
}

func NewPollWatcher(interval time.Duration, logger *slog.Logger) *PollWatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &PollWatcher{
		interval: interval,
		logger:   logging.WithComponent(logger, "watcher"),
	}
}

func (w *PollWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch blocks until ctx is done, calling the OnChange callback whenever the
// file appears, changes or disappears. The state at call time is the
// baseline and is not reported.
func (w *PollWatcher) Watch(ctx context.Context, path string) error {
	last, err := stat(path)
	if err != nil {
		return err
	}

	w.logger.Debug("watching file", "path", logging.SanitizePath(path), "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur, err := stat(path)
			if err != nil {
				w.logger.Warn("failed to stat watched file", "path", logging.SanitizePath(path), "error", err)
				continue
			}
			if ev, changed := diff(last, cur); changed {
				last = cur
				w.emit(path, ev)
			}
		}
	}
}

func (w *PollWatcher) emit(path string, ev EventType) {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	w.logger.Info("watched file changed", "path", logging.SanitizePath(path), "event", ev.String())
	if cb != nil {
		cb(path, ev)
	}
}

func stat(path string) (fileState, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileState{}, nil
	}
	if err != nil {
		return fileState{}, err
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}, nil
}

func diff(prev, cur fileState) (EventType, bool) {
	switch {
	case !prev.exists && cur.exists:
		return EventCreate, true
	case prev.exists && !cur.exists:
		return EventDelete, true
	case cur.exists && (cur.size != prev.size || !cur.modTime.Equal(prev.modTime)):
		return EventModify, true
	default:
		return 0, false
	}
}
