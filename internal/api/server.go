// Package api serves the local control API: session status, command
// submission, clip edits, settings and the command journal. It listens on
// the loopback interface only.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/notify"
	"github.com/clipmarker/clipmarker-agent/internal/session"
	"github.com/clipmarker/clipmarker-agent/internal/settings"
)

// Controller is the session surface the API reads and edits through.
type Controller interface {
	Snapshot() session.Snapshot
	DeleteClip(ctx context.Context, ordinal int) error
	RenameClip(ctx context.Context, ordinal int, newName string) error
	ListAutoSaves(ctx context.Context) ([]backend.AutoSave, error)
	OpenAutoSave(ctx context.Context, filename string) error
}

// Dispatcher queues work for the session goroutine.
type Dispatcher interface {
	Submit(tag dispatch.Tag, origin dispatch.Origin) (int64, <-chan dispatch.Result, error)
	Do(ctx context.Context, name string, origin dispatch.Origin, fn func(ctx context.Context) error) error
	Depth() int
}

// SettingsStore reads and updates persisted preferences.
type SettingsStore interface {
	Values() settings.Values
	Update(ctx context.Context, p settings.Patch) (settings.Values, error)
}

// Notifications exposes the current status message.
type Notifications interface {
	Current() notify.Message
}

// Repository holds the API token and the command journal.
type Repository interface {
	GetConfig(ctx context.Context, key string) (string, error)
	ListCommands(ctx context.Context, limit int) ([]*dispatch.Command, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port          int
	Controller    Controller
	Dispatcher    Dispatcher
	Settings      SettingsStore
	Notifications Notifications
	Repository    Repository
	Logger        *slog.Logger
	StartTime     time.Time
	Version       string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
