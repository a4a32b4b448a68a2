// Package backend talks to the clip service that owns sessions, reads the
// external player's position and runs exports and trims.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Client is the backend surface the session controller depends on.
type Client interface {
	Health(ctx context.Context) error
	NewSession(ctx context.Context) (string, error)
	GetSession(ctx context.Context, sessionID string) (*SessionData, error)
	CurrentTimestamp(ctx context.Context) (*Timestamp, error)
	AddClip(ctx context.Context, sessionID string, clip NewClip, token string) error
	UpdateClip(ctx context.Context, sessionID string, index int, clip ClipRecord) error
	DeleteClip(ctx context.Context, sessionID string, index int) error
	Export(ctx context.Context, sessionID, outputPath string) (*Artifact, error)
	ClipVideos(ctx context.Context, jsonFile, outputDir string) error
	ListAutoSaves(ctx context.Context) ([]AutoSave, error)
	LoadAutoSave(ctx context.Context, filename string) (*SessionData, error)
}

// Error is any failed backend call: transport failure, non-2xx status or
// a {success:false} envelope.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the call gave up waiting for the backend.
func (e *Error) IsTimeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
