package session

import (
	"errors"
	"fmt"
)

// Local precondition failures. The operation is aborted and no state changes.
var (
	ErrIncompleteDraft     = errors.New("draft needs both start and end time")
	ErrEmptyLedger         = errors.New("no clips in session")
	ErrMissingOutputFolder = errors.New("no output folder configured")
	ErrNoSession           = errors.New("no active session")
	ErrNoSuchClip          = errors.New("no such clip")
	ErrEmptyName           = errors.New("clip name is required")
	ErrNoArtifact          = errors.New("no export artifact")
)

// TimestampFetchError means the player position could not be read.
type TimestampFetchError struct {
	Field string
	Err   error
}

func (e *TimestampFetchError) Error() string {
	return fmt.Sprintf("fetch %s time: %v", e.Field, e.Err)
}

func (e *TimestampFetchError) Unwrap() error {
	return e.Err
}

// SessionCreationError means the backend did not hand out a session id.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("create session: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error {
	return e.Err
}
