package dispatch

import (
	"errors"
	"time"
)

// Tag names a command. Tags carry no payload.
type Tag string

const (
	TagStartTime   Tag = "get-start-time"
	TagEndTime     Tag = "get-end-time"
	TagNameClip    Tag = "name-clip"
	TagQuickAdd    Tag = "quick-add-clip"
	TagExportClips Tag = "export-clips"
	TagNewSession  Tag = "new-session"
	TagSaveProject Tag = "save-project"
	TagClipVideos  Tag = "clip-videos"
	TagExportEDL   Tag = "export-edl"
)

// Tags lists every known tag in menu order.
var Tags = []Tag{
	TagNewSession,
	TagStartTime,
	TagEndTime,
	TagNameClip,
	TagQuickAdd,
	TagExportClips,
	TagSaveProject,
	TagClipVideos,
	TagExportEDL,
}

// ParseTag returns the tag named by s.
func ParseTag(s string) (Tag, error) {
	for _, t := range Tags {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &UnknownCommandError{Name: s}
}

// State is where a command is in its lifecycle.
type State string

const (
	StateReceived    State = "RECEIVED"
	StateDispatching State = "DISPATCHING"
	StateApplied     State = "APPLIED"
	StateRejected    State = "REJECTED"
)

// Origin is the surface a command came from. The controller never sees it;
// it is kept for the journal and logs.
type Origin string

const (
	OriginHotkey  Origin = "hotkey"
	OriginMenu    Origin = "menu"
	OriginAPI     Origin = "api"
	OriginStartup Origin = "startup"
)

// Command is one accepted command and its current state.
type Command struct {
	Seq        int64     `json:"seq"`
	Tag        string    `json:"tag"`
	Origin     Origin    `json:"origin"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Result is the final outcome of a command.
type Result struct {
	Seq   int64
	Tag   string
	State State
	Err   error
}

var (
	ErrQueueFull = errors.New("command queue is full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// UnknownCommandError is returned for a tag the dispatcher has no route for.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "unknown command: " + e.Name
}
