package api

import (
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/ledger"
	"github.com/clipmarker/clipmarker-agent/internal/notify"
	"github.com/clipmarker/clipmarker-agent/internal/session"
	"github.com/clipmarker/clipmarker-agent/internal/settings"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	SessionID    string              `json:"session_id"`
	State        session.State       `json:"state"`
	Draft        ledger.Draft        `json:"draft"`
	CanCommit    bool                `json:"can_commit"`
	Clips        []ClipResponse      `json:"clips"`
	Notification *NotificationStatus `json:"notification,omitempty"`
	Settings     settings.Values     `json:"settings"`
	QueueDepth   int                 `json:"queue_depth"`
}

type NotificationStatus struct {
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
	PostedAt string `json:"posted_at"`
}

type ClipResponse struct {
	Ordinal   int    `json:"ordinal"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Name      string `json:"custom_name"`
	Path      string `json:"path,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CommandAcceptedResponse struct {
	Seq int64  `json:"seq"`
	Tag string `json:"tag"`
}

type CommandResponse struct {
	Seq        int64  `json:"seq"`
	Tag        string `json:"tag"`
	Origin     string `json:"origin"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
	ReceivedAt string `json:"received_at"`
	UpdatedAt  string `json:"updated_at"`
}

type CommandsResponse struct {
	Commands []CommandResponse `json:"commands"`
}

type RenameClipRequest struct {
	Name string `json:"name"`
}

type UpdateSettingsRequest struct {
	Basename     *string `json:"basename,omitempty"`
	OutputFolder *string `json:"output_folder,omitempty"`
	DarkMode     *bool   `json:"dark_mode,omitempty"`
}

type AutoSaveResponse struct {
	Filename     string `json:"filename"`
	FilePath     string `json:"file_path"`
	SessionID    string `json:"session_id"`
	ClipsCount   int    `json:"clips_count"`
	LastModified string `json:"last_modified"`
	CreatedAt    string `json:"created_at"`
}

type AutoSavesResponse struct {
	AutoSaves []AutoSaveResponse `json:"autosaves"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c ledger.Clip) ClipResponse {
	resp := ClipResponse{
		Ordinal:   c.Ordinal,
		StartTime: c.Start,
		EndTime:   c.End,
		Name:      c.Name,
		Path:      c.Path,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func CommandToResponse(c *dispatch.Command) CommandResponse {
	return CommandResponse{
		Seq:        c.Seq,
		Tag:        c.Tag,
		Origin:     string(c.Origin),
		State:      string(c.State),
		Error:      c.Error,
		ReceivedAt: c.ReceivedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func NotificationToResponse(m notify.Message) *NotificationStatus {
	if m.Text == "" {
		return nil
	}
	return &NotificationStatus{
		Text:     m.Text,
		Visible:  m.Visible,
		PostedAt: m.PostedAt.Format(time.RFC3339),
	}
}
