package backend

// envelope is the common {success, error} wrapper every endpoint returns.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type newSessionResponse struct {
	envelope
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	envelope
	Data SessionData `json:"data"`
}

// SessionData is the backend's authoritative copy of a session.
type SessionData struct {
	SessionID    string       `json:"session_id"`
	Clips        []ClipRecord `json:"clips"`
	CreatedAt    string       `json:"created_at,omitempty"`
	LastModified string       `json:"last_modified,omitempty"`
}

// ClipRecord is one clip as stored by the backend. Path is the media
// file the player had open when the clip was added.
type ClipRecord struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CustomName string `json:"custom_name"`
	Path       string `json:"path,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// NewClip is the body of POST /api/clips/{id}.
type NewClip struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CustomName string `json:"custom_name"`
}

type timestampResponse struct {
	envelope
	Data Timestamp `json:"data"`
}

// Timestamp is the external player's current position.
type Timestamp struct {
	FileName        string `json:"file_name,omitempty"`
	CurrentPosition string `json:"current_position"`
	Timestamp       string `json:"timestamp,omitempty"`
}

type exportRequest struct {
	OutputPath string `json:"output_path"`
}

type exportResponse struct {
	envelope
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
}

// Artifact describes an exported clip list on the backend's disk. It is
// the input to ClipVideos.
type Artifact struct {
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
}

type clipVideosRequest struct {
	JSONFile        string `json:"json_file"`
	OutputDirectory string `json:"output_directory"`
}

type autoSavesResponse struct {
	envelope
	Data []AutoSave `json:"data"`
}

// AutoSave is one auto-saved session file known to the backend.
type AutoSave struct {
	FilePath     string `json:"file_path"`
	Filename     string `json:"filename"`
	SessionID    string `json:"session_id"`
	ClipsCount   int    `json:"clips_count"`
	LastModified string `json:"last_modified"`
	CreatedAt    string `json:"created_at"`
}
