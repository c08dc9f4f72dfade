package model

import "github.com/framecut/api/internal/timeline"

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
	WSMessageTypeFrame    = "frame"
)

// Preview commands sent by the client
const (
	PreviewCommandPlay         = "play"
	PreviewCommandPause        = "pause"
	PreviewCommandSeek         = "seek"
	PreviewCommandSkipForward  = "skip_forward"
	PreviewCommandSkipBackward = "skip_backward"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	Progress    int       `json:"progress"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"current_step,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"job_id"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"job_id,omitempty"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PreviewCommand is a transport command from a preview client. Frame is
// only read for seek.
type PreviewCommand struct {
	Type  string `json:"type"`
	Frame int    `json:"frame"`
}

// PreviewFrameMessage pushes the composited frame under the cursor
type PreviewFrameMessage struct {
	Type        string                 `json:"type"`
	State       timeline.PlaybackState `json:"state"`
	TotalFrames int                    `json:"total_frames"`
	FPS         int                    `json:"fps"`
	Frame       timeline.Frame         `json:"frame"`
}
