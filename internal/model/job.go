package model

import "time"

// Job represents a background job in the system
type Job struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	TimelineID  string        `json:"timeline_id"`
	UserID      string        `json:"user_id,omitempty"`
	Status      JobStatus     `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"current_step,omitempty"`
	Error       *string       `json:"error,omitempty"`
	Options     RenderOptions `json:"options"`
	OutputURL   string        `json:"output_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	RetryCount  int           `json:"retry_count"`
}

// Job types
const (
	JobTypeRender = "render"
)

// RenderJobPayload is the asynq task body for a render job
type RenderJobPayload struct {
	JobID      string        `json:"job_id"`
	TimelineID string        `json:"timeline_id"`
	Options    RenderOptions `json:"options"`
}
