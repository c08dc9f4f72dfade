package model

import "time"

// RenderOptions controls the encoded output
type RenderOptions struct {
	Resolution Resolution `json:"resolution" validate:"omitempty,oneof=480p 720p 1080p"`
	Format     Format     `json:"format" validate:"omitempty,oneof=mp4 webm gif"`
	Quality    Quality    `json:"quality" validate:"omitempty,oneof=low medium high"`
}

// WithDefaults fills unset options with 720p medium mp4
func (o RenderOptions) WithDefaults() RenderOptions {
	if o.Resolution == "" {
		o.Resolution = Resolution720p
	}
	if o.Format == "" {
		o.Format = FormatMP4
	}
	if o.Quality == "" {
		o.Quality = QualityMedium
	}
	return o
}

// RenderStartRequest represents the request to render a timeline
type RenderStartRequest struct {
	TimelineID string        `json:"timeline_id" validate:"required"`
	Options    RenderOptions `json:"options"`
}

// RenderStartResponse represents the response when starting a render job
type RenderStartResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RenderStatusResponse represents the current state of a render job
type RenderStatusResponse struct {
	JobID       string        `json:"job_id"`
	TimelineID  string        `json:"timeline_id"`
	Status      JobStatus     `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"current_step,omitempty"`
	Options     RenderOptions `json:"options"`
	OutputURL   string        `json:"output_url,omitempty"`
	Error       *string       `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// RenderCancelResponse represents the response when canceling a render job
type RenderCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
}

// RenderResult is broadcast when a render job finishes
type RenderResult struct {
	OutputURL string `json:"output_url"`
	Frames    int    `json:"frames"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    Format `json:"format"`
	Poster    bool   `json:"poster,omitempty"`
}
