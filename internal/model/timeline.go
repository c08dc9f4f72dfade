package model

import "github.com/framecut/api/internal/timeline"

// Position is a 2D clip offset in canvas pixels
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TimelineResponse is the wire form of a timeline
type TimelineResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Duration float64         `json:"duration"`
	FPS      int             `json:"fps"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Tracks   []TrackResponse `json:"tracks"`
}

// TrackResponse is the wire form of a track
type TrackResponse struct {
	ID         string         `json:"id"`
	TimelineID string         `json:"timeline_id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Order      int            `json:"order"`
	Muted      bool           `json:"muted"`
	Clips      []ClipResponse `json:"clips"`
}

// ClipResponse is the wire form of a clip
type ClipResponse struct {
	ID          string   `json:"id"`
	TrackID     string   `json:"track_id"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	AssetType   string   `json:"asset_type"`
	AssetURL    string   `json:"asset_url,omitempty"`
	TextContent string   `json:"text_content,omitempty"`
	Position    Position `json:"position"`
	Scale       float64  `json:"scale"`
	Opacity     float64  `json:"opacity"`
	Transition  string   `json:"transition"`
}

// TimelineListResponse wraps a page of timelines
type TimelineListResponse struct {
	Timelines []TimelineResponse `json:"timelines"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// CreateTimelineRequest represents the request to create a timeline
type CreateTimelineRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Duration float64 `json:"duration" validate:"gte=0,lte=86400"`
	FPS      int     `json:"fps" validate:"required,min=1,max=120"`
	Width    int     `json:"width" validate:"required,min=16,max=7680"`
	Height   int     `json:"height" validate:"required,min=16,max=4320"`
}

// UpdateTimelineRequest carries the timeline fields to change
type UpdateTimelineRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Duration *float64 `json:"duration" validate:"omitempty,gte=0,lte=86400"`
	FPS      *int     `json:"fps" validate:"omitempty,min=1,max=120"`
	Width    *int     `json:"width" validate:"omitempty,min=16,max=7680"`
	Height   *int     `json:"height" validate:"omitempty,min=16,max=4320"`
}

// CreateTrackRequest represents the request to add a track to a timeline
type CreateTrackRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Kind  string `json:"kind" validate:"required,oneof=video audio text"`
	Order int    `json:"order"`
	Muted bool   `json:"muted"`
}

// UpdateTrackRequest carries the track fields to change. The kind of a
// track is fixed at creation.
type UpdateTrackRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Order *int    `json:"order"`
	Muted *bool   `json:"muted"`
}

// CreateClipRequest represents the request to add a clip to a track
type CreateClipRequest struct {
	StartTime   float64   `json:"start_time" validate:"gte=0"`
	EndTime     float64   `json:"end_time" validate:"gtfield=StartTime"`
	AssetType   string    `json:"asset_type" validate:"required,oneof=video audio text image"`
	AssetURL    string    `json:"asset_url" validate:"required_unless=AssetType text,max=2048"`
	TextContent string    `json:"text_content" validate:"required_if=AssetType text,max=4096"`
	Position    *Position `json:"position"`
	Scale       *float64  `json:"scale" validate:"omitempty,gt=0,lte=10"`
	Opacity     *float64  `json:"opacity" validate:"omitempty,gte=0,lte=100"`
	Transition  string    `json:"transition" validate:"omitempty,oneof=none fade slide zoom"`
}

// UpdateClipRequest carries the clip fields to change. Bounds are checked
// again after merging with the stored clip.
type UpdateClipRequest struct {
	StartTime   *float64  `json:"start_time" validate:"omitempty,gte=0"`
	EndTime     *float64  `json:"end_time" validate:"omitempty,gt=0"`
	AssetURL    *string   `json:"asset_url" validate:"omitempty,max=2048"`
	TextContent *string   `json:"text_content" validate:"omitempty,max=4096"`
	Position    *Position `json:"position"`
	Scale       *float64  `json:"scale" validate:"omitempty,gt=0,lte=10"`
	Opacity     *float64  `json:"opacity" validate:"omitempty,gte=0,lte=100"`
	Transition  *string   `json:"transition" validate:"omitempty,oneof=none fade slide zoom"`
}

// NewTimelineResponse converts a timeline snapshot to its wire form
func NewTimelineResponse(t *timeline.Timeline) TimelineResponse {
	resp := TimelineResponse{
		ID:       t.ID,
		Name:     t.Name,
		Duration: t.Duration,
		FPS:      t.FPS,
		Width:    t.Width,
		Height:   t.Height,
		Tracks:   make([]TrackResponse, 0, len(t.Tracks)),
	}
	for i := range t.Tracks {
		resp.Tracks = append(resp.Tracks, NewTrackResponse(&t.Tracks[i]))
	}
	return resp
}

// NewTrackResponse converts a track to its wire form
func NewTrackResponse(t *timeline.Track) TrackResponse {
	resp := TrackResponse{
		ID:         t.ID,
		TimelineID: t.TimelineID,
		Name:       t.Name,
		Kind:       string(t.Kind),
		Order:      t.Order,
		Muted:      t.Muted,
		Clips:      make([]ClipResponse, 0, len(t.Clips)),
	}
	for i := range t.Clips {
		resp.Clips = append(resp.Clips, NewClipResponse(&t.Clips[i]))
	}
	return resp
}

// NewClipResponse converts a clip to its wire form with defaults applied
func NewClipResponse(c *timeline.Clip) ClipResponse {
	return ClipResponse{
		ID:          c.ID,
		TrackID:     c.TrackID,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		AssetType:   string(c.AssetType),
		AssetURL:    c.AssetURL,
		TextContent: c.TextContent,
		Position:    Position{X: c.Position.X, Y: c.Position.Y},
		Scale:       c.EffectiveScale(),
		Opacity:     c.EffectiveOpacity(),
		Transition:  string(c.EffectiveTransition()),
	}
}
