package repository

import (
	"time"

	"github.com/framecut/api/internal/timeline"
)

// TimelineRecord is the timelines table
type TimelineRecord struct {
	ID        string  `gorm:"primaryKey;size:36"`
	Name      string  `gorm:"size:255;not null"`
	Duration  float64 `gorm:"not null"`
	FPS       int     `gorm:"column:fps;not null"`
	Width     int     `gorm:"not null"`
	Height    int     `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Tracks []TrackRecord `gorm:"foreignKey:TimelineID;constraint:OnDelete:CASCADE"`
}

func (TimelineRecord) TableName() string { return "timelines" }

// TrackRecord is the tracks table
type TrackRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	TimelineID string `gorm:"size:36;not null;index"`
	Name       string `gorm:"size:255;not null"`
	Kind       string `gorm:"size:16;not null"`
	SortOrder  int    `gorm:"column:sort_order;not null;default:0"`
	Muted      bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Clips []ClipRecord `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
}

func (TrackRecord) TableName() string { return "tracks" }

// ClipRecord is the clips table
type ClipRecord struct {
	ID          string   `gorm:"primaryKey;size:36"`
	TrackID     string   `gorm:"size:36;not null;index"`
	StartTime   float64  `gorm:"not null;index"`
	EndTime     float64  `gorm:"not null"`
	AssetType   string   `gorm:"size:16;not null"`
	AssetURL    string   `gorm:"column:asset_url;size:2048"`
	TextContent string   `gorm:"type:text"`
	PositionX   float64  `gorm:"not null;default:0"`
	PositionY   float64  `gorm:"not null;default:0"`
	Scale       *float64
	Opacity     *float64
	Transition  string   `gorm:"size:16"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ClipRecord) TableName() string { return "clips" }

func (r *TimelineRecord) toDomain() *timeline.Timeline {
	t := &timeline.Timeline{
		ID:       r.ID,
		Name:     r.Name,
		Duration: r.Duration,
		FPS:      r.FPS,
		Width:    r.Width,
		Height:   r.Height,
		Tracks:   make([]timeline.Track, 0, len(r.Tracks)),
	}
	for i := range r.Tracks {
		t.Tracks = append(t.Tracks, *r.Tracks[i].toDomain())
	}
	return t
}

func (r *TrackRecord) toDomain() *timeline.Track {
	t := &timeline.Track{
		ID:         r.ID,
		TimelineID: r.TimelineID,
		Name:       r.Name,
		Kind:       timeline.TrackKind(r.Kind),
		Order:      r.SortOrder,
		Muted:      r.Muted,
		Clips:      make([]timeline.Clip, 0, len(r.Clips)),
	}
	for i := range r.Clips {
		t.Clips = append(t.Clips, *r.Clips[i].toDomain())
	}
	return t
}

func (r *ClipRecord) toDomain() *timeline.Clip {
	return &timeline.Clip{
		ID:          r.ID,
		TrackID:     r.TrackID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		AssetType:   timeline.AssetType(r.AssetType),
		AssetURL:    r.AssetURL,
		TextContent: r.TextContent,
		Position:    timeline.Point{X: r.PositionX, Y: r.PositionY},
		Scale:       r.Scale,
		Opacity:     r.Opacity,
		Transition:  timeline.TransitionKind(r.Transition),
	}
}

func timelineRecord(t *timeline.Timeline) *TimelineRecord {
	return &TimelineRecord{
		ID:       t.ID,
		Name:     t.Name,
		Duration: t.Duration,
		FPS:      t.FPS,
		Width:    t.Width,
		Height:   t.Height,
	}
}

func trackRecord(t *timeline.Track) *TrackRecord {
	return &TrackRecord{
		ID:         t.ID,
		TimelineID: t.TimelineID,
		Name:       t.Name,
		Kind:       string(t.Kind),
		SortOrder:  t.Order,
		Muted:      t.Muted,
	}
}

func clipRecord(c *timeline.Clip) *ClipRecord {
	return &ClipRecord{
		ID:          c.ID,
		TrackID:     c.TrackID,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		AssetType:   string(c.AssetType),
		AssetURL:    c.AssetURL,
		TextContent: c.TextContent,
		PositionX:   c.Position.X,
		PositionY:   c.Position.Y,
		Scale:       c.Scale,
		Opacity:     c.Opacity,
		Transition:  string(c.Transition),
	}
}
