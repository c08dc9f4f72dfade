package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/framecut/api/internal/timeline"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the requested timeline, track or clip does not exist
var ErrNotFound = errors.New("not found")

// ClipCheck validates a clip against the current state of its track. It runs
// inside the write transaction with the track row locked; an error aborts
// the write.
type ClipCheck func(track *timeline.Track, c *timeline.Clip) error

// Repository stores timelines with their tracks and clips
type Repository interface {
	CreateTimeline(ctx context.Context, t *timeline.Timeline) error
	// GetTimeline returns a full snapshot: tracks by order then creation,
	// clips by start time then creation.
	GetTimeline(ctx context.Context, id string) (*timeline.Timeline, error)
	ListTimelines(ctx context.Context, limit, offset int) ([]timeline.Timeline, error)
	UpdateTimeline(ctx context.Context, t *timeline.Timeline) error
	DeleteTimeline(ctx context.Context, id string) error

	CreateTrack(ctx context.Context, t *timeline.Track) error
	GetTrack(ctx context.Context, id string) (*timeline.Track, error)
	ListTracks(ctx context.Context, timelineID string) ([]timeline.Track, error)
	UpdateTrack(ctx context.Context, t *timeline.Track) error
	DeleteTrack(ctx context.Context, id string) error

	// CreateClip and UpdateClip run check, when non-nil, before writing
	CreateClip(ctx context.Context, c *timeline.Clip, check ClipCheck) error
	GetClip(ctx context.Context, id string) (*timeline.Clip, error)
	ListClips(ctx context.Context, trackID string) ([]timeline.Clip, error)
	UpdateClip(ctx context.Context, c *timeline.Clip, check ClipCheck) error
	DeleteClip(ctx context.Context, id string) error
}

// GormRepository implements Repository on gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository over an opened and migrated database
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

var _ Repository = (*GormRepository)(nil)

func orderTracks(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC, id ASC")
}

func orderClips(db *gorm.DB) *gorm.DB {
	return db.Order("start_time ASC, created_at ASC, id ASC")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Timelines

func (r *GormRepository) CreateTimeline(ctx context.Context, t *timeline.Timeline) error {
	if err := r.db.WithContext(ctx).Create(timelineRecord(t)).Error; err != nil {
		return fmt.Errorf("failed to create timeline: %w", err)
	}
	return nil
}

func (r *GormRepository) GetTimeline(ctx context.Context, id string) (*timeline.Timeline, error) {
	var rec TimelineRecord
	err := r.db.WithContext(ctx).
		Preload("Tracks", orderTracks).
		Preload("Tracks.Clips", orderClips).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toDomain(), nil
}

// ListTimelines returns timeline headers, newest first, without tracks
func (r *GormRepository) ListTimelines(ctx context.Context, limit, offset int) ([]timeline.Timeline, error) {
	var recs []TimelineRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list timelines: %w", err)
	}

	out := make([]timeline.Timeline, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].toDomain())
	}
	return out, nil
}

func (r *GormRepository) UpdateTimeline(ctx context.Context, t *timeline.Timeline) error {
	return r.update(ctx, &TimelineRecord{}, t.ID, nil, map[string]interface{}{
		"name":     t.Name,
		"duration": t.Duration,
		"fps":      t.FPS,
		"width":    t.Width,
		"height":   t.Height,
	})
}

// DeleteTimeline removes the timeline with all of its tracks and clips
func (r *GormRepository) DeleteTimeline(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trackIDs := tx.Model(&TrackRecord{}).Select("id").Where("timeline_id = ?", id)
		if err := tx.Where("track_id IN (?)", trackIDs).Delete(&ClipRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete clips: %w", err)
		}
		if err := tx.Where("timeline_id = ?", id).Delete(&TrackRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete tracks: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&TimelineRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete timeline: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Tracks

func (r *GormRepository) CreateTrack(ctx context.Context, t *timeline.Track) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &TimelineRecord{}, t.TimelineID); err != nil {
			return err
		}
		if err := tx.Create(trackRecord(t)).Error; err != nil {
			return fmt.Errorf("failed to create track: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) GetTrack(ctx context.Context, id string) (*timeline.Track, error) {
	var rec TrackRecord
	err := r.db.WithContext(ctx).
		Preload("Clips", orderClips).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toDomain(), nil
}

func (r *GormRepository) ListTracks(ctx context.Context, timelineID string) ([]timeline.Track, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &TimelineRecord{}, timelineID); err != nil {
		return nil, err
	}

	var recs []TrackRecord
	err := orderTracks(db.Preload("Clips", orderClips)).
		Where("timeline_id = ?", timelineID).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	out := make([]timeline.Track, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].toDomain())
	}
	return out, nil
}

func (r *GormRepository) UpdateTrack(ctx context.Context, t *timeline.Track) error {
	return r.update(ctx, &TrackRecord{}, t.ID, nil, map[string]interface{}{
		"name":       t.Name,
		"sort_order": t.Order,
		"muted":      t.Muted,
	})
}

// DeleteTrack removes the track and its clips
func (r *GormRepository) DeleteTrack(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&ClipRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete clips: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&TrackRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete track: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Clips

func (r *GormRepository) CreateClip(ctx context.Context, c *timeline.Clip, check ClipCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLocked(tx, c, check); err != nil {
			return err
		}
		if err := tx.Create(clipRecord(c)).Error; err != nil {
			return fmt.Errorf("failed to create clip: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) GetClip(ctx context.Context, id string) (*timeline.Clip, error) {
	var rec ClipRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return rec.toDomain(), nil
}

func (r *GormRepository) ListClips(ctx context.Context, trackID string) ([]timeline.Clip, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &TrackRecord{}, trackID); err != nil {
		return nil, err
	}

	var recs []ClipRecord
	if err := orderClips(db).Where("track_id = ?", trackID).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}

	out := make([]timeline.Clip, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].toDomain())
	}
	return out, nil
}

func (r *GormRepository) UpdateClip(ctx context.Context, c *timeline.Clip, check ClipCheck) error {
	return r.update(ctx, &ClipRecord{}, c.ID, func(tx *gorm.DB) error {
		return checkLocked(tx, c, check)
	}, map[string]interface{}{
		"start_time":   c.StartTime,
		"end_time":     c.EndTime,
		"asset_url":    c.AssetURL,
		"text_content": c.TextContent,
		"position_x":   c.Position.X,
		"position_y":   c.Position.Y,
		"scale":        c.Scale,
		"opacity":      c.Opacity,
		"transition":   string(c.Transition),
	})
}

func (r *GormRepository) DeleteClip(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ClipRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete clip: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Helpers

// update writes fields onto the row with id inside a transaction, failing
// with ErrNotFound when the row is missing. before runs first when set.
func (r *GormRepository) update(ctx context.Context, model interface{}, id string, before func(tx *gorm.DB) error, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, model, id); err != nil {
			return err
		}
		if before != nil {
			if err := before(tx); err != nil {
				return err
			}
		}
		if err := tx.Model(model).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}
		return nil
	})
}

// checkLocked locks the clip's track row for the rest of the transaction,
// so concurrent writers to one track are serialized, then runs check
// against the track's committed clips.
func checkLocked(tx *gorm.DB, c *timeline.Clip, check ClipCheck) error {
	var rec TrackRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", c.TrackID).Error
	if err != nil {
		return notFound(err)
	}
	if check == nil {
		return nil
	}
	if err := orderClips(tx).Where("track_id = ?", c.TrackID).Find(&rec.Clips).Error; err != nil {
		return fmt.Errorf("failed to load clips: %w", err)
	}
	return check(rec.toDomain(), c)
}

func exists(db *gorm.DB, model interface{}, id string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
