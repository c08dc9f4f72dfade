package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/timeline"
	"github.com/google/uuid"
)

var (
	ErrInvalidClip     = errors.New("invalid clip")
	ErrClipOverlap     = errors.New("clip overlaps another clip on the track")
	ErrInvalidTimeline = errors.New("invalid timeline")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// TimelineService handles timeline, track and clip editing
type TimelineService struct {
	repo repository.Repository
}

func NewTimelineService(repo repository.Repository) *TimelineService {
	return &TimelineService{repo: repo}
}

// Timelines

func (s *TimelineService) CreateTimeline(ctx context.Context, req *model.CreateTimelineRequest) (*timeline.Timeline, error) {
	t := &timeline.Timeline{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Duration: req.Duration,
		FPS:      req.FPS,
		Width:    req.Width,
		Height:   req.Height,
		Tracks:   []timeline.Track{},
	}
	if err := s.repo.CreateTimeline(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTimeline returns the full snapshot with tracks and clips
func (s *TimelineService) GetTimeline(ctx context.Context, id string) (*timeline.Timeline, error) {
	return s.repo.GetTimeline(ctx, id)
}

func (s *TimelineService) ListTimelines(ctx context.Context, limit, offset int) ([]timeline.Timeline, int, int, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListTimelines(ctx, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, limit, offset, nil
}

func (s *TimelineService) UpdateTimeline(ctx context.Context, id string, req *model.UpdateTimelineRequest) (*timeline.Timeline, error) {
	t, err := s.repo.GetTimeline(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Duration != nil {
		t.Duration = *req.Duration
	}
	if req.FPS != nil {
		t.FPS = *req.FPS
	}
	if req.Width != nil {
		t.Width = *req.Width
	}
	if req.Height != nil {
		t.Height = *req.Height
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeline, err)
	}
	if err := s.repo.UpdateTimeline(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TimelineService) DeleteTimeline(ctx context.Context, id string) error {
	return s.repo.DeleteTimeline(ctx, id)
}

// Tracks

func (s *TimelineService) ListTracks(ctx context.Context, timelineID string) ([]timeline.Track, error) {
	return s.repo.ListTracks(ctx, timelineID)
}

func (s *TimelineService) CreateTrack(ctx context.Context, timelineID string, req *model.CreateTrackRequest) (*timeline.Track, error) {
	t := &timeline.Track{
		ID:         uuid.New().String(),
		TimelineID: timelineID,
		Name:       req.Name,
		Kind:       timeline.TrackKind(req.Kind),
		Order:      req.Order,
		Muted:      req.Muted,
		Clips:      []timeline.Clip{},
	}
	if err := s.repo.CreateTrack(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TimelineService) UpdateTrack(ctx context.Context, trackID string, req *model.UpdateTrackRequest) (*timeline.Track, error) {
	t, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Order != nil {
		t.Order = *req.Order
	}
	if req.Muted != nil {
		t.Muted = *req.Muted
	}
	if err := s.repo.UpdateTrack(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TimelineService) DeleteTrack(ctx context.Context, trackID string) error {
	return s.repo.DeleteTrack(ctx, trackID)
}

// Clips

func (s *TimelineService) ListClips(ctx context.Context, trackID string) ([]timeline.Clip, error) {
	return s.repo.ListClips(ctx, trackID)
}

func (s *TimelineService) CreateClip(ctx context.Context, trackID string, req *model.CreateClipRequest) (*timeline.Clip, error) {
	c := &timeline.Clip{
		ID:          uuid.New().String(),
		TrackID:     trackID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		AssetType:   timeline.AssetType(req.AssetType),
		AssetURL:    req.AssetURL,
		TextContent: req.TextContent,
		Scale:       req.Scale,
		Opacity:     req.Opacity,
		Transition:  timeline.TransitionKind(req.Transition),
	}
	if req.Position != nil {
		c.Position = timeline.Point{X: req.Position.X, Y: req.Position.Y}
	}

	if err := s.repo.CreateClip(ctx, c, checkClip); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *TimelineService) UpdateClip(ctx context.Context, clipID string, req *model.UpdateClipRequest) (*timeline.Clip, error) {
	c, err := s.repo.GetClip(ctx, clipID)
	if err != nil {
		return nil, err
	}

	if req.StartTime != nil {
		c.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		c.EndTime = *req.EndTime
	}
	if req.AssetURL != nil {
		c.AssetURL = *req.AssetURL
	}
	if req.TextContent != nil {
		c.TextContent = *req.TextContent
	}
	if req.Position != nil {
		c.Position = timeline.Point{X: req.Position.X, Y: req.Position.Y}
	}
	if req.Scale != nil {
		c.Scale = req.Scale
	}
	if req.Opacity != nil {
		c.Opacity = req.Opacity
	}
	if req.Transition != nil {
		c.Transition = timeline.TransitionKind(*req.Transition)
	}

	if err := s.repo.UpdateClip(ctx, c, checkClip); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *TimelineService) DeleteClip(ctx context.Context, clipID string) error {
	return s.repo.DeleteClip(ctx, clipID)
}

// checkClip enforces the write-side clip rules against the clip's track
// as read under the repository's track lock:
// a positive interval, an asset type the track kind can carry, content for
// that asset type, and no overlap with the track's other clips.
func checkClip(track *timeline.Track, c *timeline.Clip) error {
	if c.StartTime < 0 {
		return fmt.Errorf("%w: start_time must not be negative", ErrInvalidClip)
	}
	if c.EndTime <= c.StartTime {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidClip)
	}
	if !compatible(track.Kind, c.AssetType) {
		return fmt.Errorf("%w: %s clips cannot be placed on a %s track", ErrInvalidClip, c.AssetType, track.Kind)
	}
	if c.AssetType == timeline.AssetTypeText && c.TextContent == "" {
		return fmt.Errorf("%w: text clips need text_content", ErrInvalidClip)
	}
	if c.AssetType != timeline.AssetTypeText && c.AssetURL == "" {
		return fmt.Errorf("%w: %s clips need asset_url", ErrInvalidClip, c.AssetType)
	}

	for i := range track.Clips {
		other := &track.Clips[i]
		if other.ID == c.ID {
			continue
		}
		if c.Overlaps(other) {
			return fmt.Errorf("%w: %s [%g, %g)", ErrClipOverlap, other.ID, other.StartTime, other.EndTime)
		}
	}
	return nil
}

func compatible(kind timeline.TrackKind, asset timeline.AssetType) bool {
	switch kind {
	case timeline.TrackKindVideo:
		return asset == timeline.AssetTypeVideo || asset == timeline.AssetTypeImage
	case timeline.TrackKindAudio:
		return asset == timeline.AssetTypeAudio
	case timeline.TrackKindText:
		return asset == timeline.AssetTypeText
	}
	return false
}
