package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/framecut/api/internal/encoder"
	"github.com/framecut/api/internal/raster"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/timeline"
)

// MaxPreviewHeight caps the size of preview images
const MaxPreviewHeight = 1080

// PreviewService composites single frames of stored timelines
type PreviewService struct {
	repo    repository.Repository
	painter *raster.Painter
}

func NewPreviewService(repo repository.Repository, painter *raster.Painter) *PreviewService {
	return &PreviewService{
		repo:    repo,
		painter: painter,
	}
}

// Compositor loads a timeline snapshot and prepares it for rendering
func (s *PreviewService) Compositor(ctx context.Context, timelineID string) (*timeline.Timeline, *timeline.Compositor, error) {
	t, err := s.repo.GetTimeline(ctx, timelineID)
	if err != nil {
		return nil, nil, err
	}
	return t, timeline.NewCompositor(t), nil
}

// RenderFrame composites one frame. Out-of-range frames are clamped.
func (s *PreviewService) RenderFrame(ctx context.Context, timelineID string, frame int) (timeline.Frame, error) {
	_, c, err := s.Compositor(ctx, timelineID)
	if err != nil {
		return timeline.Frame{}, err
	}
	return c.RenderFrame(frame), nil
}

// RenderFrameImage composites one frame and encodes it as PNG. height 0
// keeps the canvas height.
func (s *PreviewService) RenderFrameImage(ctx context.Context, timelineID string, frame, height int) ([]byte, error) {
	t, c, err := s.Compositor(ctx, timelineID)
	if err != nil {
		return nil, err
	}

	if height <= 0 || height > t.Height {
		height = t.Height
	}
	if height > MaxPreviewHeight {
		height = MaxPreviewHeight
	}
	w, h := encoder.OutputSize(t.Width, t.Height, height)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("timeline %s has no canvas", timelineID)
	}

	var buf bytes.Buffer
	if err := s.painter.EncodePNG(&buf, c.RenderFrame(frame), w, h); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
