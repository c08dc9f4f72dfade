// Package timeline turns a timeline snapshot (tracks of time-bounded clips)
// into composited frames. Everything here is a pure function of its inputs:
// no I/O, no shared state, and no errors on structurally odd data.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// TrackKind identifies what a track carries
type TrackKind string

const (
	TrackKindVideo TrackKind = "video"
	TrackKindAudio TrackKind = "audio"
	TrackKindText  TrackKind = "text"
)

// IsMedia reports whether the track belongs to the media pass (video, audio)
func (k TrackKind) IsMedia() bool {
	return k == TrackKindVideo || k == TrackKindAudio
}

// AssetType identifies the content of a clip
type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
	AssetTypeText  AssetType = "text"
	AssetTypeImage AssetType = "image"
)

// TransitionKind names the effect applied near a clip's edges
type TransitionKind string

const (
	TransitionNone  TransitionKind = "none"
	TransitionFade  TransitionKind = "fade"
	TransitionSlide TransitionKind = "slide"
	TransitionZoom  TransitionKind = "zoom"
)

const (
	DefaultScale   = 1.0
	DefaultOpacity = 100.0
)

// Point is a 2D offset in canvas pixels
type Point struct {
	X float64
	Y float64
}

// Timeline is the top-level composition snapshot
type Timeline struct {
	ID       string
	Name     string
	Duration float64 // seconds
	FPS      int
	Width    int
	Height   int
	Tracks   []Track
}

// Track is a lane of clips of a single kind
type Track struct {
	ID         string
	TimelineID string
	Name       string
	Kind       TrackKind
	Order      int
	Muted      bool
	Clips      []Clip
}

// Clip is a time-bounded unit of content on a track
type Clip struct {
	ID          string
	TrackID     string
	StartTime   float64 // seconds from frame 0
	EndTime     float64
	AssetType   AssetType
	AssetURL    string
	TextContent string
	Position    Point
	Scale       *float64
	Opacity     *float64 // 0..100
	Transition  TransitionKind
}

// SecondsToFrames converts a time offset to the nearest frame index.
func SecondsToFrames(seconds float64, fps int) int {
	if fps <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(fps)))
}

// DurationInFrames returns the number of renderable frames. A timeline with
// no positive duration or frame rate has none.
func (t *Timeline) DurationInFrames() int {
	if t.FPS <= 0 || t.Duration <= 0 {
		return 0
	}
	return SecondsToFrames(t.Duration, t.FPS)
}

// HasClips reports whether any track holds at least one clip
func (t *Timeline) HasClips() bool {
	for i := range t.Tracks {
		if len(t.Tracks[i].Clips) > 0 {
			return true
		}
	}
	return false
}

// StartFrame is the first frame the clip covers
func (c *Clip) StartFrame(fps int) int {
	return SecondsToFrames(c.StartTime, fps)
}

// EndFrame is the first frame after the clip
func (c *Clip) EndFrame(fps int) int {
	return SecondsToFrames(c.EndTime, fps)
}

// EffectiveScale returns the clip scale with the default applied
func (c *Clip) EffectiveScale() float64 {
	if c.Scale == nil {
		return DefaultScale
	}
	return *c.Scale
}

// EffectiveOpacity returns the clip opacity in [0,100] with the default applied
func (c *Clip) EffectiveOpacity() float64 {
	if c.Opacity == nil {
		return DefaultOpacity
	}
	return clamp(*c.Opacity, 0, 100)
}

// EffectiveTransition maps an empty transition to none
func (c *Clip) EffectiveTransition() TransitionKind {
	if c.Transition == "" {
		return TransitionNone
	}
	return c.Transition
}

// Overlaps reports whether two clips share any part of their half-open intervals
func (c *Clip) Overlaps(other *Clip) bool {
	return c.StartTime < other.EndTime && other.StartTime < c.EndTime
}

// SortedClips returns the track's clips ordered by start time. Ties keep
// their stored order.
func (t *Track) SortedClips() []Clip {
	clips := make([]Clip, len(t.Clips))
	copy(clips, t.Clips)
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].StartTime < clips[j].StartTime
	})
	return clips
}

var (
	ErrInvalidFPS      = errors.New("fps must be positive")
	ErrInvalidDuration = errors.New("duration must not be negative")
	ErrEmptyClip       = errors.New("clip end time must be after start time")
	ErrOverlappingClip = errors.New("clips on the same track overlap")
)

// Validate collects every invariant violation in the snapshot. The
// compositor tolerates all of them; this exists for the write path.
func (t *Timeline) Validate() error {
	var errs []error
	if t.FPS <= 0 {
		errs = append(errs, ErrInvalidFPS)
	}
	if t.Duration < 0 {
		errs = append(errs, ErrInvalidDuration)
	}
	for i := range t.Tracks {
		if err := t.Tracks[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks clip bounds and the non-overlap rule for one track
func (t *Track) Validate() error {
	var errs []error
	clips := t.SortedClips()
	// latest is the clip reaching furthest right so far
	latest := -1
	for i := range clips {
		if clips[i].EndTime <= clips[i].StartTime {
			errs = append(errs, fmt.Errorf("track %s clip %s: %w", t.ID, clips[i].ID, ErrEmptyClip))
			continue
		}
		if latest >= 0 && clips[latest].Overlaps(&clips[i]) {
			errs = append(errs, fmt.Errorf("track %s clips %s and %s: %w", t.ID, clips[latest].ID, clips[i].ID, ErrOverlappingClip))
		}
		if latest < 0 || clips[i].EndTime > clips[latest].EndTime {
			latest = i
		}
	}
	return errors.Join(errs...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
