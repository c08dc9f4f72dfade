package timeline

import "math"

// Transition windows, in frames, before the clip-length cap applies.
const (
	maxFadeFrames  = 15.0
	maxZoomFrames  = 20.0
	maxSlideFrames = 20.0

	fadeWindowRatio  = 0.2
	zoomWindowRatio  = 0.3
	slideWindowRatio = 0.3

	zoomStartScale = 0.8
)

// Modifiers is the per-frame visual transform of a clip. Opacity is in [0,1].
type Modifiers struct {
	Opacity    float64 `json:"opacity"`
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Interpolate maps x from [x0,x1] onto [y0,y1] linearly. Inputs outside the
// domain hold the boundary value.
func Interpolate(x, x0, x1, y0, y1 float64) float64 {
	if x1 <= x0 {
		if x < x0 {
			return y0
		}
		return y1
	}
	if x <= x0 {
		return y0
	}
	if x >= x1 {
		return y1
	}
	return y0 + (x-x0)/(x1-x0)*(y1-y0)
}

// EaseOutCubic eases t in [0,1]; t is clamped first.
func EaseOutCubic(t float64) float64 {
	t = clamp(t, 0, 1)
	return 1 - math.Pow(1-t, 3)
}

// FadeFrames is the length of the fade-in and fade-out windows
func FadeFrames(clipFrames int) float64 {
	return math.Min(maxFadeFrames, fadeWindowRatio*float64(clipFrames))
}

// ZoomFrames is the length of the zoom-in window
func ZoomFrames(clipFrames int) float64 {
	return math.Min(maxZoomFrames, zoomWindowRatio*float64(clipFrames))
}

// SlideFrames is the length of the slide-in window
func SlideFrames(clipFrames int) float64 {
	return math.Min(maxSlideFrames, slideWindowRatio*float64(clipFrames))
}

// Evaluate computes the modifiers of clip at frame, counted from the clip's
// first frame, for a clip lasting clipFrames frames on a canvas canvasWidth
// pixels wide.
//
// Every transition kind carries the fade envelope; zoom and slide add their
// scale or translation on top of it. The envelope reaches zero on the clip's
// last frame. Frames outside [0, clipFrames] are clamped.
func Evaluate(clip *Clip, frame, clipFrames, canvasWidth int) Modifiers {
	mods := Modifiers{
		Opacity:    0,
		Scale:      clip.EffectiveScale(),
		TranslateX: clip.Position.X,
		TranslateY: clip.Position.Y,
	}
	if clipFrames <= 0 {
		return mods
	}

	f := clamp(float64(frame), 0, float64(clipFrames))
	mods.Opacity = fadeEnvelope(f, clipFrames, clip.EffectiveOpacity()/100)

	switch clip.EffectiveTransition() {
	case TransitionZoom:
		progress := EaseOutCubic(Interpolate(f, 0, ZoomFrames(clipFrames), 0, 1))
		mods.Scale = zoomStartScale + (clip.EffectiveScale()-zoomStartScale)*progress
	case TransitionSlide:
		progress := EaseOutCubic(Interpolate(f, 0, SlideFrames(clipFrames), 0, 1))
		mods.TranslateX = clip.Position.X - float64(canvasWidth)*(1-progress)
	}

	return mods
}

func fadeEnvelope(f float64, clipFrames int, base float64) float64 {
	fade := FadeFrames(clipFrames)
	last := float64(clipFrames - 1)
	in := Interpolate(f, 0, fade, 0, base)
	out := Interpolate(f, last-fade, last, base, 0)
	return math.Min(in, out)
}
