package timeline

import "sort"

// EmptyPlaceholder is shown for timelines that hold no clips at all
const EmptyPlaceholder = "nothing to preview"

// Frame is the composited output for one frame index. Layers are ordered
// bottom to top.
type Frame struct {
	Index       int     `json:"index"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Empty       bool    `json:"empty"`
	Placeholder string  `json:"placeholder,omitempty"`
	Layers      []Layer `json:"layers"`
}

// StackingOrder returns track indexes in paint order: every media track by
// ascending Order, then every text track by ascending Order. Text always
// lands above media whatever the raw Order values are. Equal orders keep
// their stored position.
func StackingOrder(tracks []Track) []int {
	var media, text []int
	for i := range tracks {
		if tracks[i].Kind == TrackKindText {
			text = append(text, i)
		} else {
			media = append(media, i)
		}
	}

	byOrder := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return tracks[idx[a]].Order < tracks[idx[b]].Order
		})
	}
	byOrder(media)
	byOrder(text)

	return append(media, text...)
}

// Compositor renders frames of one timeline snapshot. It never mutates the
// snapshot and keeps no state between calls, so frames may be requested in
// any order.
type Compositor struct {
	timeline    Timeline
	order       []int
	totalFrames int
	empty       bool
}

// NewCompositor prepares a compositor for t. The caller must not modify t's
// tracks or clips while the compositor is in use.
func NewCompositor(t *Timeline) *Compositor {
	// a timeline with clips but no frames has nothing to show either
	total := t.DurationInFrames()
	return &Compositor{
		timeline:    *t,
		order:       StackingOrder(t.Tracks),
		totalFrames: total,
		empty:       !t.HasClips() || total == 0,
	}
}

// DurationInFrames is the number of renderable frames
func (c *Compositor) DurationInFrames() int {
	return c.totalFrames
}

// ClampFrame pins frame into [0, DurationInFrames-1]
func (c *Compositor) ClampFrame(frame int) int {
	return clampFrame(frame, c.totalFrames)
}

// RenderFrame composites frame. Out-of-range frames are clamped.
func (c *Compositor) RenderFrame(frame int) Frame {
	frame = c.ClampFrame(frame)
	out := Frame{
		Index:  frame,
		Width:  c.timeline.Width,
		Height: c.timeline.Height,
		Layers: []Layer{},
	}
	if c.empty {
		out.Empty = true
		out.Placeholder = EmptyPlaceholder
		return out
	}

	for _, idx := range c.order {
		track := &c.timeline.Tracks[idx]
		if layer, ok := RenderTrack(track, frame, c.timeline.FPS, c.totalFrames, c.timeline.Width); ok {
			out.Layers = append(out.Layers, layer)
		}
	}
	return out
}

// Render composites a single frame of t
func Render(t *Timeline, frame int) Frame {
	return NewCompositor(t).RenderFrame(frame)
}

func clampFrame(frame, total int) int {
	if total <= 0 || frame < 0 {
		return 0
	}
	if frame > total-1 {
		return total - 1
	}
	return frame
}
