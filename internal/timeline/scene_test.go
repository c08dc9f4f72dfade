package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimeline(tracks ...Track) *Timeline {
	return &Timeline{
		ID:       "tl-1",
		Name:     "Demo",
		Duration: 10,
		FPS:      30,
		Width:    1920,
		Height:   1080,
		Tracks:   tracks,
	}
}

func TestActiveClip_HalfOpenIntervals(t *testing.T) {
	track := &Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "a", StartTime: 0, EndTime: 2},
		{ID: "b", StartTime: 2, EndTime: 4},
	}}

	clip, ok := ActiveClip(track, 59, 30, 300)
	require.True(t, ok)
	assert.Equal(t, "a", clip.ID)

	clip, ok = ActiveClip(track, 60, 30, 300)
	require.True(t, ok)
	assert.Equal(t, "b", clip.ID)

	_, ok = ActiveClip(track, 120, 30, 300)
	assert.False(t, ok)
}

func TestActiveClip_DisjointClipsYieldAtMostOne(t *testing.T) {
	track := &Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "c", StartTime: 6, EndTime: 9.5},
		{ID: "a", StartTime: 0, EndTime: 2.5},
		{ID: "b", StartTime: 3, EndTime: 5},
	}}

	for f := 0; f < 300; f++ {
		matches := 0
		for i := range track.Clips {
			c := track.Clips[i]
			if f >= c.StartFrame(30) && f < c.EndFrame(30) {
				matches++
			}
		}
		require.LessOrEqual(t, matches, 1)

		_, ok := ActiveClip(track, f, 30, 300)
		assert.Equal(t, matches == 1, ok, "frame %d", f)
	}
}

func TestActiveClip_OverlapResolvesToFirstStored(t *testing.T) {
	track := &Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "late", StartTime: 1, EndTime: 5},
		{ID: "early", StartTime: 0, EndTime: 3},
	}}

	for i := 0; i < 3; i++ {
		clip, ok := ActiveClip(track, 45, 30, 300)
		require.True(t, ok)
		assert.Equal(t, "late", clip.ID)
	}
	clip, ok := ActiveClip(track, 10, 30, 300)
	require.True(t, ok)
	assert.Equal(t, "early", clip.ID)
}

func TestActiveClip_SkipsUnrenderableClips(t *testing.T) {
	track := &Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "before-zero", StartTime: -3, EndTime: -1},
		{ID: "inverted", StartTime: 4, EndTime: 2},
		{ID: "past-end", StartTime: 10, EndTime: 12},
		{ID: "straddles-zero", StartTime: -1, EndTime: 1},
	}}

	clip, ok := ActiveClip(track, 0, 30, 300)
	require.True(t, ok)
	assert.Equal(t, "straddles-zero", clip.ID)

	_, ok = ActiveClip(track, 90, 30, 300)
	assert.False(t, ok)
	_, ok = ActiveClip(track, -1, 30, 300)
	assert.False(t, ok)
	_, ok = ActiveClip(track, 300, 30, 300)
	assert.False(t, ok)
}

func TestRenderTrack_MutedAudioIsSkipped(t *testing.T) {
	audio := &Track{ID: "a", Kind: TrackKindAudio, Muted: true, Clips: []Clip{
		{ID: "music", StartTime: 0, EndTime: 10, AssetType: AssetTypeAudio, AssetURL: "s3://music.mp3"},
	}}
	_, ok := RenderTrack(audio, 100, 30, 300, 1920)
	assert.False(t, ok)

	audio.Muted = false
	layer, ok := RenderTrack(audio, 100, 30, 300, 1920)
	require.True(t, ok)
	assert.Equal(t, "s3://music.mp3", layer.AssetURL)
	assert.Equal(t, 100, layer.ClipFrame)
	assert.Equal(t, 300, layer.ClipFrames)
}

func TestRenderTrack_MuteOnlyAppliesToAudio(t *testing.T) {
	video := &Track{ID: "v", Kind: TrackKindVideo, Muted: true, Clips: []Clip{
		{ID: "shot", StartTime: 0, EndTime: 10, AssetType: AssetTypeVideo},
	}}
	_, ok := RenderTrack(video, 100, 30, 300, 1920)
	assert.True(t, ok)
}

func TestRenderTrack_TextLayerCarriesContent(t *testing.T) {
	text := &Track{ID: "t", Kind: TrackKindText, Clips: []Clip{
		{ID: "title", StartTime: 1, EndTime: 3, AssetType: AssetTypeText, TextContent: "Hello", AssetURL: "ignored"},
	}}
	layer, ok := RenderTrack(text, 45, 30, 300, 1920)
	require.True(t, ok)
	assert.Equal(t, "Hello", layer.Text)
	assert.Empty(t, layer.AssetURL)
	assert.Equal(t, 15, layer.ClipFrame)
	assert.Equal(t, 60, layer.ClipFrames)
}

func TestStackingOrder_TextAlwaysOnTop(t *testing.T) {
	tracks := []Track{
		{ID: "text-low", Kind: TrackKindText, Order: -5},
		{ID: "video-high", Kind: TrackKindVideo, Order: 9},
		{ID: "audio", Kind: TrackKindAudio, Order: 1},
		{ID: "text-high", Kind: TrackKindText, Order: 3},
		{ID: "video-low", Kind: TrackKindVideo, Order: 0},
		{ID: "video-tie", Kind: TrackKindVideo, Order: 0},
	}

	var ids []string
	for _, idx := range StackingOrder(tracks) {
		ids = append(ids, tracks[idx].ID)
	}
	assert.Equal(t, []string{"video-low", "video-tie", "audio", "video-high", "text-low", "text-high"}, ids)
}

// A single fading clip over half the timeline.
func TestScene_FadingClip(t *testing.T) {
	tl := newTimeline(Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "c", StartTime: 0, EndTime: 5, AssetType: AssetTypeVideo, AssetURL: "clip.mp4", Transition: TransitionFade, Opacity: ptr(90)},
	}})
	c := NewCompositor(tl)
	require.Equal(t, 300, c.DurationInFrames())

	frame := c.RenderFrame(0)
	require.Len(t, frame.Layers, 1)
	assert.Equal(t, 0.0, frame.Layers[0].Modifiers.Opacity)

	frame = c.RenderFrame(15)
	require.Len(t, frame.Layers, 1)
	assert.InDelta(t, 0.9, frame.Layers[0].Modifiers.Opacity, 1e-9)

	frame = c.RenderFrame(149)
	require.Len(t, frame.Layers, 1)
	assert.InDelta(t, 0.0, frame.Layers[0].Modifiers.Opacity, 1e-9)

	frame = c.RenderFrame(150)
	assert.Empty(t, frame.Layers)
	assert.False(t, frame.Empty)
}

// Text over video regardless of the order values.
func TestScene_TextLayersOverVideo(t *testing.T) {
	for _, orders := range [][2]int{{0, 1}, {5, 1}, {3, 3}} {
		tl := newTimeline(
			Track{ID: "text", Kind: TrackKindText, Order: orders[1], Clips: []Clip{
				{ID: "caption", StartTime: 0, EndTime: 10, AssetType: AssetTypeText, TextContent: "Hi"},
			}},
			Track{ID: "video", Kind: TrackKindVideo, Order: orders[0], Clips: []Clip{
				{ID: "shot", StartTime: 0, EndTime: 10, AssetType: AssetTypeVideo, AssetURL: "a.mp4"},
			}},
		)
		c := NewCompositor(tl)
		for _, f := range []int{0, 1, 150, 299} {
			frame := c.RenderFrame(f)
			require.Len(t, frame.Layers, 2)
			assert.Equal(t, "video", frame.Layers[0].TrackID)
			assert.Equal(t, "text", frame.Layers[1].TrackID)
		}
	}
}

// No tracks at all yields the placeholder on every frame.
func TestScene_EmptyTimelinePlaceholder(t *testing.T) {
	for _, tl := range []*Timeline{
		newTimeline(),
		newTimeline(Track{ID: "v", Kind: TrackKindVideo}, Track{ID: "t", Kind: TrackKindText}),
		{FPS: 0, Duration: 0},
		{FPS: 30, Duration: 0, Width: 1920, Height: 1080, Tracks: []Track{
			{ID: "v", Kind: TrackKindVideo, Clips: []Clip{{ID: "a", StartTime: 0, EndTime: 5, AssetType: AssetTypeVideo}}},
		}},
	} {
		for _, f := range []int{-3, 0, 10, 299, 1000} {
			frame := Render(tl, f)
			assert.True(t, frame.Empty)
			assert.Equal(t, EmptyPlaceholder, frame.Placeholder)
			assert.NotNil(t, frame.Layers)
			assert.Empty(t, frame.Layers)
		}
	}
}

func TestScene_Deterministic(t *testing.T) {
	tl := newTimeline(
		Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
			{ID: "a", StartTime: 0, EndTime: 4, AssetType: AssetTypeVideo, Transition: TransitionZoom},
			{ID: "b", StartTime: 3, EndTime: 8, AssetType: AssetTypeImage, Transition: TransitionSlide},
		}},
		Track{ID: "t", Kind: TrackKindText, Clips: []Clip{
			{ID: "c", StartTime: 1, EndTime: 9, AssetType: AssetTypeText, TextContent: "x"},
		}},
	)
	c := NewCompositor(tl)
	for _, f := range []int{250, 0, 97, 97, 12, 299} {
		assert.Equal(t, c.RenderFrame(f), NewCompositor(tl).RenderFrame(f))
		assert.Equal(t, c.RenderFrame(f), Render(tl, f))
	}
}

func TestScene_ClampsFrameIndex(t *testing.T) {
	tl := newTimeline(Track{ID: "v", Kind: TrackKindVideo, Clips: []Clip{
		{ID: "a", StartTime: 0, EndTime: 10, AssetType: AssetTypeVideo},
	}})
	c := NewCompositor(tl)
	assert.Equal(t, c.RenderFrame(0), c.RenderFrame(-20))
	assert.Equal(t, c.RenderFrame(299), c.RenderFrame(10_000))
	assert.Equal(t, 299, c.RenderFrame(10_000).Index)
}

func TestScene_DoesNotMutateSnapshot(t *testing.T) {
	tl := newTimeline(
		Track{ID: "t", Kind: TrackKindText, Order: 0, Clips: []Clip{{ID: "c", StartTime: 0, EndTime: 2, AssetType: AssetTypeText}}},
		Track{ID: "v", Kind: TrackKindVideo, Order: 1, Clips: []Clip{{ID: "a", StartTime: 0, EndTime: 2, AssetType: AssetTypeVideo}}},
	)
	Render(tl, 10)
	assert.Equal(t, "t", tl.Tracks[0].ID)
	assert.Equal(t, "v", tl.Tracks[1].ID)
}

func TestValidate(t *testing.T) {
	valid := newTimeline(Track{ID: "v", Clips: []Clip{
		{ID: "a", StartTime: 0, EndTime: 2},
		{ID: "b", StartTime: 2, EndTime: 3},
	}})
	assert.NoError(t, valid.Validate())

	bad := &Timeline{FPS: 0, Duration: -1, Tracks: []Track{{ID: "v", Clips: []Clip{
		{ID: "long", StartTime: 0, EndTime: 10},
		{ID: "short", StartTime: 1, EndTime: 2},
		{ID: "later", StartTime: 5, EndTime: 6},
		{ID: "empty", StartTime: 7, EndTime: 7},
	}}}}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFPS)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.ErrorIs(t, err, ErrOverlappingClip)
	assert.ErrorIs(t, err, ErrEmptyClip)
	assert.Contains(t, err.Error(), "long and later")
}
