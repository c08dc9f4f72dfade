package timeline

// Layer is one track's contribution to a frame
type Layer struct {
	TrackID    string    `json:"track_id"`
	TrackKind  TrackKind `json:"track_kind"`
	ClipID     string    `json:"clip_id"`
	AssetType  AssetType `json:"asset_type"`
	AssetURL   string    `json:"asset_url,omitempty"`
	Text       string    `json:"text,omitempty"`
	ClipFrame  int       `json:"clip_frame"`
	ClipFrames int       `json:"clip_frames"`
	Modifiers  Modifiers `json:"modifiers"`
}

// ActiveClip finds the clip covering frame on track. Clips are scanned in
// stored order and the first match wins, so overlapping clips always resolve
// to the same one. Clips that are empty, end at or before frame 0, or start
// at or after totalFrames are never active.
func ActiveClip(track *Track, frame, fps, totalFrames int) (*Clip, bool) {
	if frame < 0 || frame >= totalFrames {
		return nil, false
	}
	for i := range track.Clips {
		clip := &track.Clips[i]
		start, end := clip.StartFrame(fps), clip.EndFrame(fps)
		if end <= start || end <= 0 || start >= totalFrames {
			continue
		}
		if frame >= start && frame < end {
			return clip, true
		}
	}
	return nil, false
}

// RenderTrack produces the track's layer at frame, or false when the track
// has nothing to show. Muted audio tracks are not evaluated at all.
func RenderTrack(track *Track, frame, fps, totalFrames, canvasWidth int) (Layer, bool) {
	if track.Kind == TrackKindAudio && track.Muted {
		return Layer{}, false
	}

	clip, ok := ActiveClip(track, frame, fps, totalFrames)
	if !ok {
		return Layer{}, false
	}

	start := clip.StartFrame(fps)
	clipFrames := clip.EndFrame(fps) - start
	local := frame - start

	layer := Layer{
		TrackID:    track.ID,
		TrackKind:  track.Kind,
		ClipID:     clip.ID,
		AssetType:  clip.AssetType,
		ClipFrame:  local,
		ClipFrames: clipFrames,
		Modifiers:  Evaluate(clip, local, clipFrames, canvasWidth),
	}
	if clip.AssetType == AssetTypeText {
		layer.Text = clip.TextContent
	} else {
		layer.AssetURL = clip.AssetURL
	}
	return layer, true
}
