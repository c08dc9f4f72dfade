package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayer_StartsStoppedAtZero(t *testing.T) {
	p := NewPlayer(30, 300)
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 0, p.Frame())
	assert.Equal(t, Cursor{Frame: 0, State: StateStopped}, p.Snapshot())
}

func TestPlayer_PlayPause(t *testing.T) {
	p := NewPlayer(30, 300)
	p.Play()
	assert.Equal(t, StatePlaying, p.State())
	assert.True(t, p.Snapshot().Playing)

	frame, moved := p.Tick()
	assert.True(t, moved)
	assert.Equal(t, 1, frame)

	p.Pause()
	assert.Equal(t, StateStopped, p.State())
	frame, moved = p.Tick()
	assert.False(t, moved)
	assert.Equal(t, 1, frame)
}

// Playing through the whole timeline stops on the last frame without looping.
func TestPlayer_StopsAtLastFrame(t *testing.T) {
	tl := &Timeline{Duration: 10, FPS: 30}
	p := NewPlayerFor(tl)
	p.Play()

	for i := 0; i < tl.DurationInFrames(); i++ {
		p.Tick()
	}
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 299, p.Frame())

	p.Play()
	assert.Equal(t, StateStopped, p.State())
	_, moved := p.Tick()
	assert.False(t, moved)
	assert.Equal(t, 299, p.Frame())
}

func TestPlayer_FrameAdvancesMonotonically(t *testing.T) {
	p := NewPlayer(24, 48)
	p.Play()
	prev := p.Frame()
	for p.State() == StatePlaying {
		frame, _ := p.Tick()
		assert.Greater(t, frame, prev)
		prev = frame
	}
	assert.Equal(t, 47, prev)
}

func TestPlayer_SeekClamps(t *testing.T) {
	p := NewPlayer(30, 300)

	p.Seek(-5)
	assert.Equal(t, 0, p.Frame())

	p.Seek(400)
	assert.Equal(t, 299, p.Frame())

	p.Seek(120)
	p.Seek(120)
	assert.Equal(t, 120, p.Frame())
}

func TestPlayer_SeekKeepsTransportState(t *testing.T) {
	p := NewPlayer(30, 300)
	p.Play()
	p.Seek(10)
	assert.Equal(t, StatePlaying, p.State())

	p.Pause()
	p.Seek(20)
	assert.Equal(t, StateStopped, p.State())
}

func TestPlayer_Skip(t *testing.T) {
	p := NewPlayer(30, 300)

	p.SkipForward()
	assert.Equal(t, 30, p.Frame())
	p.SkipBackward()
	p.SkipBackward()
	assert.Equal(t, 0, p.Frame())

	p.Seek(290)
	p.SkipForward()
	assert.Equal(t, 299, p.Frame())
}

func TestPlayer_EmptyTimeline(t *testing.T) {
	p := NewPlayer(30, 0)
	p.Seek(12)
	assert.Equal(t, 0, p.Frame())
	p.Play()
	assert.Equal(t, StateStopped, p.State())
	p.SkipForward()
	assert.Equal(t, 0, p.Frame())
}
