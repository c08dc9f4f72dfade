package timeline

// PlaybackState is the transport state of a Player
type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
)

// Cursor is the current playback position
type Cursor struct {
	Frame   int           `json:"frame"`
	State   PlaybackState `json:"state"`
	Playing bool          `json:"playing"`
}

// Player owns the frame cursor for one preview. Looping is disabled: once
// the cursor reaches the last frame, playback stops. A Player has a single
// owner and is not safe for concurrent use.
type Player struct {
	fps         int
	totalFrames int
	frame       int
	state       PlaybackState
}

// NewPlayer creates a stopped player at frame 0
func NewPlayer(fps, totalFrames int) *Player {
	if totalFrames < 0 {
		totalFrames = 0
	}
	return &Player{
		fps:         fps,
		totalFrames: totalFrames,
		state:       StateStopped,
	}
}

// NewPlayerFor creates a player sized to t
func NewPlayerFor(t *Timeline) *Player {
	return NewPlayer(t.FPS, t.DurationInFrames())
}

func (p *Player) State() PlaybackState { return p.state }
func (p *Player) Frame() int          { return p.frame }
func (p *Player) FPS() int            { return p.fps }

// Snapshot returns the current cursor
func (p *Player) Snapshot() Cursor {
	return Cursor{Frame: p.frame, State: p.state, Playing: p.state == StatePlaying}
}

// Play starts advancing. At the last frame there is nothing left to play and
// the player stays stopped.
func (p *Player) Play() {
	if p.frame >= p.lastFrame() {
		p.state = StateStopped
		return
	}
	p.state = StatePlaying
}

// Pause stops advancing
func (p *Player) Pause() {
	p.state = StateStopped
}

// Seek moves the cursor, clamped to the valid range. The transport state is
// left as is.
func (p *Player) Seek(frame int) {
	p.frame = clampFrame(frame, p.totalFrames)
}

// SkipForward seeks one second ahead
func (p *Player) SkipForward() {
	p.Seek(p.frame + p.fps)
}

// SkipBackward seeks one second back
func (p *Player) SkipBackward() {
	p.Seek(p.frame - p.fps)
}

// Tick advances a playing cursor by one frame. It reports whether the cursor
// moved; reaching the last frame switches the player to stopped.
func (p *Player) Tick() (int, bool) {
	if p.state != StatePlaying {
		return p.frame, false
	}
	if p.frame >= p.lastFrame() {
		p.state = StateStopped
		return p.frame, false
	}
	p.frame++
	if p.frame >= p.lastFrame() {
		p.state = StateStopped
	}
	return p.frame, true
}

func (p *Player) lastFrame() int {
	if p.totalFrames <= 0 {
		return 0
	}
	return p.totalFrames - 1
}
