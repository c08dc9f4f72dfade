package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/timeline"
	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"
)

// CompositorSource loads a timeline snapshot ready for compositing
type CompositorSource interface {
	Compositor(ctx context.Context, timelineID string) (*timeline.Timeline, *timeline.Compositor, error)
}

// PreviewServer runs interactive preview sessions. Each session owns one
// Player; the session goroutine is its only user.
type PreviewServer struct {
	source CompositorSource
	logger zerolog.Logger
}

func NewPreviewServer(source CompositorSource, logger zerolog.Logger) *PreviewServer {
	return &PreviewServer{
		source: source,
		logger: logger,
	}
}

// ApplyCommand performs a transport command on p. Unknown commands are
// ignored and reported as false.
func ApplyCommand(p *timeline.Player, cmd model.PreviewCommand) bool {
	switch cmd.Type {
	case model.PreviewCommandPlay:
		p.Play()
	case model.PreviewCommandPause:
		p.Pause()
	case model.PreviewCommandSeek:
		p.Seek(cmd.Frame)
	case model.PreviewCommandSkipForward:
		p.SkipForward()
	case model.PreviewCommandSkipBackward:
		p.SkipBackward()
	default:
		return false
	}
	return true
}

// frameInterval is the wall-clock time of one frame at fps
func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(fps)
}

// HandleConnection serves one preview session until the client disconnects
// or ctx is canceled.
func (s *PreviewServer) HandleConnection(ctx context.Context, c Conn, timelineID string) {
	logger := s.logger.With().Str("timeline_id", timelineID).Logger()

	t, compositor, err := s.source.Compositor(ctx, timelineID)
	if err != nil {
		code, msg := "SERVICE_ERROR", "failed to load timeline"
		if errors.Is(err, repository.ErrNotFound) {
			code, msg = "NOT_FOUND", "timeline not found"
		} else {
			logger.Error().Err(err).Msg("failed to load timeline")
		}
		_ = writeJSON(c, model.WSErrorMessage{
			Type:  model.WSMessageTypeError,
			Error: model.WSError{Code: code, Message: msg},
		})
		return
	}

	done := make(chan struct{})
	defer close(done)
	commands := make(chan model.PreviewCommand, 16)
	go readCommands(c, commands, done, logger)

	player := timeline.NewPlayerFor(t)
	session := &previewSession{
		conn:       c,
		player:     player,
		compositor: compositor,
		fps:        t.FPS,
	}
	if err := session.push(); err != nil {
		return
	}

	var ticker *time.Ticker
	var tick <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd, ok := <-commands:
			if !ok {
				return
			}
			if cmd.Type == model.WSMessageTypePing {
				if err := writeJSON(c, model.WSMessage{Type: model.WSMessageTypePong}); err != nil {
					return
				}
				continue
			}
			if !ApplyCommand(player, cmd) {
				logger.Debug().Str("type", cmd.Type).Msg("unknown preview command")
				continue
			}
			if player.State() == timeline.StatePlaying && ticker == nil {
				ticker = time.NewTicker(frameInterval(t.FPS))
				tick = ticker.C
			} else if player.State() != timeline.StatePlaying {
				stopTicker()
			}
			if err := session.push(); err != nil {
				return
			}

		case <-tick:
			_, advanced := player.Tick()
			stopped := player.State() != timeline.StatePlaying
			if stopped {
				stopTicker()
			}
			if !advanced && !stopped {
				continue
			}
			if err := session.push(); err != nil {
				return
			}
		}
	}
}

type previewSession struct {
	conn       Conn
	player     *timeline.Player
	compositor *timeline.Compositor
	fps        int
}

func (s *previewSession) push() error {
	return writeJSON(s.conn, model.PreviewFrameMessage{
		Type:        model.WSMessageTypeFrame,
		State:       s.player.State(),
		TotalFrames: s.compositor.DurationInFrames(),
		FPS:         s.fps,
		Frame:       s.compositor.RenderFrame(s.player.Frame()),
	})
}

func readCommands(c Conn, out chan<- model.PreviewCommand, done <-chan struct{}, logger zerolog.Logger) {
	defer close(out)
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var cmd model.PreviewCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		select {
		case out <- cmd:
		case <-done:
			return
		}
	}
}

func writeJSON(c Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
