// Package encoder streams rendered frames into ffmpeg
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/framecut/api/internal/model"
	"github.com/rs/zerolog"
)

// Options describes the encoded output
type Options struct {
	Width   int
	Height  int
	FPS     int
	Format  model.Format
	Quality model.Quality
}

// crf values per quality, lower is better
var (
	x264CRF = map[model.Quality]int{model.QualityLow: 32, model.QualityMedium: 23, model.QualityHigh: 18}
	vp9CRF  = map[model.Quality]int{model.QualityLow: 40, model.QualityMedium: 32, model.QualityHigh: 24}
)

// FFmpeg runs the ffmpeg binary
type FFmpeg struct {
	logger zerolog.Logger
	path   string
}

// New resolves the ffmpeg binary. path may be a bare name looked up in PATH.
func New(logger zerolog.Logger, path string) (*FFmpeg, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	return &FFmpeg{
		logger: logger,
		path:   resolved,
	}, nil
}

// Extension returns the file extension for a format
func Extension(format model.Format) string {
	switch format {
	case model.FormatWebM:
		return "webm"
	case model.FormatGIF:
		return "gif"
	}
	return "mp4"
}

// ContentType returns the MIME type for a format
func ContentType(format model.Format) string {
	switch format {
	case model.FormatWebM:
		return "video/webm"
	case model.FormatGIF:
		return "image/gif"
	}
	return "video/mp4"
}

// OutputSize scales a canvas to targetHeight keeping its aspect ratio.
// Both sides are rounded down to even numbers for yuv420p.
func OutputSize(width, height, targetHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if targetHeight <= 0 {
		targetHeight = height
	}
	w := width * targetHeight / height
	return even(w), even(targetHeight)
}

func even(v int) int {
	v -= v % 2
	if v < 2 {
		return 2
	}
	return v
}

// BuildArgs returns the ffmpeg arguments that read raw RGBA frames from
// stdin and write output
func BuildArgs(opts Options, output string) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "pipe:0",
	}

	quality := opts.Quality
	if quality == "" {
		quality = model.QualityMedium
	}

	switch opts.Format {
	case model.FormatWebM:
		args = append(args,
			"-c:v", "libvpx-vp9",
			"-b:v", "0",
			"-crf", strconv.Itoa(vp9CRF[quality]),
			"-pix_fmt", "yuv420p",
		)
	case model.FormatGIF:
		fps := opts.FPS
		if fps > 15 {
			fps = 15
		}
		args = append(args,
			"-vf", fmt.Sprintf("fps=%d,split[a][b];[a]palettegen[p];[b][p]paletteuse", fps),
			"-loop", "0",
		)
	default:
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", strconv.Itoa(x264CRF[quality]),
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
		)
	}

	return append(args, output)
}

// Session is one running encode. Frames must match the session size.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	width  int
	height int
	frames int

	closeOnce sync.Once
	closeErr  error
}

// Start launches ffmpeg writing to output. Canceling ctx kills the process.
func (f *FFmpeg) Start(ctx context.Context, opts Options, output string) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid encode size %dx%d@%d", opts.Width, opts.Height, opts.FPS)
	}

	args := BuildArgs(opts, output)
	f.logger.Debug().Strs("args", args).Msg("starting ffmpeg")

	cmd := exec.CommandContext(ctx, f.path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &Session{
		cmd:    cmd,
		stdin:  stdin,
		stderr: &stderr,
		width:  opts.Width,
		height: opts.Height,
	}, nil
}

// WriteFrame sends one frame to the encoder
func (s *Session) WriteFrame(img image.Image) error {
	rgba := toRGBA(img, s.width, s.height)
	if _, err := s.stdin.Write(rgba.Pix); err != nil {
		return fmt.Errorf("failed to write frame %d: %w: %s", s.frames, err, s.stderr.String())
	}
	s.frames++
	return nil
}

// Frames returns how many frames were written
func (s *Session) Frames() int {
	return s.frames
}

// Close flushes stdin and waits for ffmpeg to finish the file
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stdin.Close()
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("ffmpeg execution failed: %w: %s", err, s.stderr.String())
		}
	})
	return s.closeErr
}

// Abort kills ffmpeg and discards the output
func (s *Session) Abort() {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.Close()
}

// toRGBA returns img as a tightly packed RGBA image of the given size
func toRGBA(img image.Image, width, height int) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == image.Rect(0, 0, width, height) && rgba.Stride == width*4 {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
