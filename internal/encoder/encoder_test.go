package encoder

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/framecut/api/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
}

func TestOutputSize(t *testing.T) {
	w, h := OutputSize(1920, 1080, 720)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	w, h = OutputSize(1080, 1920, 480)
	assert.Equal(t, 270, w)
	assert.Equal(t, 480, h)

	w, h = OutputSize(1001, 999, 0)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 998, h)

	w, h = OutputSize(0, 1080, 720)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestBuildArgs(t *testing.T) {
	opts := Options{Width: 1280, Height: 720, FPS: 30, Format: model.FormatMP4, Quality: model.QualityHigh}
	args := BuildArgs(opts, "out.mp4")

	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Contains(t, args, "1280x720")
	assert.Contains(t, args, "libx264")
	assert.Subset(t, args, []string{"-crf", "18"})

	args = BuildArgs(Options{Width: 640, Height: 360, FPS: 24, Format: model.FormatWebM, Quality: model.QualityLow}, "out.webm")
	assert.Contains(t, args, "libvpx-vp9")
	assert.Contains(t, args, "40")

	args = BuildArgs(Options{Width: 640, Height: 360, FPS: 60, Format: model.FormatGIF}, "out.gif")
	assert.Contains(t, args, "fps=15,split[a][b];[a]palettegen[p];[b][p]paletteuse")
	assert.NotContains(t, args, "libx264")
}

func TestBuildArgs_DefaultQuality(t *testing.T) {
	args := BuildArgs(Options{Width: 2, Height: 2, FPS: 1}, "x.mp4")
	assert.Contains(t, args, "23")
}

func TestExtensionAndContentType(t *testing.T) {
	assert.Equal(t, "mp4", Extension(model.FormatMP4))
	assert.Equal(t, "webm", Extension(model.FormatWebM))
	assert.Equal(t, "gif", Extension(model.FormatGIF))
	assert.Equal(t, "mp4", Extension(""))
	assert.Equal(t, "image/gif", ContentType(model.FormatGIF))
}

func TestToRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.Set(1, 1, color.NRGBA{10, 20, 30, 255})
	out := toRGBA(src, 4, 2)
	assert.Len(t, out.Pix, 4*2*4)
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, out.RGBAAt(1, 1))

	same := image.NewRGBA(image.Rect(0, 0, 4, 2))
	assert.Same(t, same, toRGBA(same, 4, 2))
}

func TestSession_EncodesGIF(t *testing.T) {
	skipIfNoFFmpeg(t)

	ff, err := New(zerolog.Nop(), "ffmpeg")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.gif")
	s, err := ff.Start(context.Background(), Options{Width: 32, Height: 18, FPS: 10, Format: model.FormatGIF}, out)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 32, 18))
		img.Set(i, i, color.RGBA{255, 255, 255, 255})
		require.NoError(t, s.WriteFrame(img))
	}
	require.NoError(t, s.Close())
	assert.Equal(t, 5, s.Frames())

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestStart_RejectsEmptySize(t *testing.T) {
	skipIfNoFFmpeg(t)
	ff, err := New(zerolog.Nop(), "")
	require.NoError(t, err)
	_, err = ff.Start(context.Background(), Options{FPS: 30}, "x.mp4")
	assert.Error(t, err)
}
