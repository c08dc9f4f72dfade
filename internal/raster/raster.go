// Package raster paints composited frames into images. Image layers backed
// by a file under the asset root are drawn from that file; every other visual layer
// is drawn as a tinted box labelled with its asset, which is enough for
// previews and for encoding a storyboard-style render.
package raster

import (
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/framecut/api/internal/timeline"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	backgroundColor  = color.RGBA{16, 16, 20, 255}
	placeholderColor = color.RGBA{140, 140, 150, 255}
	textColor        = color.RGBA{255, 255, 255, 255}
)

// basicfont glyphs are 13px tall; text is scaled so a line is this share of
// the canvas height.
const (
	glyphHeight      = 13.0
	textHeightFactor = 0.06
)

// imageCacheSize bounds the decoded assets (hits and misses) kept in memory
const imageCacheSize = 64

// Painter turns frames into images. It caches decoded local assets and is
// safe for concurrent use.
type Painter struct {
	root   string
	images *lru.Cache[string, image.Image]
}

// NewPainter creates a painter that reads image assets only from files
// inside assetRoot. An empty root disables local reads.
func NewPainter(assetRoot string) *Painter {
	images, _ := lru.New[string, image.Image](imageCacheSize)
	p := &Painter{images: images}
	if assetRoot != "" {
		if abs, err := filepath.Abs(assetRoot); err == nil {
			p.root = abs
		}
	}
	return p
}

// Paint renders frame at width x height. The frame's canvas is scaled
// uniformly to fit the output.
func (p *Painter) Paint(frame timeline.Frame, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	sx, sy := 1.0, 1.0
	if frame.Width > 0 && frame.Height > 0 {
		sx = float64(width) / float64(frame.Width)
		sy = float64(height) / float64(frame.Height)
	}

	if frame.Empty {
		drawLabel(dc, frame.Placeholder, float64(width)/2, float64(height)/2, float64(height)*textHeightFactor, placeholderColor)
		return dc.Image()
	}

	for i := range frame.Layers {
		layer := &frame.Layers[i]
		alpha := clampUnit(layer.Modifiers.Opacity)
		if alpha == 0 || layer.AssetType == timeline.AssetTypeAudio {
			continue
		}
		cx := float64(width)/2 + layer.Modifiers.TranslateX*sx
		cy := float64(height)/2 + layer.Modifiers.TranslateY*sy

		switch layer.AssetType {
		case timeline.AssetTypeText:
			size := float64(height) * textHeightFactor * layer.Modifiers.Scale
			drawLabel(dc, layer.Text, cx, cy, size, withAlpha(textColor, alpha))
		default:
			w := float64(width) * layer.Modifiers.Scale
			h := float64(height) * layer.Modifiers.Scale
			if img, ok := p.asset(layer); ok {
				p.drawImage(dc, img, cx, cy, w, h, alpha)
			} else {
				drawBox(dc, layer, cx, cy, w, h, alpha)
			}
		}
	}
	return dc.Image()
}

// EncodePNG paints frame and writes it as PNG
func (p *Painter) EncodePNG(w io.Writer, frame timeline.Frame, width, height int) error {
	return png.Encode(w, p.Paint(frame, width, height))
}

func (p *Painter) drawImage(dc *gg.Context, img image.Image, cx, cy, w, h, alpha float64) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	// fit inside the layer box keeping aspect ratio
	fit := math.Min(w/float64(b.Dx()), h/float64(b.Dy()))

	layer := gg.NewContext(dc.Width(), dc.Height())
	layer.Translate(cx, cy)
	layer.Scale(fit, fit)
	layer.DrawImageAnchored(img, 0, 0, 0.5, 0.5)

	dst, ok := dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})
	draw.DrawMask(dst, dst.Bounds(), layer.Image(), image.Point{}, mask, image.Point{}, draw.Over)
}

func drawBox(dc *gg.Context, layer *timeline.Layer, cx, cy, w, h, alpha float64) {
	x, y := cx-w/2, cy-h/2
	dc.DrawRectangle(x, y, w, h)
	dc.SetColor(withAlpha(tint(layer.ClipID), alpha))
	dc.Fill()

	dc.DrawRectangle(x, y, w, h)
	dc.SetLineWidth(2)
	dc.SetColor(withAlpha(color.RGBA{255, 255, 255, 255}, alpha*0.6))
	dc.Stroke()

	label := assetName(layer.AssetURL)
	if label == "" {
		label = string(layer.AssetType)
	}
	size := math.Max(h*0.05, glyphHeight)
	dc.Push()
	dc.Translate(x+size/2, y+h-size/2)
	dc.Scale(size/glyphHeight, size/glyphHeight)
	dc.SetColor(withAlpha(textColor, alpha))
	dc.DrawStringAnchored(label, 0, 0, 0, 0)
	dc.Pop()
}

func drawLabel(dc *gg.Context, text string, cx, cy, size float64, c color.Color) {
	if text == "" || size <= 0 {
		return
	}
	k := size / glyphHeight
	dc.Push()
	dc.Translate(cx, cy)
	dc.Scale(k, k)
	dc.SetColor(c)
	for i, line := range strings.Split(text, "\n") {
		dc.DrawStringAnchored(line, 0, float64(i)*glyphHeight*1.2, 0.5, 0.5)
	}
	dc.Pop()
}

// asset returns the decoded image behind an image layer when its URL points
// at a readable file under the asset root. Failures are cached as misses.
func (p *Painter) asset(layer *timeline.Layer) (image.Image, bool) {
	if layer.AssetType != timeline.AssetTypeImage {
		return nil, false
	}
	file, ok := p.localPath(layer.AssetURL)
	if !ok {
		return nil, false
	}

	if img, seen := p.images.Get(file); seen {
		return img, img != nil
	}
	img, err := gg.LoadImage(file)
	if err != nil {
		p.images.Add(file, nil)
		return nil, false
	}
	p.images.Add(file, img)
	return img, true
}

// localPath resolves a file:// URL or a plain path against the asset root.
// Relative paths are taken from the root; anything resolving outside it
// is refused.
func (p *Painter) localPath(raw string) (string, bool) {
	if p.root == "" || raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		raw = u.Path
	} else if strings.Contains(raw, "://") {
		return "", false
	}

	file := filepath.FromSlash(raw)
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.root, file)
	}
	file = filepath.Clean(file)
	rel, err := filepath.Rel(p.root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return file, true
}

func assetName(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

// tint derives a stable mid-saturation color from a clip ID
func tint(id string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(id))
	hue := float64(h.Sum32()%360) / 60
	x := 1 - math.Abs(math.Mod(hue, 2)-1)

	var r, g, b float64
	switch int(hue) {
	case 0:
		r, g, b = 1, x, 0
	case 1:
		r, g, b = x, 1, 0
	case 2:
		r, g, b = 0, 1, x
	case 3:
		r, g, b = 0, x, 1
	case 4:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}
	const lo, span = 60, 140
	return color.RGBA{uint8(lo + r*span), uint8(lo + g*span), uint8(lo + b*span), 255}
}

func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(clampUnit(alpha) * float64(c.A)))}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
