// Package icon renders the tray icon bitmaps.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/state"
)

// Options configures the renderer.
type Options struct {
	// Size is the output edge length in pixels.
	Size int
	// Supersample is the render scale before downsampling.
	Supersample int
	// CacheSize bounds the number of cached bitmaps.
	CacheSize int
	// Metric selects the percentage shown by RenderView.
	Metric models.Metric
	// StaleAfter marks active data older than this as stale. Zero disables.
	StaleAfter time.Duration
}

// DefaultOptions returns the default renderer options.
func DefaultOptions() Options {
	return Options{
		Size:        32,
		Supersample: 4,
		CacheSize:   256,
		Metric:      models.MetricWeekly,
	}
}

// Stats reports renderer activity.
type Stats struct {
	Renders int64
	Hits    int64
	Cached  int
}

// Renderer draws icons and caches them by Key. It is safe for concurrent use.
type Renderer struct {
	font    *opentype.Font
	cache   *lru.Cache[Key, *Bitmap]
	group   singleflight.Group
	opts    Options
	renders atomic.Int64
	hits    atomic.Int64
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Size <= 0 || opts.Supersample <= 0 || opts.CacheSize <= 0 {
		return nil, errors.New("icon size, supersample and cache size must be positive")
	}
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse icon font: %w", err)
	}
	cache, err := lru.New[Key, *Bitmap](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}
	return &Renderer{font: f, cache: cache, opts: opts}, nil
}

// Render returns the bitmap for key, drawing it on a cache miss.
func (r *Renderer) Render(key Key) (*Bitmap, error) {
	if b, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		return b, nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		// Another caller may have filled the cache since the miss above.
		if b, ok := r.cache.Peek(key); ok {
			return b, nil
		}
		b, err := r.draw(key)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bitmap), nil
}

// RenderPercent quantizes pct and renders it.
func (r *Renderer) RenderPercent(pct float64, status models.StatusClass) (*Bitmap, error) {
	return r.Render(KeyFor(pct, status))
}

// RenderView renders the icon for the given state view.
func (r *Renderer) RenderView(v state.View, now time.Time) (*Bitmap, error) {
	return r.RenderPercent(v.Percent(r.opts.Metric), v.Status(now, r.opts.StaleAfter))
}

// Stats returns render and cache counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Renders: r.renders.Load(),
		Hits:    r.hits.Load(),
		Cached:  r.cache.Len(),
	}
}

func (r *Renderer) draw(key Key) (*Bitmap, error) {
	r.renders.Add(1)

	s := r.opts.Size * r.opts.Supersample
	canvas := image.NewRGBA(image.Rect(0, 0, s, s))
	radius := float64(s) / 6

	bg := background(key)
	fillRounded(canvas, 0, radius, bg)

	inset := s / 16
	if border, ok := StatusColor(key.Status); ok {
		thickness := max(s/12, 1)
		strokeRounded(canvas, thickness, radius, border)
		inset = thickness + s/32
	}
	if key.Status == models.StatusStale {
		drawCornerMarker(canvas, s/3, radius, colorStaleMarker)
	}

	if err := r.drawLabel(canvas, key.Label(), TextColor(bg), inset); err != nil {
		return nil, err
	}

	small := resize.Resize(uint(r.opts.Size), uint(r.opts.Size), canvas, resize.Lanczos3)
	out := image.NewNRGBA(image.Rect(0, 0, r.opts.Size, r.opts.Size))
	draw.Draw(out, out.Bounds(), small, small.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return &Bitmap{Key: key, img: out, png: buf.Bytes()}, nil
}

// drawLabel centres text, shrinking the font until it fits inside inset.
func (r *Renderer) drawLabel(dst *image.RGBA, text string, c color.NRGBA, inset int) error {
	s := dst.Bounds().Dx()
	maxW := fixed.I(s - 2*inset)
	maxH := fixed.I((s - 2*inset) * 3 / 4)

	size := float64(s) * 0.7
	minSize := float64(s) / 8
	for {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return fmt.Errorf("failed to create font face: %w", err)
		}

		bounds, _ := font.BoundString(face, text)
		w := bounds.Max.X - bounds.Min.X
		h := bounds.Max.Y - bounds.Min.Y
		if (w <= maxW && h <= maxH) || size <= minSize {
			d := &font.Drawer{
				Dst:  dst,
				Src:  image.NewUniform(c),
				Face: face,
				Dot: fixed.Point26_6{
					X: (fixed.I(s)-w)/2 - bounds.Min.X,
					Y: (fixed.I(s)-h)/2 - bounds.Min.Y,
				},
			}
			d.DrawString(text)
			return face.Close()
		}

		if err := face.Close(); err != nil {
			return err
		}
		size *= 0.9
	}
}
