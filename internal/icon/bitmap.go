package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ico "github.com/sergeymakinen/go-ico"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// Unknown is the quantized percentage used when no data is available.
const Unknown = -1

// maxDisplayPct keeps labels to three digits.
const maxDisplayPct = 999

// Key identifies a rendered icon.
type Key struct {
	Pct    int
	Status models.StatusClass
}

// KeyFor quantizes pct to whole percent. Negative or NaN input is Unknown.
func KeyFor(pct float64, status models.StatusClass) Key {
	return Key{Pct: Quantize(pct), Status: status}
}

// Quantize rounds pct to the nearest whole percent for display and caching.
func Quantize(pct float64) int {
	if math.IsNaN(pct) || pct < 0 {
		return Unknown
	}
	if pct >= maxDisplayPct {
		return maxDisplayPct
	}
	return int(math.Round(pct))
}

// Label is the text drawn on the icon.
func (k Key) Label() string {
	if k.Pct == Unknown {
		return "?"
	}
	return strconv.Itoa(k.Pct)
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Pct, k.Status)
}

// Bitmap is an immutable rendered icon.
type Bitmap struct {
	img *image.NRGBA
	png []byte
	Key Key
}

// Size returns the edge length in pixels.
func (b *Bitmap) Size() int {
	return b.img.Bounds().Dx()
}

// PNG returns the PNG encoding of the icon.
func (b *Bitmap) PNG() []byte {
	return bytes.Clone(b.png)
}

// Pixels returns the non-premultiplied RGBA pixel buffer, row major.
func (b *Bitmap) Pixels() []byte {
	return bytes.Clone(b.img.Pix)
}

// At returns the colour of the pixel at (x, y).
func (b *Bitmap) At(x, y int) color.NRGBA {
	return b.img.NRGBAAt(x, y)
}

// Image returns a copy of the icon as an image.
func (b *Bitmap) Image() image.Image {
	c := image.NewNRGBA(b.img.Rect)
	copy(c.Pix, b.img.Pix)
	return c
}

// ICO returns the icon in Windows ICO format.
func (b *Bitmap) ICO() ([]byte, error) {
	var buf bytes.Buffer
	if err := ico.Encode(&buf, b.img); err != nil {
		return nil, fmt.Errorf("failed to encode ico: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode returns the icon in the format named by a file extension:
// ".ico" selects ICO, ".rgba" the raw pixel buffer, anything else PNG.
func (b *Bitmap) Encode(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".ico":
		return b.ICO()
	case ".rgba":
		return b.Pixels(), nil
	default:
		return b.PNG(), nil
	}
}

// WriteFile writes the icon to path, choosing the format by extension.
func (b *Bitmap) WriteFile(path string) error {
	data, err := b.Encode(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write icon: %w", err)
	}
	return nil
}
