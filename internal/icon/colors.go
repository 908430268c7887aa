package icon

import (
	"image/color"
	"math"

	"github.com/j-veylop/usage-indicator/internal/models"
)

// Band is a usage severity band.
type Band int

const (
	BandNominal Band = iota
	BandElevated
	BandCritical
)

// Band thresholds in whole percent.
const (
	elevatedFrom = 50
	criticalFrom = 80
)

// BandFor maps a quantized percentage onto a band. The mapping is a
// monotonic step function.
func BandFor(pct int) Band {
	switch {
	case pct >= criticalFrom:
		return BandCritical
	case pct >= elevatedFrom:
		return BandElevated
	default:
		return BandNominal
	}
}

var (
	colorNominal  = color.NRGBA{R: 46, G: 160, B: 67, A: 255}
	colorElevated = color.NRGBA{R: 230, G: 162, B: 0, A: 255}
	colorCritical = color.NRGBA{R: 210, G: 45, B: 45, A: 255}
	colorUnknown  = color.NRGBA{R: 96, G: 96, B: 96, A: 255}

	colorOffline     = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	colorAuthError   = color.NRGBA{R: 250, G: 204, B: 21, A: 255}
	colorRateLimited = color.NRGBA{R: 249, G: 115, B: 22, A: 255}
	colorAPIError    = color.NRGBA{R: 192, G: 38, B: 211, A: 255}

	colorStaleMarker = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colorTextDark    = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	colorTextLight   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// BandColor returns the background colour of a band.
func BandColor(b Band) color.NRGBA {
	switch b {
	case BandCritical:
		return colorCritical
	case BandElevated:
		return colorElevated
	default:
		return colorNominal
	}
}

func background(key Key) color.NRGBA {
	if key.Pct == Unknown {
		return colorUnknown
	}
	c := BandColor(BandFor(key.Pct))
	if key.Status == models.StatusStale {
		return desaturate(c, 0.7)
	}
	return c
}

// StatusColor returns the border colour for non-normal statuses.
func StatusColor(status models.StatusClass) (color.NRGBA, bool) {
	switch status {
	case models.StatusOffline:
		return colorOffline, true
	case models.StatusAuthError:
		return colorAuthError, true
	case models.StatusRateLimited:
		return colorRateLimited, true
	case models.StatusAPIError:
		return colorAPIError, true
	default:
		return color.NRGBA{}, false
	}
}

// TextColor picks dark or light text for legibility on bg.
func TextColor(bg color.NRGBA) color.NRGBA {
	if relativeLuminance(bg) > 0.4 {
		return colorTextDark
	}
	return colorTextLight
}

// relativeLuminance follows the WCAG definition.
func relativeLuminance(c color.NRGBA) float64 {
	lin := func(v uint8) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// desaturate blends c toward its gray value by amount in [0,1].
func desaturate(c color.NRGBA, amount float64) color.NRGBA {
	gray := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	mix := func(v uint8) uint8 {
		return uint8(math.Round(float64(v)*(1-amount) + gray*amount))
	}
	return color.NRGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}
