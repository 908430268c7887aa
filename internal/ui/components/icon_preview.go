package components

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderImage draws img with upper half blocks, two pixel rows per line.
// Transparent pixels take the terminal background.
func RenderImage(img image.Image) string {
	if img == nil {
		return ""
	}
	b := img.Bounds()

	var out strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			out.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.At(x, y)
			var bottom color.Color = color.Transparent
			if y+1 < b.Max.Y {
				bottom = img.At(x, y+1)
			}
			out.WriteString(cell(top, bottom))
		}
	}
	return out.String()
}

func cell(top, bottom color.Color) string {
	topHex, topOK := hexColor(top)
	bottomHex, bottomOK := hexColor(bottom)

	switch {
	case topOK && bottomOK:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(topHex)).
			Background(lipgloss.Color(bottomHex)).
			Render("▀")
	case topOK:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(topHex)).Render("▀")
	case bottomOK:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(bottomHex)).Render("▄")
	default:
		return " "
	}
}

// hexColor converts c to #rrggbb. Mostly transparent colours report false.
func hexColor(c color.Color) (string, bool) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A < 0x40 {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B), true
}
