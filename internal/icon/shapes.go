package icon

import (
	"image"
	"image/color"
)

// insideRounded reports whether the pixel centre (x, y) lies inside the
// square [lo, hi) with corner radius r.
func insideRounded(x, y int, lo, hi, r float64) bool {
	px, py := float64(x)+0.5, float64(y)+0.5
	if px < lo || py < lo || px >= hi || py >= hi {
		return false
	}
	cx := min(max(px, lo+r), hi-r)
	cy := min(max(py, lo+r), hi-r)
	dx, dy := px-cx, py-cy
	return dx*dx+dy*dy <= r*r
}

func fillRounded(dst *image.RGBA, inset int, radius float64, c color.NRGBA) {
	s := dst.Bounds().Dx()
	lo, hi := float64(inset), float64(s-inset)
	for y := range s {
		for x := range s {
			if insideRounded(x, y, lo, hi, radius) {
				dst.Set(x, y, c)
			}
		}
	}
}

// strokeRounded paints the ring between the outer rounded square and one
// inset by thickness.
func strokeRounded(dst *image.RGBA, thickness int, radius float64, c color.NRGBA) {
	s := dst.Bounds().Dx()
	t := float64(thickness)
	inner := max(radius-t, 0)
	for y := range s {
		for x := range s {
			if insideRounded(x, y, 0, float64(s), radius) && !insideRounded(x, y, t, float64(s)-t, inner) {
				dst.Set(x, y, c)
			}
		}
	}
}

// drawCornerMarker fills a right triangle of edge m in the top-right corner,
// clipped to the rounded outline.
func drawCornerMarker(dst *image.RGBA, m int, radius float64, c color.NRGBA) {
	s := dst.Bounds().Dx()
	for y := range m {
		for x := s - m + y; x < s; x++ {
			if insideRounded(x, y, 0, float64(s), radius) {
				dst.Set(x, y, c)
			}
		}
	}
}
