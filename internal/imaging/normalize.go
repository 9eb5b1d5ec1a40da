package imaging

import (
	"image"
	"math"

	"github.com/sgchandra/anatomify/pkg/models"
)

// PixelRect maps a normalized box onto a canvas of the given pixel size.
//
// The analysis service is inconsistent about coordinate scale: some boxes
// arrive fractional in [0,1], others scaled by 1000. Each component is
// reconciled independently (magnitude above 1 means per-mille), because
// every observed box has been self-consistent but batches mix conventions.
// Row components map to y, column components to x. The minimum corner is
// floored and the maximum ceiled so a nonzero input range never collapses
// to zero area; a fully degenerate box still yields a 1px rectangle.
// Out-of-canvas coordinates are not an error, drawing clips at the raster
// bounds.
func PixelRect(box models.Box, width, height int) image.Rectangle {
	minRow := fractional(box.MinRow())
	minCol := fractional(box.MinCol())
	maxRow := fractional(box.MaxRow())
	maxCol := fractional(box.MaxCol())

	x0 := int(math.Floor(minCol * float64(width)))
	y0 := int(math.Floor(minRow * float64(height)))
	x1 := int(math.Ceil(maxCol * float64(width)))
	y1 := int(math.Ceil(maxRow * float64(height)))

	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	return image.Rect(x0, y0, x1, y1)
}

func fractional(c float64) float64 {
	if math.Abs(c) > 1 {
		return c / 1000
	}
	return c
}

// Center returns the midpoint of a rectangle.
func Center(r image.Rectangle) image.Point {
	return image.Point{
		X: r.Min.X + r.Dx()/2,
		Y: r.Min.Y + r.Dy()/2,
	}
}
