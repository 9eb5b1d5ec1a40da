package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sgchandra/anatomify/pkg/logger"
	"github.com/sgchandra/anatomify/pkg/models"
)

var (
	accentColor  = color.RGBA{R: 220, G: 53, B: 69, A: 255}
	outlineColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadowColor  = color.RGBA{A: 110}
)

const (
	pointerLineWidth = 5
	pointerDotRadius = 9
	outlineStroke    = 3
	shadowOffsetX    = 3
	shadowOffsetY    = 4
	minBadgeRadius   = 20
)

// Annotator renders the pointer-and-badge marker onto card rasters. All
// drawing is pure integer blending, so identical inputs always produce
// identical output bytes.
type Annotator struct {
	maxDim  int
	quality int
	log     *logger.Logger
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithLimits applies configured raster bounds to the annotation stage.
func WithLimits(lim Limits) AnnotatorOption {
	return func(a *Annotator) {
		lim = lim.normalized()
		a.maxDim = lim.MaxAnnotateDim
		a.quality = lim.JPEGQuality
	}
}

func NewAnnotator(log *logger.Logger, opts ...AnnotatorOption) *Annotator {
	a := &Annotator{
		maxDim:  MaxAnnotateDim,
		quality: JPEGQuality,
		log:     log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate draws the numbered badge for a card onto a copy of the base
// raster. When a structure box is present, a pointer line runs from the
// label-box center to the structure-box center, terminated by a filled
// dot, so the badge and the structure it names stay visually distinct.
// With no label box the input passes through untouched; the orchestrator
// should not call Annotate in that case, but it must not fail here either.
// The result is encoded in the same media type as the input.
func (a *Annotator) Annotate(data []byte, mediaType string, label, structure *models.Box, index int) ([]byte, error) {
	if label == nil {
		a.log.Debug("card %d has no label box, skipping annotation", index)
		return data, nil
	}

	src, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode annotation base: %w", err)
	}

	canvas := flattenOnWhite(scaleToFit(src, a.maxDim))
	w := canvas.Bounds().Dx()
	h := canvas.Bounds().Dy()

	labelRect := PixelRect(*label, w, h)
	badgeCenter := Center(labelRect)

	if structure != nil {
		structRect := PixelRect(*structure, w, h)
		target := Center(structRect)
		drawLine(canvas, badgeCenter, target, pointerLineWidth, accentColor)
		fillDisc(canvas, target, pointerDotRadius, accentColor)
	}

	radius := badgeRadius(labelRect)
	shadow := badgeCenter.Add(image.Point{X: shadowOffsetX, Y: shadowOffsetY})
	fillDisc(canvas, shadow, radius+outlineStroke, shadowColor)
	fillDisc(canvas, badgeCenter, radius+outlineStroke, outlineColor)
	fillDisc(canvas, badgeCenter, radius, accentColor)
	drawBadgeNumber(canvas, badgeCenter, radius, index)

	out, err := encodeRaster(canvas, mediaType, a.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated raster: %w", err)
	}
	return out, nil
}

// badgeRadius keeps the badge legible on small boxes without letting a
// large box inflate it past its own shorter side.
func badgeRadius(labelRect image.Rectangle) int {
	short := labelRect.Dx()
	if labelRect.Dy() < short {
		short = labelRect.Dy()
	}
	r := int(0.7 * float64(short))
	if r < minBadgeRadius {
		r = minBadgeRadius
	}
	return r
}

// fillDisc blends a filled circle onto dst. Pixels outside dst clip
// naturally through DrawMask.
func fillDisc(dst draw.Image, center image.Point, radius int, c color.Color) {
	mask := &discMask{center: center, radius: radius}
	bounds := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1)
	draw.DrawMask(dst, bounds, image.NewUniform(c), image.Point{}, mask, bounds.Min, draw.Over)
}

// discMask is a hard-edged circular alpha mask.
type discMask struct {
	center image.Point
	radius int
}

func (m *discMask) ColorModel() color.Model { return color.AlphaModel }

func (m *discMask) Bounds() image.Rectangle {
	return image.Rect(m.center.X-m.radius, m.center.Y-m.radius, m.center.X+m.radius+1, m.center.Y+m.radius+1)
}

func (m *discMask) At(x, y int) color.Color {
	dx := x - m.center.X
	dy := y - m.center.Y
	if dx*dx+dy*dy <= m.radius*m.radius {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// drawLine draws a straight segment of the given width by stamping discs
// along the longer axis, one stamp per pixel step.
func drawLine(dst draw.Image, from, to image.Point, width int, c color.Color) {
	dx := to.X - from.X
	dy := to.Y - from.Y

	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		fillDisc(dst, from, width/2, c)
		return
	}

	for i := 0; i <= steps; i++ {
		x := from.X + dx*i/steps
		y := from.Y + dy*i/steps
		fillDisc(dst, image.Point{X: x, Y: y}, width/2, c)
	}
}

// drawBadgeNumber centers the decimal card index inside the badge. The
// digits are rasterized once with the built-in bitmap face and scaled by
// an integer factor derived from the badge radius, which keeps text
// rendering deterministic with no font-file dependency.
func drawBadgeNumber(dst draw.Image, center image.Point, radius, index int) {
	text := strconv.Itoa(index)
	face := basicfont.Face7x13

	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	plate := image.NewRGBA(image.Rect(0, 0, textWidth, textHeight))
	drawer := &font.Drawer{
		Dst:  plate,
		Src:  image.NewUniform(outlineColor),
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	drawer.DrawString(text)

	scale := radius / 12
	if scale < 1 {
		scale = 1
	}

	scaledW := textWidth * scale
	scaledH := textHeight * scale
	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), plate, plate.Bounds(), xdraw.Over, nil)

	topLeft := image.Point{X: center.X - scaledW/2, Y: center.Y - scaledH/2}
	target := image.Rectangle{Min: topLeft, Max: topLeft.Add(image.Point{X: scaledW, Y: scaledH})}
	draw.Draw(dst, target, scaled, image.Point{}, draw.Over)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
