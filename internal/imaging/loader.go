package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxIngestDim caps rasters handed to the analysis service.
	MaxIngestDim = 2500
	// MaxAnnotateDim caps the annotation working canvas.
	MaxAnnotateDim = 1200
	// JPEGQuality is the fixed quality for the single lossy ingest pass.
	JPEGQuality = 85
)

// Limits carries the configurable raster bounds. A zero field falls back
// to the package default, so the zero value is usable as-is.
type Limits struct {
	MaxIngestDim   int
	MaxAnnotateDim int
	JPEGQuality    int
}

func DefaultLimits() Limits {
	return Limits{
		MaxIngestDim:   MaxIngestDim,
		MaxAnnotateDim: MaxAnnotateDim,
		JPEGQuality:    JPEGQuality,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxIngestDim <= 0 {
		l.MaxIngestDim = MaxIngestDim
	}
	if l.MaxAnnotateDim <= 0 {
		l.MaxAnnotateDim = MaxAnnotateDim
	}
	if l.JPEGQuality <= 0 {
		l.JPEGQuality = JPEGQuality
	}
	return l
}

// PrepareSource normalizes an uploaded document for the analysis service.
// Page-oriented documents (PDF) pass through untouched. Raster images are
// decoded, capped at the ingest limit preserving aspect ratio, flattened
// onto opaque white, and re-encoded as JPEG. Returns the prepared bytes
// and their media type.
func PrepareSource(data []byte, mediaType string, lim Limits) ([]byte, string, error) {
	lim = lim.normalized()

	if mediaType == "application/pdf" {
		return data, mediaType, nil
	}

	img, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s source: %w", mediaType, err)
	}

	canvas := flattenOnWhite(scaleToFit(img, lim.MaxIngestDim))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: lim.JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode prepared source: %w", err)
	}

	return buf.Bytes(), "image/jpeg", nil
}

// Decode turns raster bytes into an image. A decode failure is fatal for
// the file; no partial raster is ever returned.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Encode re-encodes a raster in the requested media type. The annotation
// stage calls this with the cleaned input's own media type so the badge
// pass does not add a second lossy generation on PNG sources.
func Encode(img image.Image, mediaType string) ([]byte, error) {
	return encodeRaster(img, mediaType, JPEGQuality)
}

func encodeRaster(img image.Image, mediaType string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch mediaType {
	case "image/png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// scaleToFit uniformly downscales img so neither dimension exceeds maxDim.
// Images already within bounds are returned as-is; scaling is never
// anisotropic and never upscales.
func scaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if hs := float64(maxDim) / float64(h); hs < scale {
		scale = hs
	}

	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// flattenOnWhite composites img over an opaque white background so
// transparency does not turn into black blotches in the JPEG pass.
func flattenOnWhite(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
	return canvas
}
