// Package document turns files on disk into sources the pipeline can
// consume: it detects the media type, validates PDFs, and rasterizes
// scanned-PDF pages when the image pipeline should handle them.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/sgchandra/anatomify/internal/imaging"
	"github.com/sgchandra/anatomify/pkg/logger"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
)

// Source is one loaded input document.
type Source struct {
	Path      string
	Filename  string
	MediaType string
	Data      []byte
	PageCount int
}

// IsImage reports whether the source runs through the image pipeline.
func (s *Source) IsImage() bool {
	return s.MediaType != MediaTypePDF
}

// DetectMediaType maps a filename to the media type this tool supports,
// or "" for unsupported files.
func DetectMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return MediaTypePDF
	case ".png":
		return MediaTypePNG
	case ".jpg", ".jpeg":
		return MediaTypeJPEG
	default:
		return ""
	}
}

type Loader struct {
	log *logger.Logger
}

func NewLoader(log *logger.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads and validates one document. PDFs are structurally validated
// and keep their raw bytes; raster images are decoded defensively here so
// corrupt files fail at load time rather than mid-pipeline.
func (l *Loader) Load(path string) (*Source, error) {
	mediaType := DetectMediaType(path)
	if mediaType == "" {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	src := &Source{
		Path:      path,
		Filename:  filepath.Base(path),
		MediaType: mediaType,
		Data:      data,
	}

	if mediaType == MediaTypePDF {
		if err := api.ValidateFile(path, nil); err != nil {
			return nil, fmt.Errorf("invalid PDF %s: %w", path, err)
		}
		count, err := api.PageCountFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to count pages in %s: %w", path, err)
		}
		src.PageCount = count
		l.log.Debug("loaded PDF %s (%d pages)", src.Filename, count)
		return src, nil
	}

	if _, err := imaging.Decode(data); err != nil {
		return nil, fmt.Errorf("undecodable image %s: %w", path, err)
	}
	l.log.Debug("loaded image %s (%d bytes)", src.Filename, len(data))
	return src, nil
}

// RasterizeFirstPage renders a PDF's first page to a PNG raster so an
// imagery-dominant scan (per document analysis) can run through the image
// pipeline like a photo would.
func (l *Loader) RasterizeFirstPage(path string) ([]byte, string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open PDF for rasterizing: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, "", fmt.Errorf("PDF has no pages: %s", path)
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, "", fmt.Errorf("failed to rasterize first page: %w", err)
	}

	data, err := imaging.Encode(img, MediaTypePNG)
	if err != nil {
		return nil, "", err
	}

	l.log.Debug("rasterized first page of %s (%dx%d)", filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy())
	return data, MediaTypePNG, nil
}
