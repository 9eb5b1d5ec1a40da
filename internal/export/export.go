// Package export serializes a finished card set into the interchange
// formats the surrounding tools import: always-quoted CSV for desktop
// Anki, tab-separated text for the mobile app, Markdown notes, and a zip
// bundle that carries per-card media alongside the deck.
package export

import (
	"fmt"
	"time"

	"github.com/sgchandra/anatomify/pkg/models"
	"github.com/sgchandra/anatomify/pkg/utils"
)

const (
	suffixCSV      = "_anki_export.csv"
	suffixMobile   = "_mobile_import.txt"
	suffixMarkdown = "_notes.md"
	suffixArchive  = "_anki_pack.zip"
)

// Serializer turns card sets into export artifacts. A fresh value is
// constructed per export call; it holds policy, never card state.
type Serializer struct {
	flatMedia bool
	now       func() time.Time
}

type Option func(*Serializer)

// WithNestedMedia places embedded media under a media/ folder inside the
// archive instead of at its root. Root placement is the default because
// several importers fail to resolve subfolder-relative references.
func WithNestedMedia() Option {
	return func(s *Serializer) {
		s.flatMedia = false
	}
}

// WithClock overrides the timestamp source used for media filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Serializer) {
		s.now = now
	}
}

func NewSerializer(options ...Option) *Serializer {
	s := &Serializer{
		flatMedia: true,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Produce serializes cards into the requested format. Cards are borrowed
// read-only; the returned artifact owns an independent payload.
func (s *Serializer) Produce(cards []models.Flashcard, sourceFilename string, format models.ExportFormat) (*models.ExportArtifact, error) {
	base := utils.ExportBaseName(sourceFilename)

	switch format {
	case models.FormatCSV:
		return &models.ExportArtifact{
			Filename: base + suffixCSV,
			Kind:     models.KindPlainText,
			Data:     encodeCSV(cards),
		}, nil
	case models.FormatMobileText:
		return &models.ExportArtifact{
			Filename: base + suffixMobile,
			Kind:     models.KindPlainText,
			Data:     encodeTSV(cards),
		}, nil
	case models.FormatMarkdown:
		return &models.ExportArtifact{
			Filename: base + suffixMarkdown,
			Kind:     models.KindMarkdown,
			Data:     encodeMarkdown(cards),
		}, nil
	case models.FormatArchive:
		data, err := s.encodeArchive(cards, base)
		if err != nil {
			return nil, fmt.Errorf("failed to build archive bundle: %w", err)
		}
		return &models.ExportArtifact{
			Filename: base + suffixArchive,
			Kind:     models.KindArchive,
			Data:     data,
		}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
