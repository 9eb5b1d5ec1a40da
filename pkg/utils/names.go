package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ExportBaseName strips the source document's extension and sanitizes the
// remainder so it is safe as a filename stem across platforms.
func ExportBaseName(sourceFilename string) string {
	base := filepath.Base(sourceFilename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)

	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	base = replacer.Replace(base)

	if base == "" {
		base = "flashcards"
	}
	return base
}

// MediaFileName builds a per-card media filename that cannot collide with
// any other card's within one export: the 1-based card index distinguishes
// cards, the timestamp distinguishes exports.
func MediaFileName(base string, index int, ts time.Time, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%d_card%03d%s", base, ts.Unix(), index, ext)
}

// ExtensionForMediaType maps a media type to the filename extension used
// for embedded media.
func ExtensionForMediaType(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
