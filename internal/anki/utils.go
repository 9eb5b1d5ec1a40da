package anki

import (
	"path/filepath"
	"strings"
)

const (
	ANKI_CONNECT_VERSION = 6
)

// GetDeckNameFromPath builds a nested Anki deck name (Root::Dir::File)
// from a document's path relative to the scan root.
func GetDeckNameFromPath(rootPrefix string, relativePath string) string {
	dirPath := filepath.Dir(relativePath)
	if dirPath == "." {
		dirPath = ""
	}

	fileName := strings.TrimSuffix(filepath.Base(relativePath), filepath.Ext(relativePath))

	var parts []string

	if rootPrefix != "" {
		parts = append(parts, rootPrefix)
	}

	if dirPath != "" {
		dirParts := strings.Split(dirPath, string(filepath.Separator))
		parts = append(parts, dirParts...)
	}

	parts = append(parts, fileName)

	// Anki's nested-deck separator.
	return strings.Join(parts, "::")
}

func deckNameForTag(deckName string) string {
	return strings.ReplaceAll(strings.TrimSpace(deckName), " ", "_")
}
