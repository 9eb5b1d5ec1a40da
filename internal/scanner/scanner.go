package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/pkg/logger"
)

// Document is one supported file found under the scan root.
type Document struct {
	AbsolutePath string
	RelativePath string
	MediaType    string
}

type DirectoryScanner struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{logger: logger}
}

// FindDocuments walks dir for files this tool can process (PDFs and
// raster images) and returns them in walk order.
func (s *DirectoryScanner) FindDocuments(ctx context.Context, dir string) ([]Document, error) {
	var docs []Document

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			s.logger.Debug("Scanning directory: %s", path)
			return nil
		}

		mediaType := document.DetectMediaType(path)
		if mediaType == "" {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}

		docs = append(docs, Document{
			AbsolutePath: path,
			RelativePath: relPath,
			MediaType:    mediaType,
		})
		s.logger.Debug("Found document (%d): %s", len(docs), relPath)

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no supported documents found in %s or its subdirectories", dir)
	}

	return docs, nil
}
