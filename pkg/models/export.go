package models

import "fmt"

// ExportFormat selects one of the supported card-set encodings.
type ExportFormat string

const (
	FormatCSV        ExportFormat = "csv"
	FormatMobileText ExportFormat = "mobile-text"
	FormatMarkdown   ExportFormat = "markdown"
	FormatArchive    ExportFormat = "archive"
)

// ParseExportFormat maps a user-supplied format name to an ExportFormat.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV, FormatMobileText, FormatMarkdown, FormatArchive:
		return ExportFormat(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, mobile-text, markdown or archive)", s)
	}
}

// ContentKind declares what an ExportArtifact's payload is.
type ContentKind string

const (
	KindPlainText ContentKind = "text/plain"
	KindMarkdown  ContentKind = "text/markdown"
	KindArchive   ContentKind = "application/zip"
)

// ExportArtifact is the finished, immutable output of one export request:
// an in-memory payload plus the filename it should be delivered under.
type ExportArtifact struct {
	Filename string
	Kind     ContentKind
	Data     []byte
}
