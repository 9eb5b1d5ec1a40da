package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/sgchandra/anatomify/pkg/models"
	"github.com/sgchandra/anatomify/pkg/utils"
)

const instructionsFilename = "IMPORT_INSTRUCTIONS.txt"

const instructionsText = `How to import this deck into Anki
=================================

Option A: desktop import (recommended)
  1. Unzip this archive.
  2. Copy every image file into your Anki profile's collection.media
     folder (Tools > Check Media shows its location).
  3. In Anki, File > Import, choose the .txt file from this archive.
     Set the field separator to Tab and allow HTML in fields.

Option B: direct archive import
  Some Anki versions and add-ons can import the zip directly. If images
  show as broken after a direct import, fall back to Option A.

Known issue: a few importers silently drop media references that point
into subfolders. The images in this archive sit next to the .txt file
for exactly that reason; keep them together when copying.
`

// encodeArchive builds the self-contained bundle: the mobile-format TSV,
// every rendered card image under a collision-free name, and a plain-text
// instructions file. Media placement defaults to archive root; the nested
// policy exists for importers that prefer a media/ folder.
func (s *Serializer) encodeArchive(cards []models.Flashcard, base string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ts := s.now()
	mediaDir := ""
	if !s.flatMedia {
		mediaDir = "media/"
	}

	var records strings.Builder
	for i, card := range cards {
		front := card.Front

		if len(card.Image) > 0 {
			ext := utils.ExtensionForMediaType(card.ImageMediaType)
			name := utils.MediaFileName(base, i+1, ts, ext)

			if err := writeArchiveFile(zw, mediaDir+name, card.Image); err != nil {
				return nil, fmt.Errorf("failed to add media for card %d: %w", i+1, err)
			}
			front = front + `<br><img src="` + mediaDir + name + `">`
		}

		records.WriteString(tsvRecord(front, card.Back, card.Tags))
	}

	if err := writeArchiveFile(zw, base+"_anki_import.txt", []byte(records.String())); err != nil {
		return nil, fmt.Errorf("failed to add card file: %w", err)
	}

	if err := writeArchiveFile(zw, instructionsFilename, []byte(instructionsText)); err != nil {
		return nil, fmt.Errorf("failed to add instructions: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

func writeArchiveFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
