package export

import (
	"strings"

	"github.com/sgchandra/anatomify/pkg/models"
)

// utf8BOM keeps non-ASCII glyphs (anatomical Unicode, sub/superscripts)
// intact when the file is opened in spreadsheet tools.
const utf8BOM = "\uFEFF"

// encodeCSV writes one record per card: front, back, space-joined tags.
// Every field is double-quoted with internal quotes doubled, so embedded
// commas, quotes and newlines can never break a row.
func encodeCSV(cards []models.Flashcard) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)

	for _, card := range cards {
		b.WriteString(quoteCSV(card.Front))
		b.WriteByte(',')
		b.WriteString(quoteCSV(card.Back))
		b.WriteByte(',')
		b.WriteString(quoteCSV(strings.Join(card.Tags, " ")))
		b.WriteByte('\n')
	}

	return []byte(b.String())
}

func quoteCSV(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
