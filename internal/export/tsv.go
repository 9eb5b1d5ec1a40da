package export

import (
	"strings"

	"github.com/sgchandra/anatomify/pkg/models"
)

// encodeTSV writes one tab-separated record per card for the mobile
// importer: front, back, space-joined tags.
func encodeTSV(cards []models.Flashcard) []byte {
	var b strings.Builder
	for _, card := range cards {
		b.WriteString(tsvRecord(card.Front, card.Back, card.Tags))
	}
	return []byte(b.String())
}

// tsvRecord renders one record. Literal newlines become explicit <br>
// markup so multi-line content survives import, and literal tabs become
// four spaces so a field can never add a column boundary.
func tsvRecord(front, back string, tags []string) string {
	return sanitizeTSVField(front) + "\t" +
		sanitizeTSVField(back) + "\t" +
		sanitizeTSVField(strings.Join(tags, " ")) + "\n"
}

func sanitizeTSVField(field string) string {
	field = strings.ReplaceAll(field, "\r\n", "\n")
	field = strings.ReplaceAll(field, "\r", "\n")
	field = strings.ReplaceAll(field, "\n", "<br>")
	field = strings.ReplaceAll(field, "\t", "    ")
	return field
}
