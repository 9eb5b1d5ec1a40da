package export

import (
	"strings"

	"github.com/sgchandra/anatomify/pkg/models"
)

// encodeMarkdown writes one block per card: a heading with the front, an
// answer line, a tag line, and a horizontal rule between cards.
func encodeMarkdown(cards []models.Flashcard) []byte {
	var b strings.Builder

	for _, card := range cards {
		b.WriteString("## ")
		b.WriteString(card.Front)
		b.WriteString("\n\n")
		b.WriteString("Answer: ")
		b.WriteString(card.Back)
		b.WriteString("\n\n")

		if len(card.Tags) > 0 {
			for i, tag := range card.Tags {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteByte('#')
				b.WriteString(tag)
			}
			b.WriteString("\n\n")
		}

		b.WriteString("---\n\n")
	}

	return []byte(b.String())
}
