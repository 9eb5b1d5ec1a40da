package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FlashcardHash is a stable content hash over a card's text fields, used
// to skip duplicate notes when pushing to Anki.
func FlashcardHash(front, back string, tags []string) string {
	hasher := sha256.New()
	hasher.Write([]byte(front))
	hasher.Write([]byte{0})
	hasher.Write([]byte(back))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strings.Join(tags, " ")))

	return hex.EncodeToString(hasher.Sum(nil))
}
