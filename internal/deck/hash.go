package deck

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ruthmoran/retain/internal/domain"
)

// Normalize produces the canonical text a card's identity is derived
// from: each field lowercased, trimmed, with line endings unified, then
// joined with newlines so fields can never run together.
func Normalize(card domain.Card) string {
	parts := []string{card.Front, card.Back, card.Context}
	for i, p := range parts {
		p = strings.ToLower(p)
		p = strings.TrimSpace(p)
		parts[i] = strings.ReplaceAll(p, "\r\n", "\n")
	}
	return strings.Join(parts, "\n")
}

// Hash returns the card's content identity: the SHA-256 of its normalized
// text, hex encoded. Cards that differ only in whitespace or case hash the
// same, so reformatting a deck file does not orphan its cards.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
