// Package deck ingests flashcards from markdown deck files, locally or
// from git repositories, and reconciles them against the card set.
package deck

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ruthmoran/retain/internal/domain"
)

// Deck files hold cards as prefixed blocks:
//
//	Q: question text, possibly
//	   spanning lines
//	A: answer text
//	C: optional context
//	---
//
// The separator and any new Q: both end the current card.
const (
	frontPrefix   = "Q:"
	backPrefix    = "A:"
	contextPrefix = "C:"
	separator     = "---"
)

type field int

const (
	none field = iota
	front
	back
	contextField
)

// ParseFile extracts all cards from the deck file at path.
func ParseFile(path string) ([]domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse extracts all cards from a deck document. Cards without a question
// are dropped; text outside any prefixed block is ignored.
func Parse(r io.Reader) ([]domain.Card, error) {
	var (
		cards   []domain.Card
		card    domain.Card
		block   []string
		current field
	)

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch current {
		case front:
			card.Front = content
		case back:
			card.Back = content
		case contextField:
			card.Context = content
		}
		block = nil
	}

	flushCard := func() {
		flushBlock()
		if card.Front != "" {
			cards = append(cards, card)
		}
		card = domain.Card{}
		current = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			flushCard()
			continue
		}

		next, rest, ok := prefixed(line)
		if !ok {
			if current != none {
				block = append(block, line)
			}
			continue
		}

		if next == front && current != none {
			flushCard()
		} else {
			flushBlock()
		}
		current = next
		block = append(block, rest)
	}
	flushCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func prefixed(line string) (field, string, bool) {
	for _, p := range []struct {
		prefix string
		field  field
	}{
		{frontPrefix, front},
		{backPrefix, back},
		{contextPrefix, contextField},
	} {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " "), true
		}
	}
	return none, "", false
}
