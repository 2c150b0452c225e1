package domain

import "time"

// DefaultEaseFactor is the ease factor assigned to a card that has never
// been reviewed.
const DefaultEaseFactor = 2.5

// Card is a single flashcard together with its scheduling state.
// The scheduling fields (EaseFactor, Interval, Repetitions,
// LastReviewedAt, NextReviewDate) are written only from scheduler output,
// applied atomically per review.
type Card struct {
	ID      string   `json:"id" validate:"required"`
	PackIDs []string `json:"pack_ids,omitempty"`
	Front   string   `json:"front" validate:"required"`
	Back    string   `json:"back"`
	Context string   `json:"context,omitempty"`

	// Hash is the content identity of the card, used to deduplicate
	// cards re-imported from deck sources. Empty for hand-created cards.
	Hash string `json:"hash,omitempty"`

	EaseFactor     float64    `json:"ease_factor" validate:"omitempty,gte=1.3,lte=3.0"`
	Interval       int        `json:"interval" validate:"gte=0"`
	Repetitions    int        `json:"repetitions" validate:"gte=0"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reviewed reports whether the card has been reviewed at least once.
func (c *Card) Reviewed() bool {
	return c.LastReviewedAt != nil
}

// Due reports whether the card is due at the given moment. A card with no
// next review date has never been reviewed and is due immediately.
func (c *Card) Due(now time.Time) bool {
	return c.NextReviewDate == nil || !c.NextReviewDate.After(now)
}

// Pack is a named group of cards. Cards reference packs by id.
type Pack struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
