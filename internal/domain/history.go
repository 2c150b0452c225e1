package domain

// DailyReviewRecord aggregates all review activity for one calendar day.
// Records are created lazily the first time a review happens on a day and
// are never retroactively created for past days.
type DailyReviewRecord struct {
	Date           string   `json:"date" validate:"required,datetime=2006-01-02"`
	TotalReviews   int      `json:"total_reviews" validate:"gte=0"`
	FailCount      int      `json:"fail_count" validate:"gte=0"`
	HardCount      int      `json:"hard_count" validate:"gte=0"`
	GoodCount      int      `json:"good_count" validate:"gte=0"`
	EasyCount      int      `json:"easy_count" validate:"gte=0"`
	CardIDs        []string `json:"card_ids,omitempty"`
	MinutesStudied int      `json:"minutes_studied" validate:"gte=0"`
}

// CorrectCount is the number of reviews that were not failures.
func (r *DailyReviewRecord) CorrectCount() int {
	return r.HardCount + r.GoodCount + r.EasyCount
}

// HasCard reports whether the card was already counted among the day's
// distinct cards.
func (r *DailyReviewRecord) HasCard(cardID string) bool {
	for _, id := range r.CardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}
