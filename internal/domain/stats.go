package domain

import "time"

// ForecastDay is the number of cards coming due on one future day.
type ForecastDay struct {
	Date string `json:"date"`
	Due  int    `json:"due"`
}

// RetentionPoint is one charted day of rolling retention. A rate of zero
// with no reviews in the surrounding window means "no data", not 0%.
type RetentionPoint struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

// ComputedStats is the display-ready statistics bundle. It is derived on
// demand and persisted only opportunistically as a cold-start snapshot.
type ComputedStats struct {
	TotalCards    int `json:"total_cards"`
	MasteredCards int `json:"mastered_cards"`
	LearningCards int `json:"learning_cards"`
	NewCards      int `json:"new_cards"`

	Retention7Day  float64 `json:"retention_7_day"`
	Retention30Day float64 `json:"retention_30_day"`

	AverageEaseFactor float64 `json:"average_ease_factor"`
	TotalReviews      int     `json:"total_reviews"`
	TotalMinutes      int     `json:"total_minutes"`

	MostChallenging []string `json:"most_challenging,omitempty"`
	WellKnown       []string `json:"well_known,omitempty"`
	Overdue         []string `json:"overdue,omitempty"`

	Forecast []ForecastDay `json:"forecast,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}
