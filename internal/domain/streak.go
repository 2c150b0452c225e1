package domain

import "time"

// StreakAchievement records the first time a streak milestone was crossed.
// At most one achievement exists per milestone value.
type StreakAchievement struct {
	Milestone  int       `json:"milestone" validate:"gt=0"`
	AchievedAt time.Time `json:"achieved_at"`
}

// StreakHistory is the learner's persisted streak state.
type StreakHistory struct {
	// CurrentStreak counts consecutive calendar days with at least one
	// review, ending today or yesterday. Zero when the chain is broken.
	CurrentStreak int `json:"current_streak" validate:"gte=0"`

	// LongestStreak is a monotonically non-decreasing ceiling of every
	// observed current streak.
	LongestStreak int `json:"longest_streak" validate:"gte=0"`

	// LastStudyDate is the day key of the most recent day with a review,
	// preserved even when the streak itself is zero.
	LastStudyDate string `json:"last_study_date,omitempty"`

	// Achievements is append-only and deduplicated by milestone.
	Achievements []StreakAchievement `json:"achievements,omitempty"`
}

// HasAchievement reports whether the milestone was already earned.
func (h *StreakHistory) HasAchievement(milestone int) bool {
	for _, a := range h.Achievements {
		if a.Milestone == milestone {
			return true
		}
	}
	return false
}
