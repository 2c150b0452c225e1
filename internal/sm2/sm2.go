package sm2

import (
	"math"
	"time"
)

// Rating is the learner's self-reported recall outcome for one review.
type Rating int

const (
	Fail Rating = iota
	Hard
	Good
	Easy
)

// Algorithm constants.
const (
	MinEaseFactor = 1.3
	MaxEaseFactor = 3.0

	// EasyBonus multiplies the interval once more after the interval
	// ladder when the rating was Easy.
	EasyBonus = 1.3
)

// String returns the rating's wire name.
func (r Rating) String() string {
	switch r {
	case Fail:
		return "fail"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return "unknown"
}

// quality maps the closed rating set onto the 0-5 scale the ease-factor
// formula works in. Out-of-set ratings are a caller contract violation and
// are not range-checked here.
func (r Rating) quality() float64 {
	switch r {
	case Hard:
		return 3
	case Good:
		return 4
	case Easy:
		return 5
	}
	return 0
}

// Successful reports whether the rating counts as a recall success.
func (r Rating) Successful() bool {
	return r.quality() >= 3
}

// Result holds the updated scheduling fields for one card after a review.
type Result struct {
	EaseFactor     float64
	Interval       int
	Repetitions    int
	NextReviewDate time.Time
}

// ComputeNext applies the SM-2 variant to a card's current scheduling
// fields and a quality rating. It is pure: deterministic except for the
// time-dependent next review date, and free of side effects.
//
// The ease factor is updated on every review, success or failure, and is
// the only place it ever changes:
//
//	EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), clamped to [1.3, 3.0]
//
// On failure the repetition count resets to zero and the interval to one
// day. On success the interval follows the new repetition count: first
// success 1 day, second 3 days, then round(interval * EF'). An Easy rating
// multiplies the chosen interval by a fixed bonus afterwards.
func ComputeNext(now time.Time, rating Rating, easeFactor float64, interval, repetitions int) Result {
	q := rating.quality()

	ef := easeFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	if ef > MaxEaseFactor {
		ef = MaxEaseFactor
	}

	var newInterval, newRepetitions int
	if rating.Successful() {
		newRepetitions = repetitions + 1
		switch newRepetitions {
		case 1:
			newInterval = 1
		case 2:
			newInterval = 3
		default:
			newInterval = int(math.Round(float64(interval) * ef))
		}
	} else {
		newRepetitions = 0
		newInterval = 1
	}

	if rating == Easy {
		newInterval = int(math.Round(float64(newInterval) * EasyBonus))
	}

	return Result{
		EaseFactor:     ef,
		Interval:       newInterval,
		Repetitions:    newRepetitions,
		NextReviewDate: now.AddDate(0, 0, newInterval),
	}
}

// ParseRating converts a wire name back into a Rating.
func ParseRating(s string) (Rating, bool) {
	switch s {
	case "fail":
		return Fail, true
	case "hard":
		return Hard, true
	case "good":
		return Good, true
	case "easy":
		return Easy, true
	}
	return Fail, false
}
