package sm2

// MasteredIntervalDays is the interval above which a card counts as mastered.
const MasteredIntervalDays = 21

// Maturity is the conceptual state of a card in its review lifecycle. It is
// derived from the scheduling fields rather than stored.
type Maturity string

const (
	MaturityNew      Maturity = "new"      // never reviewed
	MaturityLearning Maturity = "learning" // reviewed, fewer than 3 consecutive successes
	MaturityReview   Maturity = "review"   // 3+ consecutive successes
	MaturityMastered Maturity = "mastered" // interval beyond the mastery threshold
)

// MaturityOf derives the lifecycle state from a card's scheduling fields.
// A failure sends a card back to learning (repetitions reset, interval 1)
// while the ease factor keeps its memory of past difficulty.
func MaturityOf(reviewed bool, repetitions, interval int) Maturity {
	switch {
	case !reviewed:
		return MaturityNew
	case interval > MasteredIntervalDays:
		return MaturityMastered
	case repetitions >= 3:
		return MaturityReview
	default:
		return MaturityLearning
	}
}
