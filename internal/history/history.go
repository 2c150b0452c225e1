package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/sm2"
)

// RetentionDays bounds how far back daily records are kept. Anything older
// is pruned whenever the history is persisted, never on reads.
const RetentionDays = 90

// RecordReview finds or creates the record for now's calendar day,
// increments the total and the bucket matching the rating, adds the study
// minutes, and adds the card to the day's distinct-card set. The input
// slice is not mutated; callers persist the returned history.
func RecordReview(records []domain.DailyReviewRecord, now time.Time, cardID string, rating sm2.Rating, minutes int) []domain.DailyReviewRecord {
	out, rec := forDay(records, domain.DayKey(now))

	rec.TotalReviews++
	switch rating {
	case sm2.Fail:
		rec.FailCount++
	case sm2.Hard:
		rec.HardCount++
	case sm2.Good:
		rec.GoodCount++
	case sm2.Easy:
		rec.EasyCount++
	}
	rec.MinutesStudied += minutes
	if cardID != "" && !rec.HasCard(cardID) {
		rec.CardIDs = append(rec.CardIDs, cardID)
	}

	sortByDate(out)
	return out
}

// AddStudyTime adds minutes to today's record without touching any review
// counts; used when a study session ends independently of review events.
func AddStudyTime(records []domain.DailyReviewRecord, now time.Time, minutes int) []domain.DailyReviewRecord {
	out, rec := forDay(records, domain.DayKey(now))
	rec.MinutesStudied += minutes
	sortByDate(out)
	return out
}

// Prune drops records older than the retention window, counted back from
// today.
func Prune(records []domain.DailyReviewRecord, today time.Time) []domain.DailyReviewRecord {
	return pruneBefore(records, domain.DayKey(today.AddDate(0, 0, -RetentionDays)))
}

func pruneBefore(records []domain.DailyReviewRecord, cutoff string) []domain.DailyReviewRecord {
	out := make([]domain.DailyReviewRecord, 0, len(records))
	for _, r := range records {
		// Lexical comparison is chronological for the fixed-width key.
		if r.Date >= cutoff {
			out = append(out, r)
		}
	}
	sortByDate(out)
	return out
}

// forDay clones the history and returns it along with a pointer to the
// (found or newly created) record for the given day key.
func forDay(records []domain.DailyReviewRecord, day string) ([]domain.DailyReviewRecord, *domain.DailyReviewRecord) {
	out := make([]domain.DailyReviewRecord, len(records))
	for i, r := range records {
		out[i] = r
		out[i].CardIDs = append([]string(nil), r.CardIDs...)
	}
	for i := range out {
		if out[i].Date == day {
			return out, &out[i]
		}
	}
	out = append(out, domain.DailyReviewRecord{Date: day})
	return out, &out[len(out)-1]
}

func sortByDate(records []domain.DailyReviewRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
}

// Validate is the stored-shape validator for the review-history key.
func Validate(records []domain.DailyReviewRecord) error {
	for _, r := range records {
		if err := ValidateRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecord checks a single daily record for structural sanity.
func ValidateRecord(r domain.DailyReviewRecord) error {
	if _, err := domain.ParseDayKey(r.Date); err != nil {
		return fmt.Errorf("bad date key %q: %w", r.Date, err)
	}
	if r.TotalReviews < 0 || r.FailCount < 0 || r.HardCount < 0 || r.GoodCount < 0 || r.EasyCount < 0 || r.MinutesStudied < 0 {
		return fmt.Errorf("negative counts in record for %s", r.Date)
	}
	if r.CorrectCount()+r.FailCount > r.TotalReviews {
		return fmt.Errorf("bucket counts exceed total for %s", r.Date)
	}
	return nil
}
