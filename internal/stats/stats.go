// Package stats derives display-ready statistics from the card set and
// the daily review history. Everything here is pure computation; callers
// own loading the inputs and persisting any snapshot.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/sm2"
)

const (
	// RankLimit caps the challenging, well-known and overdue rankings.
	RankLimit = 5

	// ForecastDays is the horizon of the due-count forecast, today included.
	ForecastDays = 7

	// rollingWindowRadius is the half-width of the centered window used for
	// charted rolling retention.
	rollingWindowRadius = 3
)

// RetentionRate is the fraction of non-fail reviews over all reviews in the
// trailing window of windowDays ending today. Zero when the window holds no
// reviews.
func RetentionRate(records []domain.DailyReviewRecord, today time.Time, windowDays int) float64 {
	cutoff := domain.DayKey(today.AddDate(0, 0, -windowDays))
	total, correct := 0, 0
	for i := range records {
		if records[i].Date < cutoff {
			continue
		}
		total += records[i].TotalReviews
		correct += records[i].CorrectCount()
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// RollingRetention charts retention for each of the last days days. Each
// point sums a centered 7-day window around its date; a window with no
// reviews reports rate 0, which consumers read as "no data" rather than 0%.
func RollingRetention(records []domain.DailyReviewRecord, today time.Time, days int) []domain.RetentionPoint {
	byDate := make(map[string]*domain.DailyReviewRecord, len(records))
	for i := range records {
		byDate[records[i].Date] = &records[i]
	}

	points := make([]domain.RetentionPoint, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		center := today.AddDate(0, 0, -offset)
		total, correct := 0, 0
		for d := -rollingWindowRadius; d <= rollingWindowRadius; d++ {
			r, ok := byDate[domain.DayKey(center.AddDate(0, 0, d))]
			if !ok {
				continue
			}
			total += r.TotalReviews
			correct += r.CorrectCount()
		}
		rate := 0.0
		if total > 0 {
			rate = float64(correct) / float64(total)
		}
		points = append(points, domain.RetentionPoint{
			Date: domain.DayKey(center),
			Rate: rate,
		})
	}
	return points
}

// Forecast counts cards coming due on each of the next days days. Day zero
// is today and additionally absorbs every overdue card and every card that
// has never been reviewed; later days match their exact date only.
func Forecast(cards []domain.Card, today time.Time, days int) []domain.ForecastDay {
	if days <= 0 {
		return nil
	}
	forecast := make([]domain.ForecastDay, days)
	for i := range forecast {
		forecast[i].Date = domain.DayKey(today.AddDate(0, 0, i))
	}

	todayKey := forecast[0].Date
	for i := range cards {
		c := &cards[i]
		if c.NextReviewDate == nil {
			forecast[0].Due++
			continue
		}
		dueKey := domain.DayKey(*c.NextReviewDate)
		if dueKey <= todayKey {
			forecast[0].Due++
			continue
		}
		for d := 1; d < days; d++ {
			if dueKey == forecast[d].Date {
				forecast[d].Due++
				break
			}
		}
	}
	return forecast
}

// ChallengingCards ranks reviewed cards by ascending ease factor, capped to
// limit. A low ease factor records a history of failed and hard reviews.
func ChallengingCards(cards []domain.Card, limit int) []string {
	reviewed := make([]*domain.Card, 0, len(cards))
	for i := range cards {
		if cards[i].Reviewed() {
			reviewed = append(reviewed, &cards[i])
		}
	}
	sort.SliceStable(reviewed, func(i, j int) bool {
		return reviewed[i].EaseFactor < reviewed[j].EaseFactor
	})
	return cardIDs(reviewed, limit)
}

// WellKnownCards ranks cards by descending interval, capped to limit.
func WellKnownCards(cards []domain.Card, limit int) []string {
	ranked := make([]*domain.Card, 0, len(cards))
	for i := range cards {
		ranked = append(ranked, &cards[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Interval > ranked[j].Interval
	})
	return cardIDs(ranked, limit)
}

// OverdueCards lists cards whose next review date is strictly in the past,
// most overdue first. Cards with no next review date have never been
// scheduled and sort as maximally overdue.
func OverdueCards(cards []domain.Card, now time.Time, limit int) []string {
	overdue := make([]*domain.Card, 0, len(cards))
	for i := range cards {
		c := &cards[i]
		if c.NextReviewDate == nil || c.NextReviewDate.Before(now) {
			overdue = append(overdue, c)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		a, b := overdue[i].NextReviewDate, overdue[j].NextReviewDate
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return cardIDs(overdue, limit)
}

func cardIDs(cards []*domain.Card, limit int) []string {
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// Compute assembles the full statistics bundle from the card set and
// review history.
func Compute(cards []domain.Card, records []domain.DailyReviewRecord, now time.Time) domain.ComputedStats {
	s := domain.ComputedStats{
		TotalCards: len(cards),
		ComputedAt: now,
	}

	efSum := 0.0
	reviewed := 0
	for i := range cards {
		c := &cards[i]
		switch sm2.MaturityOf(c.Reviewed(), c.Repetitions, c.Interval) {
		case sm2.MaturityNew:
			s.NewCards++
		case sm2.MaturityMastered:
			s.MasteredCards++
		default:
			s.LearningCards++
		}
		if c.Reviewed() {
			reviewed++
			efSum += c.EaseFactor
		}
	}
	if reviewed > 0 {
		s.AverageEaseFactor = round2(efSum / float64(reviewed))
	} else {
		s.AverageEaseFactor = domain.DefaultEaseFactor
	}

	for i := range records {
		s.TotalReviews += records[i].TotalReviews
		s.TotalMinutes += records[i].MinutesStudied
	}

	s.Retention7Day = RetentionRate(records, now, 7)
	s.Retention30Day = RetentionRate(records, now, 30)
	s.MostChallenging = ChallengingCards(cards, RankLimit)
	s.WellKnown = WellKnownCards(cards, RankLimit)
	s.Overdue = OverdueCards(cards, now, RankLimit)
	s.Forecast = Forecast(cards, now, ForecastDays)
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
