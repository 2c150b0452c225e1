package stats

import (
	"testing"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
)

var today = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func ts(offset int) *time.Time {
	t := today.AddDate(0, 0, offset)
	return &t
}

func TestRetentionRate(t *testing.T) {
	t.Run("empty window is zero", func(t *testing.T) {
		if got := RetentionRate(nil, today, 7); got != 0 {
			t.Errorf("Expected 0, got %f", got)
		}
	})

	t.Run("correct over total", func(t *testing.T) {
		// 2 fail, 3 hard, 4 good, 1 easy: 8 correct of 10.
		records := []domain.DailyReviewRecord{
			{Date: domain.DayKey(today), TotalReviews: 6, FailCount: 1, HardCount: 2, GoodCount: 2, EasyCount: 1},
			{Date: domain.DayKey(today.AddDate(0, 0, -2)), TotalReviews: 4, FailCount: 1, HardCount: 1, GoodCount: 2},
		}
		if got := RetentionRate(records, today, 7); got != 0.8 {
			t.Errorf("Expected 0.8, got %f", got)
		}
	})

	t.Run("records outside the window are ignored", func(t *testing.T) {
		records := []domain.DailyReviewRecord{
			{Date: domain.DayKey(today), TotalReviews: 1, GoodCount: 1},
			{Date: domain.DayKey(today.AddDate(0, 0, -8)), TotalReviews: 10, FailCount: 10},
		}
		if got := RetentionRate(records, today, 7); got != 1.0 {
			t.Errorf("Expected 1.0 with the old failures excluded, got %f", got)
		}
	})
}

func TestRollingRetention(t *testing.T) {
	records := []domain.DailyReviewRecord{
		{Date: domain.DayKey(today.AddDate(0, 0, -10)), TotalReviews: 4, FailCount: 2, GoodCount: 2},
		{Date: domain.DayKey(today), TotalReviews: 2, GoodCount: 2},
	}
	points := RollingRetention(records, today, 14)
	if len(points) != 14 {
		t.Fatalf("Expected 14 points, got %d", len(points))
	}
	if points[len(points)-1].Date != domain.DayKey(today) {
		t.Errorf("Expected the series to end today, got %s", points[len(points)-1].Date)
	}

	byDate := make(map[string]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Rate
	}
	// The day 10 days back sees only its own record inside its window.
	if got := byDate[domain.DayKey(today.AddDate(0, 0, -10))]; got != 0.5 {
		t.Errorf("Expected 0.5 at the isolated day, got %f", got)
	}
	// A day with nothing within 3 days either side reports 0.
	if got := byDate[domain.DayKey(today.AddDate(0, 0, -5))]; got != 0 {
		t.Errorf("Expected 0 for an empty window, got %f", got)
	}
	if got := byDate[domain.DayKey(today)]; got != 1.0 {
		t.Errorf("Expected 1.0 today, got %f", got)
	}
}

func TestForecast(t *testing.T) {
	cards := []domain.Card{
		{ID: "never-reviewed"},
		{ID: "overdue", NextReviewDate: ts(-3), LastReviewedAt: ts(-4)},
		{ID: "due-today", NextReviewDate: ts(0), LastReviewedAt: ts(-1)},
		{ID: "due-tomorrow", NextReviewDate: ts(1), LastReviewedAt: ts(-2)},
		{ID: "due-day-6", NextReviewDate: ts(6), LastReviewedAt: ts(-2)},
		{ID: "beyond-horizon", NextReviewDate: ts(30), LastReviewedAt: ts(-2)},
	}

	forecast := Forecast(cards, today, 7)
	if len(forecast) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(forecast))
	}
	// Day zero absorbs the unscheduled card, the overdue card and today's.
	if forecast[0].Due != 3 {
		t.Errorf("Expected 3 due on day zero, got %d", forecast[0].Due)
	}
	if forecast[1].Due != 1 {
		t.Errorf("Expected 1 due tomorrow, got %d", forecast[1].Due)
	}
	if forecast[6].Due != 1 {
		t.Errorf("Expected 1 due on day six, got %d", forecast[6].Due)
	}
	total := 0
	for _, d := range forecast {
		total += d.Due
	}
	if total != 5 {
		t.Errorf("Expected the beyond-horizon card excluded, got total %d", total)
	}
}

func TestForecastNonPositiveHorizon(t *testing.T) {
	cards := []domain.Card{{ID: "unscheduled"}}
	for _, days := range []int{0, -3} {
		if got := Forecast(cards, today, days); len(got) != 0 {
			t.Errorf("Expected empty forecast for horizon %d, got %v", days, got)
		}
	}
}

func TestChallengingCards(t *testing.T) {
	cards := []domain.Card{
		{ID: "new", EaseFactor: 1.3},
		{ID: "hardest", EaseFactor: 1.5, LastReviewedAt: ts(-1)},
		{ID: "easy", EaseFactor: 2.9, LastReviewedAt: ts(-1)},
		{ID: "middling", EaseFactor: 2.1, LastReviewedAt: ts(-1)},
	}
	got := ChallengingCards(cards, 2)
	if len(got) != 2 || got[0] != "hardest" || got[1] != "middling" {
		t.Errorf("Expected [hardest middling], got %v", got)
	}
}

func TestWellKnownCards(t *testing.T) {
	cards := []domain.Card{
		{ID: "a", Interval: 3},
		{ID: "b", Interval: 40},
		{ID: "c", Interval: 12},
	}
	got := WellKnownCards(cards, 2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Expected [b c], got %v", got)
	}
}

func TestOverdueCards(t *testing.T) {
	cards := []domain.Card{
		{ID: "future", NextReviewDate: ts(5)},
		{ID: "three-days-late", NextReviewDate: ts(-3)},
		{ID: "never-scheduled"},
		{ID: "one-day-late", NextReviewDate: ts(-1)},
	}
	got := OverdueCards(cards, today, 10)
	want := []string{"never-scheduled", "three-days-late", "one-day-late"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCompute(t *testing.T) {
	cards := []domain.Card{
		{ID: "new-1", EaseFactor: domain.DefaultEaseFactor},
		{ID: "learning-1", EaseFactor: 2.2, Interval: 3, Repetitions: 2, LastReviewedAt: ts(-1), NextReviewDate: ts(2)},
		{ID: "review-1", EaseFactor: 2.6, Interval: 15, Repetitions: 4, LastReviewedAt: ts(-1), NextReviewDate: ts(14)},
		{ID: "mastered-1", EaseFactor: 2.8, Interval: 45, Repetitions: 8, LastReviewedAt: ts(-10), NextReviewDate: ts(35)},
	}
	records := []domain.DailyReviewRecord{
		{Date: domain.DayKey(today.AddDate(0, 0, -1)), TotalReviews: 4, FailCount: 1, GoodCount: 3, MinutesStudied: 6},
		{Date: domain.DayKey(today), TotalReviews: 2, GoodCount: 2, MinutesStudied: 4},
	}

	s := Compute(cards, records, today)

	if s.TotalCards != 4 || s.NewCards != 1 || s.MasteredCards != 1 || s.LearningCards != 2 {
		t.Errorf("Unexpected mastery buckets: %+v", s)
	}
	// (2.2 + 2.6 + 2.8) / 3 = 2.53 after rounding.
	if s.AverageEaseFactor != 2.53 {
		t.Errorf("Expected average ease 2.53, got %f", s.AverageEaseFactor)
	}
	if s.TotalReviews != 6 || s.TotalMinutes != 10 {
		t.Errorf("Expected 6 reviews over 10 minutes, got %d/%d", s.TotalReviews, s.TotalMinutes)
	}
	// 5 correct of 6 in both windows.
	want := 5.0 / 6.0
	if s.Retention7Day != want || s.Retention30Day != want {
		t.Errorf("Expected retention %f, got %f/%f", want, s.Retention7Day, s.Retention30Day)
	}
	if len(s.MostChallenging) == 0 || s.MostChallenging[0] != "learning-1" {
		t.Errorf("Expected learning-1 as most challenging, got %v", s.MostChallenging)
	}
	if len(s.WellKnown) == 0 || s.WellKnown[0] != "mastered-1" {
		t.Errorf("Expected mastered-1 as best known, got %v", s.WellKnown)
	}
	if len(s.Forecast) != ForecastDays {
		t.Errorf("Expected a %d-day forecast, got %d", ForecastDays, len(s.Forecast))
	}
	if !s.ComputedAt.Equal(today) {
		t.Errorf("Expected ComputedAt stamped, got %v", s.ComputedAt)
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, nil, today)
	if s.AverageEaseFactor != domain.DefaultEaseFactor {
		t.Errorf("Expected default ease with no reviewed cards, got %f", s.AverageEaseFactor)
	}
	if s.Retention7Day != 0 || s.TotalReviews != 0 {
		t.Errorf("Expected zeroed stats, got %+v", s)
	}
}
