package streak

import (
	"sort"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
)

// Milestones are the fixed day-count thresholds that earn achievements.
var Milestones = []int{7, 14, 30, 60, 100, 180, 365}

// Compute derives the current streak from the review history. The streak
// counts consecutive calendar days with at least one review, anchored at
// today or yesterday; if the most recent study day is older than that the
// streak is zero, but the last study date is still returned because the
// history remains informative.
func Compute(records []domain.DailyReviewRecord, today time.Time) (int, string) {
	days := make([]string, 0, len(records))
	for _, r := range records {
		if r.TotalReviews > 0 {
			days = append(days, r.Date)
		}
	}
	if len(days) == 0 {
		return 0, ""
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	mostRecent := days[0]
	todayKey := domain.DayKey(today)
	yesterdayKey := domain.DayKey(today.AddDate(0, 0, -1))
	if mostRecent != todayKey && mostRecent != yesterdayKey {
		return 0, mostRecent
	}

	anchor, err := domain.ParseDayKey(mostRecent)
	if err != nil {
		return 0, mostRecent
	}

	streak := 0
	expected := anchor
	for _, day := range days {
		if day != domain.DayKey(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak, mostRecent
}

// UpdateAfterReview recomputes the streak, raises the longest-streak
// ceiling, and appends achievements for any milestone crossed for the
// first time. Achievements are append-only and deduplicated by milestone:
// re-crossing a threshold never creates a duplicate.
func UpdateAfterReview(current domain.StreakHistory, records []domain.DailyReviewRecord, now time.Time) domain.StreakHistory {
	streak, lastStudy := Compute(records, now)

	updated := current
	updated.Achievements = append([]domain.StreakAchievement(nil), current.Achievements...)
	updated.CurrentStreak = streak
	if lastStudy != "" {
		updated.LastStudyDate = lastStudy
	}
	if streak > updated.LongestStreak {
		updated.LongestStreak = streak
	}

	for _, milestone := range Milestones {
		if streak >= milestone && !updated.HasAchievement(milestone) {
			updated.Achievements = append(updated.Achievements, domain.StreakAchievement{
				Milestone:  milestone,
				AchievedAt: now,
			})
		}
	}
	return updated
}

// Progress describes how close the learner is to the nearest unearned
// milestone. Next is zero and Percent 100 when every milestone is earned.
type Progress struct {
	Next    int
	Percent float64
}

// MilestoneProgress computes percentage progress toward the nearest
// unearned threshold, anchoring 0% at the threshold below it.
func MilestoneProgress(h domain.StreakHistory) Progress {
	next := 0
	prev := 0
	for _, milestone := range Milestones {
		if !h.HasAchievement(milestone) {
			next = milestone
			break
		}
		prev = milestone
	}
	if next == 0 {
		return Progress{Next: 0, Percent: 100}
	}

	pct := float64(h.CurrentStreak-prev) / float64(next-prev) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Progress{Next: next, Percent: pct}
}
