package streak

import (
	"fmt"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/storage"
)

// Key is the substrate key the streak history lives under.
const Key = "retain:streak"

// Store persists the streak history through the resilient store.
type Store struct {
	kv  *storage.Store
	now func() time.Time
}

// NewStore wraps the given persistent store. now may be nil; tests inject
// a fixed clock.
func NewStore(kv *storage.Store, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, now: now}
}

// Load reads the streak history, default-initialized when absent or
// corrupt.
func (s *Store) Load() (domain.StreakHistory, *storage.StorageError) {
	return storage.GetJSON(s.kv, Key, domain.StreakHistory{}, Validate)
}

// Update recomputes streak state against the given review history and
// persists the result.
func (s *Store) Update(records []domain.DailyReviewRecord) (domain.StreakHistory, *storage.StorageError) {
	current, loadErr := s.Load()
	updated := UpdateAfterReview(current, records, s.now())
	if saveErr := storage.SetJSON(s.kv, Key, updated); saveErr != nil {
		return updated, saveErr
	}
	return updated, loadErr
}

// Validate is the stored-shape validator for the streak key.
func Validate(h domain.StreakHistory) error {
	if h.CurrentStreak < 0 || h.LongestStreak < 0 {
		return fmt.Errorf("negative streak counts")
	}
	if h.LongestStreak < h.CurrentStreak {
		return fmt.Errorf("longest streak %d below current %d", h.LongestStreak, h.CurrentStreak)
	}
	if h.LastStudyDate != "" {
		if _, err := domain.ParseDayKey(h.LastStudyDate); err != nil {
			return fmt.Errorf("bad last study date %q: %w", h.LastStudyDate, err)
		}
	}
	seen := make(map[int]bool, len(h.Achievements))
	for _, a := range h.Achievements {
		if a.Milestone <= 0 {
			return fmt.Errorf("non-positive milestone %d", a.Milestone)
		}
		if seen[a.Milestone] {
			return fmt.Errorf("duplicate milestone %d", a.Milestone)
		}
		seen[a.Milestone] = true
	}
	return nil
}
