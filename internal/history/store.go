package history

import (
	"encoding/json"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/sm2"
	"github.com/ruthmoran/retain/internal/storage"
)

// Key is the substrate key the review history lives under.
const Key = "retain:review-history"

// QuotaRetentionDays is the tighter window the quota cleanup pass prunes
// to when the substrate reports it is full.
const QuotaRetentionDays = 30

// Store persists the daily review history through the resilient store.
type Store struct {
	kv  *storage.Store
	now func() time.Time
}

// NewStore wraps the given persistent store. now may be nil, in which case
// time.Now is used; tests inject a fixed clock.
func NewStore(kv *storage.Store, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, now: now}
}

// Load reads the history, defaulting to empty on absence or corruption.
func (s *Store) Load() ([]domain.DailyReviewRecord, *storage.StorageError) {
	return storage.GetJSON(s.kv, Key, []domain.DailyReviewRecord{}, Validate)
}

// Save prunes the history to the retention window and persists it. Pruning
// runs on every persist, never on reads.
func (s *Store) Save(records []domain.DailyReviewRecord) ([]domain.DailyReviewRecord, *storage.StorageError) {
	pruned := Prune(records, s.now())
	return pruned, storage.SetJSON(s.kv, Key, pruned)
}

// Record applies a review event to the persisted history and returns the
// updated records. Storage errors are soft: the returned records are valid
// either way and the error carries the degradation metadata.
func (s *Store) Record(cardID string, rating sm2.Rating, minutes int) ([]domain.DailyReviewRecord, *storage.StorageError) {
	records, loadErr := s.Load()
	records = RecordReview(records, s.now(), cardID, rating, minutes)
	records, saveErr := s.Save(records)
	if saveErr != nil {
		return records, saveErr
	}
	return records, loadErr
}

// AddTime adds session minutes to today's record and persists.
func (s *Store) AddTime(minutes int) ([]domain.DailyReviewRecord, *storage.StorageError) {
	records, loadErr := s.Load()
	records = AddStudyTime(records, s.now(), minutes)
	records, saveErr := s.Save(records)
	if saveErr != nil {
		return records, saveErr
	}
	return records, loadErr
}

// QuotaCleanup returns the cleanup pass the persistent store runs when a
// write exceeds the quota: the history is pruned to a tighter 30-day
// window directly on the substrate, freeing the oldest slice of data.
func QuotaCleanup(now func() time.Time) func(storage.Substrate) bool {
	if now == nil {
		now = time.Now
	}
	return func(sub storage.Substrate) bool {
		raw, err := sub.Get(Key)
		if err != nil {
			return false
		}
		var records []domain.DailyReviewRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return false
		}
		cutoff := domain.DayKey(now().AddDate(0, 0, -QuotaRetentionDays))
		pruned := pruneBefore(records, cutoff)
		if len(pruned) == len(records) {
			return false
		}
		data, err := json.Marshal(pruned)
		if err != nil {
			return false
		}
		return sub.Set(Key, data) == nil
	}
}
