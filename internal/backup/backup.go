// Package backup serializes the full persisted state into a single
// versioned document and restores it best-effort, key by key.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ruthmoran/retain/internal/cardset"
	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/history"
	"github.com/ruthmoran/retain/internal/storage"
	"github.com/ruthmoran/retain/internal/streak"
)

// Version tags the export document format.
const Version = 1

// Snapshot is the complete exported state.
type Snapshot struct {
	Version       int                        `json:"version" validate:"required,gte=1"`
	ExportedAt    time.Time                  `json:"exported_at" validate:"required"`
	Cards         []domain.Card              `json:"cards" validate:"dive"`
	Packs         []domain.Pack              `json:"packs" validate:"dive"`
	Stats         domain.ComputedStats       `json:"stats"`
	ReviewHistory []domain.DailyReviewRecord `json:"review_history" validate:"dive"`
	StreakHistory domain.StreakHistory       `json:"streak_history"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Export assembles a snapshot of everything the manager persists.
func Export(m *cardset.Manager, now time.Time) (Snapshot, error) {
	cards, cardsErr := m.Cards()
	if cardsErr != nil && !cardsErr.Recoverable {
		return Snapshot{}, fmt.Errorf("export cards: %w", cardsErr)
	}
	packs, _ := m.Packs()
	stats, _ := m.CachedStats()
	records, _ := m.History().Load()
	streaks, _ := m.Streaks().Load()

	return Snapshot{
		Version:       Version,
		ExportedAt:    now,
		Cards:         cards,
		Packs:         packs,
		Stats:         stats,
		ReviewHistory: records,
		StreakHistory: streaks,
	}, nil
}

// Write encodes a snapshot as indented JSON.
func Write(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Read decodes and validates a snapshot. A document from a newer format
// version is rejected rather than partially understood.
func Read(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode backup: %w", err)
	}
	if s.Version > Version {
		return Snapshot{}, fmt.Errorf("backup version %d is newer than supported %d", s.Version, Version)
	}
	if err := validate.Struct(s); err != nil {
		return Snapshot{}, fmt.Errorf("validate backup: %w", err)
	}
	if err := history.Validate(s.ReviewHistory); err != nil {
		return Snapshot{}, fmt.Errorf("validate review history: %w", err)
	}
	if err := streak.Validate(s.StreakHistory); err != nil {
		return Snapshot{}, fmt.Errorf("validate streak history: %w", err)
	}
	return s, nil
}

// Report lists the outcome of a restore, key by key.
type Report struct {
	Restored []string
	Failed   map[string]*storage.StorageError
}

// OK reports whether every key was restored.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Restore writes each key of the snapshot into the store. It is
// best-effort per key: a failure on one key does not roll back keys
// already restored, and the report says which landed.
func Restore(kv *storage.Store, s Snapshot) Report {
	report := Report{Failed: make(map[string]*storage.StorageError)}

	writes := []struct {
		key string
		fn  func() *storage.StorageError
	}{
		{cardset.CardsKey, func() *storage.StorageError {
			return storage.SetJSON(kv, cardset.CardsKey, cardset.CardCollection{
				Version: cardset.SchemaVersion,
				Cards:   s.Cards,
			})
		}},
		{cardset.PacksKey, func() *storage.StorageError {
			return storage.SetJSON(kv, cardset.PacksKey, s.Packs)
		}},
		{cardset.StatsKey, func() *storage.StorageError {
			return storage.SetJSON(kv, cardset.StatsKey, s.Stats)
		}},
		{history.Key, func() *storage.StorageError {
			// Persisting the history always prunes it to the retention
			// window, a restore included. A salvage write-back may still
			// land old records; the next ordinary save prunes those.
			return storage.SetJSON(kv, history.Key, history.Prune(s.ReviewHistory, time.Now()))
		}},
		{streak.Key, func() *storage.StorageError {
			return storage.SetJSON(kv, streak.Key, s.StreakHistory)
		}},
	}

	for _, w := range writes {
		if serr := w.fn(); serr != nil {
			report.Failed[w.key] = serr
			continue
		}
		report.Restored = append(report.Restored, w.key)
	}
	return report
}
