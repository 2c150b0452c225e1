// Package cardset owns the card and pack collections and drives the full
// review flow: scheduling, history aggregation, streak updates, and the
// opportunistic statistics snapshot.
package cardset

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/history"
	"github.com/ruthmoran/retain/internal/sm2"
	"github.com/ruthmoran/retain/internal/stats"
	"github.com/ruthmoran/retain/internal/storage"
	"github.com/ruthmoran/retain/internal/streak"
)

// Substrate keys for the collections this package owns.
const (
	CardsKey = "retain:cards"
	PacksKey = "retain:packs"
	StatsKey = "retain:stats"
)

// SchemaVersion tags the persisted cards collection so future migrations
// can tell what they are reading.
const SchemaVersion = 1

// CardCollection is the versioned envelope the cards key is stored under.
type CardCollection struct {
	Version int           `json:"version"`
	Cards   []domain.Card `json:"cards"`
}

// Manager coordinates every mutation of the card set. All storage errors
// are soft: operations return usable values alongside degradation metadata
// so callers can proceed with reduced durability.
type Manager struct {
	kv      *storage.Store
	history *history.Store
	streaks *streak.Store
	now     func() time.Time
}

// NewManager wires a manager over the resilient store. now may be nil.
func NewManager(kv *storage.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		kv:      kv,
		history: history.NewStore(kv, now),
		streaks: streak.NewStore(kv, now),
		now:     now,
	}
}

// Cards loads the card collection, empty when absent or unreadable.
func (m *Manager) Cards() ([]domain.Card, *storage.StorageError) {
	col, serr := storage.GetJSON(m.kv, CardsKey, CardCollection{Version: SchemaVersion}, ValidateCollection)
	return col.Cards, serr
}

// Packs loads the pack collection.
func (m *Manager) Packs() ([]domain.Pack, *storage.StorageError) {
	return storage.GetJSON(m.kv, PacksKey, []domain.Pack{}, ValidatePacks)
}

func (m *Manager) saveCards(cards []domain.Card) *storage.StorageError {
	return storage.SetJSON(m.kv, CardsKey, CardCollection{Version: SchemaVersion, Cards: cards})
}

// AddCard mints a new card with default scheduling state and persists it.
func (m *Manager) AddCard(front, back, context string, packIDs []string) (domain.Card, *storage.StorageError) {
	now := m.now()
	card := domain.Card{
		ID:         uuid.NewString(),
		PackIDs:    packIDs,
		Front:      front,
		Back:       back,
		Context:    context,
		EaseFactor: domain.DefaultEaseFactor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	cards, loadErr := m.Cards()
	if serr := m.saveCards(append(cards, card)); serr != nil {
		return card, serr
	}
	return card, loadErr
}

// AddPack mints a new pack and persists it.
func (m *Manager) AddPack(name, description string) (domain.Pack, *storage.StorageError) {
	pack := domain.Pack{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   m.now(),
	}
	packs, loadErr := m.Packs()
	if serr := storage.SetJSON(m.kv, PacksKey, append(packs, pack)); serr != nil {
		return pack, serr
	}
	return pack, loadErr
}

// ImportCards inserts cards that do not yet exist, keyed by content hash.
// Cards whose hash is already present are skipped so re-imports never
// clobber accumulated scheduling state. Returns how many were inserted.
func (m *Manager) ImportCards(incoming []domain.Card) (int, *storage.StorageError) {
	cards, loadErr := m.Cards()

	byHash := make(map[string]bool, len(cards))
	for i := range cards {
		if cards[i].Hash != "" {
			byHash[cards[i].Hash] = true
		}
	}

	now := m.now()
	inserted := 0
	for _, c := range incoming {
		if c.Hash != "" && byHash[c.Hash] {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.EaseFactor == 0 {
			c.EaseFactor = domain.DefaultEaseFactor
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		cards = append(cards, c)
		if c.Hash != "" {
			byHash[c.Hash] = true
		}
		inserted++
	}
	if inserted == 0 {
		return 0, loadErr
	}
	if serr := m.saveCards(cards); serr != nil {
		return inserted, serr
	}
	return inserted, loadErr
}

// DeleteCards removes the cards with the given ids. Returns how many were
// actually removed.
func (m *Manager) DeleteCards(ids []string) (int, *storage.StorageError) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	cards, loadErr := m.Cards()
	kept := cards[:0]
	for _, c := range cards {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	removed := len(cards) - len(kept)
	if removed == 0 {
		return 0, loadErr
	}
	if serr := m.saveCards(kept); serr != nil {
		return removed, serr
	}
	return removed, loadErr
}

// Review applies one review event end to end: the scheduler output is
// written onto the card, the day's history record is extended, and the
// streak is recomputed. Statistics are not recomputed here; they are
// derived on demand through Stats. The card with its updated scheduling
// fields is returned.
func (m *Manager) Review(cardID string, rating sm2.Rating, minutes int) (domain.Card, error) {
	cards, _ := m.Cards()

	idx := -1
	for i := range cards {
		if cards[i].ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Card{}, fmt.Errorf("card %s not found", cardID)
	}

	now := m.now()
	card := &cards[idx]
	ef := card.EaseFactor
	if ef == 0 {
		ef = domain.DefaultEaseFactor
	}
	result := sm2.ComputeNext(now, rating, ef, card.Interval, card.Repetitions)

	card.EaseFactor = result.EaseFactor
	card.Interval = result.Interval
	card.Repetitions = result.Repetitions
	reviewedAt := now
	card.LastReviewedAt = &reviewedAt
	next := result.NextReviewDate
	card.NextReviewDate = &next
	card.UpdatedAt = now

	// Storage degradation is soft here: the fallback map keeps the
	// in-process view authoritative and errors reach the store's handler.
	// Only a marshal failure, which stores nothing at all, aborts.
	if serr := m.saveCards(cards); serr != nil && serr.Kind == storage.KindUnknown {
		return *card, serr
	}

	records, serr := m.history.Record(cardID, rating, minutes)
	if serr != nil && serr.Kind == storage.KindUnknown {
		return *card, serr
	}
	if _, serr := m.streaks.Update(records); serr != nil && serr.Kind == storage.KindUnknown {
		return *card, serr
	}
	return *card, nil
}

// AddStudyTime records session minutes that are not tied to a single
// review event.
func (m *Manager) AddStudyTime(minutes int) *storage.StorageError {
	_, serr := m.history.AddTime(minutes)
	return serr
}

// DueCards returns the cards due at the given moment, never-reviewed cards
// included.
func (m *Manager) DueCards(now time.Time) ([]domain.Card, *storage.StorageError) {
	cards, serr := m.Cards()
	due := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if c.Due(now) {
			due = append(due, c)
		}
	}
	return due, serr
}

// Stats computes fresh statistics from the current card set and history
// and persists the result as the cold-start snapshot.
func (m *Manager) Stats() (domain.ComputedStats, *storage.StorageError) {
	cards, cardsErr := m.Cards()
	records, _ := m.history.Load()
	s := m.snapshotStats(cards, records)
	return s, cardsErr
}

// CachedStats returns the last persisted snapshot without recomputing.
// Useful for fast cold-start display; the zero value means no snapshot has
// ever been taken.
func (m *Manager) CachedStats() (domain.ComputedStats, *storage.StorageError) {
	return storage.GetJSON(m.kv, StatsKey, domain.ComputedStats{}, nil)
}

func (m *Manager) snapshotStats(cards []domain.Card, records []domain.DailyReviewRecord) domain.ComputedStats {
	s := stats.Compute(cards, records, m.now())
	// The snapshot is opportunistic; a failed persist only costs the next
	// cold start a recomputation.
	_ = storage.SetJSON(m.kv, StatsKey, s)
	return s
}

// History exposes the review-history store for backup and CLI surfaces.
func (m *Manager) History() *history.Store {
	return m.history
}

// Streaks exposes the streak store for backup and CLI surfaces.
func (m *Manager) Streaks() *streak.Store {
	return m.streaks
}

// Store exposes the underlying resilient store, for health checks and
// restore paths that write keys directly.
func (m *Manager) Store() *storage.Store {
	return m.kv
}

// ValidateCollection is the stored-shape validator for the cards key.
func ValidateCollection(col CardCollection) error {
	if col.Version > SchemaVersion {
		return fmt.Errorf("cards schema version %d is newer than supported %d", col.Version, SchemaVersion)
	}
	seen := make(map[string]bool, len(col.Cards))
	for i := range col.Cards {
		c := &col.Cards[i]
		if c.ID == "" {
			return fmt.Errorf("card at index %d has no id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate card id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Interval < 0 || c.Repetitions < 0 {
			return fmt.Errorf("card %s has negative scheduling fields", c.ID)
		}
	}
	return nil
}

// ValidatePacks is the stored-shape validator for the packs key.
func ValidatePacks(packs []domain.Pack) error {
	seen := make(map[string]bool, len(packs))
	for i := range packs {
		if packs[i].ID == "" {
			return fmt.Errorf("pack at index %d has no id", i)
		}
		if seen[packs[i].ID] {
			return fmt.Errorf("duplicate pack id %s", packs[i].ID)
		}
		seen[packs[i].ID] = true
	}
	return nil
}
