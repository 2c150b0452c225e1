package history

import (
	"testing"
	"time"

	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/sm2"
	"github.com/ruthmoran/retain/internal/storage"
)

var noon = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func TestRecordReview(t *testing.T) {
	t.Run("creates today's record lazily", func(t *testing.T) {
		records := RecordReview(nil, noon, "card-1", sm2.Good, 2)
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		r := records[0]
		if r.Date != "2026-08-27" {
			t.Errorf("Expected date key 2026-08-27, got %s", r.Date)
		}
		if r.TotalReviews != 1 || r.GoodCount != 1 || r.MinutesStudied != 2 {
			t.Errorf("Unexpected counts: %+v", r)
		}
		if len(r.CardIDs) != 1 || r.CardIDs[0] != "card-1" {
			t.Errorf("Expected card set [card-1], got %v", r.CardIDs)
		}
	})

	t.Run("buckets match ratings", func(t *testing.T) {
		var records []domain.DailyReviewRecord
		for _, r := range []sm2.Rating{sm2.Fail, sm2.Fail, sm2.Hard, sm2.Good, sm2.Easy} {
			records = RecordReview(records, noon, "c", r, 0)
		}
		rec := records[0]
		if rec.FailCount != 2 || rec.HardCount != 1 || rec.GoodCount != 1 || rec.EasyCount != 1 {
			t.Errorf("Unexpected buckets: %+v", rec)
		}
		if rec.TotalReviews != 5 {
			t.Errorf("Expected 5 total reviews, got %d", rec.TotalReviews)
		}
	})

	t.Run("card set is idempotent per id", func(t *testing.T) {
		records := RecordReview(nil, noon, "c", sm2.Good, 0)
		records = RecordReview(records, noon, "c", sm2.Fail, 0)
		records = RecordReview(records, noon, "d", sm2.Good, 0)
		if got := len(records[0].CardIDs); got != 2 {
			t.Errorf("Expected 2 distinct cards, got %d", got)
		}
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		orig := []domain.DailyReviewRecord{{Date: "2026-08-27", TotalReviews: 1, GoodCount: 1}}
		_ = RecordReview(orig, noon, "c", sm2.Good, 5)
		if orig[0].TotalReviews != 1 || orig[0].MinutesStudied != 0 {
			t.Errorf("Input history was mutated: %+v", orig[0])
		}
	})

	t.Run("keeps records sorted ascending", func(t *testing.T) {
		records := []domain.DailyReviewRecord{{Date: "2026-08-30", TotalReviews: 1}}
		records = RecordReview(records, noon, "c", sm2.Good, 0)
		if records[0].Date != "2026-08-27" || records[1].Date != "2026-08-30" {
			t.Errorf("Expected ascending order, got %v then %v", records[0].Date, records[1].Date)
		}
	})
}

func TestAddStudyTime(t *testing.T) {
	records := RecordReview(nil, noon, "c", sm2.Good, 1)
	records = AddStudyTime(records, noon, 10)
	r := records[0]
	if r.MinutesStudied != 11 {
		t.Errorf("Expected 11 minutes, got %d", r.MinutesStudied)
	}
	if r.TotalReviews != 1 {
		t.Errorf("Expected review counts untouched, got %d", r.TotalReviews)
	}
}

func TestPrune(t *testing.T) {
	records := []domain.DailyReviewRecord{
		{Date: domain.DayKey(noon.AddDate(0, 0, -91)), TotalReviews: 1},
		{Date: domain.DayKey(noon.AddDate(0, 0, -90)), TotalReviews: 1},
		{Date: domain.DayKey(noon.AddDate(0, 0, -1)), TotalReviews: 1},
		{Date: domain.DayKey(noon), TotalReviews: 1},
	}
	pruned := Prune(records, noon)
	if len(pruned) != 3 {
		t.Fatalf("Expected the 91-day-old record dropped, got %d records", len(pruned))
	}
	for _, r := range pruned {
		if r.Date < domain.DayKey(noon.AddDate(0, 0, -90)) {
			t.Errorf("Record %s survived past the retention window", r.Date)
		}
	}
}

func TestStoreSavePrunes(t *testing.T) {
	sub := storage.NewMemorySubstrate(0)
	kv := storage.New(sub, storage.Options{})
	s := NewStore(kv, func() time.Time { return noon })

	old := domain.DayKey(noon.AddDate(0, 0, -120))
	records := []domain.DailyReviewRecord{
		{Date: old, TotalReviews: 3},
		{Date: domain.DayKey(noon), TotalReviews: 1},
	}

	saved, serr := s.Save(records)
	if serr != nil {
		t.Fatalf("Save returned error: %v", serr)
	}
	if len(saved) != 1 || saved[0].Date != domain.DayKey(noon) {
		t.Fatalf("Expected only today's record after persist, got %v", saved)
	}

	kv.Flush()
	loaded, serr := s.Load()
	if serr != nil {
		t.Fatalf("Load returned error: %v", serr)
	}
	for _, r := range loaded {
		if r.Date == old {
			t.Error("Expected stale record to be absent after persist")
		}
	}
}

func TestStoreRecordRoundTrip(t *testing.T) {
	kv := storage.New(storage.NewMemorySubstrate(0), storage.Options{})
	s := NewStore(kv, func() time.Time { return noon })

	if _, serr := s.Record("card-1", sm2.Good, 3); serr != nil {
		t.Fatalf("Record returned error: %v", serr)
	}
	if _, serr := s.AddTime(7); serr != nil {
		t.Fatalf("AddTime returned error: %v", serr)
	}
	kv.Flush()

	records, serr := s.Load()
	if serr != nil {
		t.Fatalf("Load returned error: %v", serr)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].MinutesStudied != 10 || records[0].TotalReviews != 1 {
		t.Errorf("Unexpected record: %+v", records[0])
	}
}

func TestQuotaCleanup(t *testing.T) {
	now := func() time.Time { return noon }

	t.Run("prunes to the tighter window", func(t *testing.T) {
		sub := storage.NewMemorySubstrate(0)
		records := []domain.DailyReviewRecord{
			{Date: domain.DayKey(noon.AddDate(0, 0, -60)), TotalReviews: 1},
			{Date: domain.DayKey(noon.AddDate(0, 0, -31)), TotalReviews: 1},
			{Date: domain.DayKey(noon), TotalReviews: 1},
		}
		kv := storage.New(sub, storage.Options{})
		if serr := storage.SetJSON(kv, Key, records); serr != nil {
			t.Fatal(serr)
		}
		kv.Flush()

		if !QuotaCleanup(now)(sub) {
			t.Fatal("Expected cleanup to free space")
		}

		loaded, serr := storage.GetJSON(storage.New(sub, storage.Options{}), Key, []domain.DailyReviewRecord{}, Validate)
		if serr != nil {
			t.Fatal(serr)
		}
		if len(loaded) != 1 || loaded[0].Date != domain.DayKey(noon) {
			t.Errorf("Expected only today's record after quota pruning, got %v", loaded)
		}
	})

	t.Run("reports nothing freed when nothing is prunable", func(t *testing.T) {
		sub := storage.NewMemorySubstrate(0)
		kv := storage.New(sub, storage.Options{})
		records := []domain.DailyReviewRecord{{Date: domain.DayKey(noon), TotalReviews: 1}}
		if serr := storage.SetJSON(kv, Key, records); serr != nil {
			t.Fatal(serr)
		}
		kv.Flush()

		if QuotaCleanup(now)(sub) {
			t.Error("Expected cleanup to report nothing freed")
		}
	})
}

func TestValidate(t *testing.T) {
	good := []domain.DailyReviewRecord{{Date: "2026-08-27", TotalReviews: 2, GoodCount: 2}}
	if err := Validate(good); err != nil {
		t.Errorf("Expected valid history, got %v", err)
	}

	bad := []domain.DailyReviewRecord{{Date: "27/08/2026"}}
	if err := Validate(bad); err == nil {
		t.Error("Expected malformed date key to be rejected")
	}

	inconsistent := []domain.DailyReviewRecord{{Date: "2026-08-27", TotalReviews: 1, GoodCount: 2}}
	if err := Validate(inconsistent); err == nil {
		t.Error("Expected bucket overflow to be rejected")
	}
}
