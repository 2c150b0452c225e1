package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/ruthmoran/retain/internal/backup"
	"github.com/ruthmoran/retain/internal/cardset"
	"github.com/ruthmoran/retain/internal/config"
	"github.com/ruthmoran/retain/internal/deck"
	"github.com/ruthmoran/retain/internal/domain"
	"github.com/ruthmoran/retain/internal/history"
	"github.com/ruthmoran/retain/internal/sm2"
	"github.com/ruthmoran/retain/internal/storage"
	"github.com/ruthmoran/retain/internal/streak"
)

const usage = `Usage: retain [flags] <command> [args]

Commands:
  add <front> <back> [context]   create a card
  review <card-id> <rating> [minutes]
                                 record a review (fail|hard|good|easy)
  due                            list cards due now
  stats                          show computed statistics
  streak                         show streak and milestone progress
  sync                           pull deck sources and reconcile the card set
  export [file]                  write a backup (stdout when no file given)
  import <file>                  restore a backup
  health                         report storage health
  recover                        attempt corrupted-data recovery
`

func main() {
	flags := pflag.NewFlagSet("retain", pflag.ExitOnError)
	configPath := flags.String("config", "retain.yaml", "Path to the YAML config file")
	flags.String("db_path", "", "Path to the SQLite database file")
	flags.String("repos_dir", "", "Directory git deck sources are checked out under")
	verbose := flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	sub, err := storage.OpenSQLite(cfg.DBPath, cfg.QuotaBytes)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	kv := storage.New(sub, storage.Options{
		CacheTTL:             cfg.CacheTTL,
		DebounceDelay:        cfg.DebounceDelay,
		AssumedCapacityBytes: cfg.QuotaBytes,
		QuotaCleanup:         history.QuotaCleanup(nil),
	})
	kv.SetErrorHandler(func(e *storage.StorageError) {
		slog.Warn("storage degraded", "kind", e.Kind, "key", e.Key, "detail", e.Message)
	})
	manager := cardset.NewManager(kv, nil)

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	code := run(manager, cfg, args)

	// The last debounce window's writes must land before the process ends.
	kv.Flush()
	if err := sub.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	os.Exit(code)
}

func run(m *cardset.Manager, cfg config.Config, args []string) int {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return runAdd(m, rest)
	case "review":
		return runReview(m, rest)
	case "due":
		return runDue(m)
	case "stats":
		return runStats(m)
	case "streak":
		return runStreak(m)
	case "sync":
		return runSync(m, cfg)
	case "export":
		return runExport(m, rest)
	case "import":
		return runImport(m, rest)
	case "health":
		return runHealth(m)
	case "recover":
		return runRecover(m)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

func runAdd(m *cardset.Manager, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: retain add <front> <back> [context]")
		return 2
	}
	context := ""
	if len(args) > 2 {
		context = args[2]
	}
	card, serr := m.AddCard(args[0], args[1], context, nil)
	if serr != nil {
		slog.Warn("card saved with degraded storage", "error", serr)
	}
	fmt.Println(card.ID)
	return 0
}

func runReview(m *cardset.Manager, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: retain review <card-id> <fail|hard|good|easy> [minutes]")
		return 2
	}
	rating, ok := sm2.ParseRating(args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown rating %q\n", args[1])
		return 2
	}
	minutes := 0
	if len(args) > 2 {
		var err error
		if minutes, err = strconv.Atoi(args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "bad minutes %q\n", args[2])
			return 2
		}
	}

	card, err := m.Review(args[0], rating, minutes)
	if err != nil {
		slog.Error("review failed", "card", args[0], "error", err)
		return 1
	}
	fmt.Printf("next review %s (interval %dd, ease %.2f)\n",
		card.NextReviewDate.Format("2006-01-02"), card.Interval, card.EaseFactor)
	return 0
}

func runDue(m *cardset.Manager) int {
	due, serr := m.DueCards(time.Now())
	if serr != nil {
		slog.Warn("card set loaded with degraded storage", "error", serr)
	}
	for _, c := range due {
		fmt.Printf("%s\t%s\n", c.ID, c.Front)
	}
	fmt.Fprintf(os.Stderr, "%d cards due\n", len(due))
	return 0
}

func runStats(m *cardset.Manager) int {
	s, serr := m.Stats()
	if serr != nil {
		slog.Warn("statistics computed from degraded storage", "error", serr)
	}
	fmt.Printf("cards: %d total, %d new, %d learning, %d mastered\n",
		s.TotalCards, s.NewCards, s.LearningCards, s.MasteredCards)
	fmt.Printf("retention: %.0f%% (7d), %.0f%% (30d)\n", s.Retention7Day*100, s.Retention30Day*100)
	fmt.Printf("reviews: %d all-time over %d minutes, average ease %.2f\n",
		s.TotalReviews, s.TotalMinutes, s.AverageEaseFactor)
	for _, day := range s.Forecast {
		fmt.Printf("  %s  %d due\n", day.Date, day.Due)
	}
	return 0
}

func runStreak(m *cardset.Manager) int {
	h, serr := m.Streaks().Load()
	if serr != nil {
		slog.Warn("streak loaded with degraded storage", "error", serr)
	}
	fmt.Printf("current streak: %d days (longest %d)\n", h.CurrentStreak, h.LongestStreak)
	if h.LastStudyDate != "" {
		fmt.Printf("last studied: %s\n", h.LastStudyDate)
	}
	p := streak.MilestoneProgress(h)
	if p.Next > 0 {
		fmt.Printf("next milestone: %d days (%.0f%% there)\n", p.Next, p.Percent)
	} else {
		fmt.Println("every milestone earned")
	}
	for _, a := range h.Achievements {
		fmt.Printf("  %d-day milestone earned %s\n", a.Milestone, a.AchievedAt.Format("2006-01-02"))
	}
	return 0
}

func runSync(m *cardset.Manager, cfg config.Config) int {
	sources := make([]deck.Source, len(cfg.Decks))
	for i, d := range cfg.Decks {
		sources[i] = deck.Source{Path: d.Path, Git: d.Git}
	}
	if len(sources) == 0 {
		slog.Info("no deck sources configured")
		return 0
	}

	result, err := deck.NewSyncer(m, cfg.ReposDir).Sync(sources)
	if err != nil {
		slog.Error("sync failed", "error", err)
		return 1
	}
	for _, e := range result.Errors {
		slog.Warn("sync issue", "error", e)
	}
	fmt.Printf("parsed %d, inserted %d, deleted %d orphans\n", result.Parsed, result.Inserted, result.Deleted)
	return 0
}

func runExport(m *cardset.Manager, args []string) int {
	snap, err := backup.Export(m, time.Now())
	if err != nil {
		slog.Error("export failed", "error", err)
		return 1
	}

	out := os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			slog.Error("failed to create backup file", "path", args[0], "error", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	if err := backup.Write(out, snap); err != nil {
		slog.Error("failed to write backup", "error", err)
		return 1
	}
	return 0
}

func runImport(m *cardset.Manager, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: retain import <file>")
		return 2
	}
	f, err := os.Open(args[0])
	if err != nil {
		slog.Error("failed to open backup file", "path", args[0], "error", err)
		return 1
	}
	defer f.Close()

	snap, err := backup.Read(f)
	if err != nil {
		slog.Error("backup rejected", "error", err)
		return 1
	}

	report := backup.Restore(m.Store(), snap)
	for key, serr := range report.Failed {
		slog.Error("restore failed for key", "key", key, "error", serr)
	}
	fmt.Printf("restored %d of %d keys\n", len(report.Restored), len(report.Restored)+len(report.Failed))
	if !report.OK() {
		return 1
	}
	return 0
}

func runHealth(m *cardset.Manager) int {
	report := m.Store().HealthCheck([]string{
		cardset.CardsKey, cardset.PacksKey, cardset.StatsKey, history.Key, streak.Key,
	})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		slog.Error("failed to encode health report", "error", err)
		return 1
	}
	if !report.Available || len(report.CorruptKeys) > 0 {
		return 1
	}
	return 0
}

func runRecover(m *cardset.Manager) int {
	kv := m.Store()

	records, salvaged, serr := storage.RecoverSlice(kv, history.Key, func(r domain.DailyReviewRecord) bool {
		return history.ValidateRecord(r) == nil
	})
	if serr != nil && !serr.Recoverable {
		slog.Error("review history unrecoverable", "error", serr)
	} else if salvaged > 0 {
		slog.Info("review history partially recovered", "salvaged", salvaged)
	}
	fmt.Printf("review history: %d records\n", len(records))

	streaks, serr := storage.Recover(kv, streak.Key, domain.StreakHistory{}, streak.Validate)
	if serr != nil && !serr.Recoverable {
		slog.Error("streak history unrecoverable", "error", serr)
	}
	fmt.Printf("streak history: %d-day streak, %d achievements\n",
		streaks.CurrentStreak, len(streaks.Achievements))

	col, serr := storage.Recover(kv, cardset.CardsKey,
		cardset.CardCollection{Version: cardset.SchemaVersion}, cardset.ValidateCollection)
	if serr != nil && !serr.Recoverable {
		slog.Error("card collection unrecoverable", "error", serr)
		return 1
	}
	fmt.Printf("cards: %d\n", len(col.Cards))
	return 0
}
