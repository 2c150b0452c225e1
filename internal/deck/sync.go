package deck

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruthmoran/retain/internal/cardset"
	"github.com/ruthmoran/retain/internal/domain"
)

// Source is one place deck files come from: a local directory, or a git
// repository checked out under the syncer's repos directory.
type Source struct {
	Path string
	Git  bool
}

// Result summarizes one reconciliation run.
type Result struct {
	Parsed   int
	Inserted int
	Deleted  int
	Errors   []error
}

// Syncer reconciles deck sources against the card set: new card content
// is imported with default scheduling state, and cards whose content has
// disappeared from every source are removed unless they carry review
// history worth keeping.
type Syncer struct {
	manager  *cardset.Manager
	reposDir string
}

// NewSyncer builds a syncer that checks git sources out under reposDir.
func NewSyncer(m *cardset.Manager, reposDir string) *Syncer {
	return &Syncer{manager: m, reposDir: reposDir}
}

// Sync processes every source and reconciles the card set once against
// the union of their contents. Per-source failures are collected rather
// than aborting the run.
func (s *Syncer) Sync(sources []Source) (Result, error) {
	var result Result
	if len(sources) == 0 {
		return result, nil
	}

	var parsed []domain.Card
	for _, src := range sources {
		dir := src.Path
		if src.Git {
			localPath, err := LocalPath(s.reposDir, src.Path)
			if err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			if err := os.MkdirAll(s.reposDir, 0o755); err != nil {
				return result, fmt.Errorf("create repos dir: %w", err)
			}
			if err := CloneOrPull(src.Path, localPath); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			dir = localPath
		}

		cards, errs := parseTree(dir)
		slog.Info("scanned deck source", "path", src.Path, "cards", len(cards), "errors", len(errs))
		parsed = append(parsed, cards...)
		result.Errors = append(result.Errors, errs...)
	}
	result.Parsed = len(parsed)

	found := make(map[string]bool, len(parsed))
	for i := range parsed {
		parsed[i].Hash = Hash(parsed[i])
		found[parsed[i].Hash] = true
	}

	inserted, serr := s.manager.ImportCards(parsed)
	if serr != nil {
		result.Errors = append(result.Errors, serr)
	}
	result.Inserted = inserted

	deleted, err := s.deleteOrphans(found)
	if err != nil {
		result.Errors = append(result.Errors, err)
	}
	result.Deleted = deleted

	slog.Info("deck sync complete",
		"parsed", result.Parsed,
		"inserted", result.Inserted,
		"orphaned_deleted", result.Deleted,
		"errors", len(result.Errors),
	)
	return result, nil
}

// deleteOrphans removes deck-sourced cards whose content no longer exists
// in any source. Hand-created cards have no hash and are never touched;
// reviewed cards keep their accumulated scheduling state even when
// orphaned.
func (s *Syncer) deleteOrphans(found map[string]bool) (int, error) {
	cards, serr := s.manager.Cards()
	if serr != nil && !serr.Recoverable {
		return 0, serr
	}

	var orphaned []string
	for _, c := range cards {
		if c.Hash == "" || found[c.Hash] || c.Reviewed() {
			continue
		}
		slog.Info("deleting orphaned card", "id", c.ID, "hash", c.Hash)
		orphaned = append(orphaned, c.ID)
	}
	if len(orphaned) == 0 {
		return 0, nil
	}
	deleted, serr := s.manager.DeleteCards(orphaned)
	if serr != nil {
		return deleted, serr
	}
	return deleted, nil
}

func parseTree(dir string) ([]domain.Card, []error) {
	var cards []domain.Card
	var errs []error
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		cards = append(cards, fileCards...)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
	return cards, errs
}
