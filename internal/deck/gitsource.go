package deck

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// CloneOrPull clones the repository at repoURL into localPath, or pulls
// the latest changes when a checkout already exists there.
func CloneOrPull(repoURL, localPath string) error {
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		slog.Info("cloning deck repository", "url", repoURL, "path", localPath)
		if _, err := git.PlainClone(localPath, false, &git.CloneOptions{URL: repoURL}); err != nil {
			return fmt.Errorf("clone %s: %w", repoURL, err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	slog.Info("pulling deck repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("open repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree for %s: %w", localPath, err)
	}
	if err := worktree.Pull(&git.PullOptions{RemoteName: "origin"}); err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("pull %s: %w", localPath, err)
	}
	return nil
}

// LocalPath maps a git URL onto a stable checkout directory under baseDir,
// keyed by host and repository path. Both https URLs and scp-style ssh
// addresses (git@host:user/repo.git) are understood.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	if at := strings.Index(repoURL, "@"); at >= 0 {
		if host, repoPath, ok := strings.Cut(repoURL[at+1:], ":"); ok && host != "" {
			return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL %q", repoURL)
}
