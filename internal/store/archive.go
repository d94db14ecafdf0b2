package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/tabshare/tabshare/internal/identity"
	"github.com/tabshare/tabshare/internal/ledger"
)

// Archive keeps a git history of the data directory: one commit per
// successful mutation, authored by the acting identity. It is a secondary
// record like the ledger; commit failures are logged by the caller and
// never abort a mutation.
type Archive struct {
	dir  string
	repo *gogit.Repository
	mu   sync.Mutex
}

// OpenArchive opens the git repository at dir, initializing one if needed.
func OpenArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive repo: %w", err)
		}
	}
	return &Archive{dir: dir, repo: repo}, nil
}

// CommitMutation stages the given files and commits them with a message
// derived from the ledger entry. Files outside the archive directory are
// skipped. No staged changes means no commit.
func (a *Archive) CommitMutation(actor identity.Identity, e ledger.Entry, files ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, err := a.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	staged := 0
	for _, f := range files {
		rel, err := filepath.Rel(a.dir, f)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if _, err := w.Add(rel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		staged++
	}
	if staged == 0 {
		return nil
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	msg := fmt.Sprintf("%s %s %s", e.Operation, e.ConfigFile, e.RowKey)
	if _, err := w.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  actor.User,
			Email: actor.User + "@" + actor.Machine,
			When:  timeOf(e.Timestamp),
		},
	}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// timeOf parses a ledger timestamp, falling back to the wall clock.
func timeOf(ts string) time.Time {
	t, err := time.ParseInLocation(identity.TimestampFormat, ts, time.Local)
	if err != nil {
		return time.Now()
	}
	return t
}
