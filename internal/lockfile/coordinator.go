package lockfile

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/tabshare/tabshare/internal/identity"
)

// DefaultStaleAfter is how old a sentinel must be before Status reports it
// as possibly stale. Purely advisory; nothing expires automatically.
const DefaultStaleAfter = 4 * time.Hour

// Coordinator tracks the locks held by this process so they can all be
// released on shutdown. One instance per process; separate instances stand
// in for separate processes in tests.
type Coordinator struct {
	owner identity.Identity
	clock identity.Clock

	mu      sync.Mutex
	handles map[string]*Handle // keyed by resource path
}

// NewCoordinator creates a Coordinator acting as owner.
func NewCoordinator(owner identity.Identity, clock identity.Clock) *Coordinator {
	return &Coordinator{
		owner:   owner,
		clock:   clock,
		handles: make(map[string]*Handle),
	}
}

// Acquire takes the exclusive lock for the resource at path.
func (c *Coordinator) Acquire(path string) (*Handle, error) {
	h, err := Acquire(path, c.owner, c.clock)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.handles[path] = h
	c.mu.Unlock()
	return h, nil
}

// Release frees the lock for the resource at path. A no-op if this process
// does not hold it.
func (c *Coordinator) Release(path string) error {
	c.mu.Lock()
	h := c.handles[path]
	delete(c.handles, path)
	c.mu.Unlock()
	return h.Release()
}

// ReleaseAll frees every lock held by this process. Best effort: all handles
// are attempted and the errors joined. Called on shutdown so sentinels do not
// outlive the process under normal termination.
func (c *Coordinator) ReleaseAll() error {
	c.mu.Lock()
	handles := make([]*Handle, 0, len(c.handles))
	for _, h := range c.handles {
		handles = append(handles, h)
	}
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Info describes the lock state of one resource.
type Info struct {
	Held  bool
	Owner string
	Since time.Time
	// PossiblyStale is set when the sentinel is older than the staleness
	// threshold. Advisory only; the operator decides whether to clear it.
	PossiblyStale bool
}

// Status inspects the sentinel for the resource at path without touching it.
// staleAfter <= 0 uses DefaultStaleAfter.
func (c *Coordinator) Status(path string, staleAfter time.Duration) (Info, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if _, err := os.Stat(path + Suffix); err != nil {
		if os.IsNotExist(err) {
			return Info{}, nil
		}
		return Info{}, err
	}
	busy := readBusy(path, path+Suffix)
	info := Info{Held: true, Owner: busy.Owner, Since: busy.Since}
	if !busy.Since.IsZero() && c.clock.Now().Sub(busy.Since) > staleAfter {
		info.PossiblyStale = true
	}
	return info, nil
}

// ForceUnlock removes the sentinel for the resource at path regardless of
// who holds it. For operator use only: breaking a live writer's lock
// reintroduces exactly the corruption the lock prevents.
func ForceUnlock(path string) error {
	err := os.Remove(path + Suffix)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
