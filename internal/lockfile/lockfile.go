// Package lockfile implements advisory cross-process mutual exclusion for
// file-backed resources, with no central arbiter.
//
// The lock for a resource is a sentinel file at "<resource>.lock", created
// with an exclusive-create so at most one process across all machines sharing
// the storage can hold it. The sentinel records who holds the lock and since
// when, so a blocked writer can tell the user.
//
// There is no timeout or expiry: a sentinel left behind by a crashed process
// blocks writers until an operator clears it. [Status] flags sentinels that
// look stale, but breaking a lock is always an explicit operator action.
package lockfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tabshare/tabshare/internal/identity"
)

// Suffix is appended to a resource path to form its sentinel path.
const Suffix = ".lock"

// LockedError reports that another actor holds the lock.
type LockedError struct {
	Path  string // resource path, not the sentinel
	Owner string // "user@machine", or "another user" when unreadable
	Since time.Time
}

func (e *LockedError) Error() string {
	if e.Since.IsZero() {
		return fmt.Sprintf("%s is locked by %s", e.Path, e.Owner)
	}
	return fmt.Sprintf("%s is locked by %s since %s", e.Path, e.Owner, identity.Timestamp(e.Since))
}

// Handle represents one held lock. The sentinel stays open for the lifetime
// of the handle so another process cannot replace it out from under us.
type Handle struct {
	path     string // resource path
	sentinel string
	f        *os.File // nil once released
}

// Acquire attempts to take the exclusive lock for the resource at path.
// On contention it returns a *LockedError naming the current owner.
func Acquire(path string, owner identity.Identity, clock identity.Clock) (*Handle, error) {
	sentinel := path + Suffix
	f, err := os.OpenFile(sentinel, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, readBusy(path, sentinel)
		}
		return nil, fmt.Errorf("failed to create lock sentinel %s: %w", sentinel, err)
	}
	content := owner.String() + "\n" + identity.Timestamp(clock.Now())
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(sentinel)
		return nil, fmt.Errorf("failed to write lock sentinel %s: %w", sentinel, err)
	}
	return &Handle{path: path, sentinel: sentinel, f: f}, nil
}

// readBusy reads the sentinel to report who holds the lock. Best effort:
// if the contents are unreadable the owner degrades to "another user".
func readBusy(path, sentinel string) *LockedError {
	e := &LockedError{Path: path, Owner: "another user"}
	data, err := os.ReadFile(sentinel)
	if err != nil {
		return e
	}
	lines := strings.SplitN(strings.TrimRight(string(data), "\n"), "\n", 2)
	if len(lines) > 0 && lines[0] != "" {
		e.Owner = lines[0]
	}
	if len(lines) > 1 {
		if ts, err := time.ParseInLocation(identity.TimestampFormat, lines[1], time.Local); err == nil {
			e.Since = ts
		}
	}
	return e
}

// Release closes the held descriptor and deletes the sentinel. Idempotent:
// releasing a released or nil handle is a no-op.
func (h *Handle) Release() error {
	if h == nil || h.f == nil {
		return nil
	}
	closeErr := h.f.Close()
	h.f = nil
	if err := os.Remove(h.sentinel); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock sentinel %s: %w", h.sentinel, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock sentinel %s: %w", h.sentinel, closeErr)
	}
	return nil
}

// Path returns the resource path the handle locks.
func (h *Handle) Path() string {
	return h.path
}
