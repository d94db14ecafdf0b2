// Package store is the operation-level API over the record store, the lock
// coordinator, and the history ledger.
//
// Every mutation runs the same pipeline: acquire the resource's cross-process
// lock, re-load the latest committed state from disk, apply the change,
// persist atomically, append a ledger entry, release the lock. Reads bypass
// the lock entirely.
//
// The store serializes same-process mutations per resource with an in-process
// mutex registry; the file lock only arbitrates between processes. It is not
// otherwise safe to mutate one resource concurrently from one process.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tabshare/tabshare/internal/catalog"
	"github.com/tabshare/tabshare/internal/identity"
	"github.com/tabshare/tabshare/internal/ledger"
	"github.com/tabshare/tabshare/internal/lockfile"
	"github.com/tabshare/tabshare/internal/tabular"
)

// ErrRowNotFound reports that a key matcher resolved to no row. The data may
// have changed underneath the caller; reloading and retrying is the remedy.
var ErrRowNotFound = errors.New("row not found")

// Options tunes a Store. The zero value gives production defaults.
type Options struct {
	// Identity overrides the acting identity. Zero uses the OS identity.
	Identity identity.Identity
	// Clock overrides the wall clock, for tests.
	Clock identity.Clock
	// Logger receives operational logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store coordinates all access to the catalog's resources.
type Store struct {
	cat     *catalog.Catalog
	locks   *lockfile.Coordinator
	history *ledger.Ledger
	id      identity.Identity
	clock   identity.Clock
	log     *slog.Logger
	archive *Archive // nil when disabled

	mu       sync.Mutex
	resource map[string]*sync.Mutex
}

// New creates a Store over a loaded catalog.
func New(cat *catalog.Catalog, opts Options) (*Store, error) {
	id := opts.Identity
	if id == (identity.Identity{}) {
		id = identity.Current()
	}
	clock := opts.Clock
	if clock == nil {
		clock = identity.SystemClock{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		cat:      cat,
		locks:    lockfile.NewCoordinator(id, clock),
		history:  ledger.New(cat.Ledger, clock, log),
		id:       id,
		clock:    clock,
		log:      log,
		resource: make(map[string]*sync.Mutex),
	}
	if cat.Archive.Enabled {
		a, err := OpenArchive(cat.Archive.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		s.archive = a
	}
	return s, nil
}

// Identity returns the acting identity.
func (s *Store) Identity() identity.Identity {
	return s.id
}

// Names returns the catalog's resource names.
func (s *Store) Names() []string {
	return s.cat.Names()
}

// Close releases every lock this process still holds. Call on shutdown.
func (s *Store) Close() error {
	return s.locks.ReleaseAll()
}

// resourceMutex returns the in-process mutex for a resource name.
func (s *Store) resourceMutex(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.resource[name]
	if !ok {
		m = &sync.Mutex{}
		s.resource[name] = m
	}
	return m
}

// Load reads a resource's current state without taking any lock. The result
// is the caller's copy; it goes stale the instant another writer commits.
func (s *Store) Load(name string) (*tabular.Table, error) {
	res, err := s.cat.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.loadResource(res)
}

func (s *Store) loadResource(res catalog.Resource) (*tabular.Table, error) {
	t, err := tabular.Load(res.Path)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, tabular.ErrNotFound) && s.cat.MissingFile == catalog.SynthesizeEmpty {
		s.log.Warn("resource file missing, serving empty table", "resource", res.Name, "path", res.Path)
		return tabular.NewTable(res.Columns), nil
	}
	return nil, err
}

// now returns the current timestamp in the shared sentinel/ledger format.
func (s *Store) now() string {
	return identity.Timestamp(s.clock.Now())
}

// rowKey derives an entry's RowKey from the row's value for the schema's
// first column.
func rowKey(t *tabular.Table, row tabular.Row) string {
	if len(t.Columns) == 0 {
		return "N/A"
	}
	if v := row[t.Columns[0]]; v != "" {
		return v
	}
	return "N/A"
}

// mutate runs the full pipeline for one resource. apply receives the freshly
// loaded table, changes it in place, and returns the ledger entry describing
// the change.
func (s *Store) mutate(name string, apply func(t *tabular.Table) (ledger.Entry, error)) error {
	res, err := s.cat.Lookup(name)
	if err != nil {
		return err
	}

	// Same-process callers serialize here; other processes are held off by
	// the file lock below.
	rmu := s.resourceMutex(name)
	rmu.Lock()
	defer rmu.Unlock()

	if _, err := s.locks.Acquire(res.Path); err != nil {
		return err
	}
	defer func() {
		if err := s.locks.Release(res.Path); err != nil {
			s.log.Error("failed to release lock", "resource", name, "err", err)
		}
	}()

	// Never mutate a cached copy: reload the latest committed state.
	t, err := s.loadResource(res)
	if err != nil {
		return err
	}

	entry, err := apply(t)
	if err != nil {
		return err
	}

	if err := tabular.Persist(res.Path, t); err != nil {
		// No ledger entry: the log must not assert a change that did not
		// durably happen.
		return err
	}

	// The persist above is the durability boundary. Ledger and archive are
	// observational; their failures are logged, never surfaced.
	if err := s.history.Append(entry); err != nil {
		s.log.Error("failed to append history entry", "resource", name, "err", err)
	}
	if s.archive != nil {
		if err := s.archive.CommitMutation(s.id, entry, res.Path, s.history.Path()); err != nil {
			s.log.Error("failed to archive mutation", "resource", name, "err", err)
		}
	}
	return nil
}

// Add appends a row to the resource.
func (s *Store) Add(name string, row tabular.Row) error {
	return s.mutate(name, func(t *tabular.Table) (ledger.Entry, error) {
		t.AppendRow(row)
		added := t.Rows[len(t.Rows)-1]
		return ledger.NewAdd(s.now(), s.id.String(), name, rowKey(t, added), added), nil
	})
}

// Update replaces the first row matching key with newRow. Zero matches fail
// with ErrRowNotFound; multiple matches apply to the first (ambiguous
// composite keys are the caller's data-quality problem).
func (s *Store) Update(name string, key, newRow tabular.Row) error {
	return s.mutate(name, func(t *tabular.Table) (ledger.Entry, error) {
		i, ok := t.FindRow(key)
		if !ok {
			return ledger.Entry{}, fmt.Errorf("%w in %s for key %v", ErrRowNotFound, name, key)
		}
		old := t.Rows[i].Clone()
		t.ReplaceRow(i, newRow)
		return ledger.NewEdit(s.now(), s.id.String(), name, rowKey(t, t.Rows[i]), old, t.Rows[i], s.cat.SystemFields), nil
	})
}

// Delete removes the first row matching key.
func (s *Store) Delete(name string, key tabular.Row) error {
	return s.mutate(name, func(t *tabular.Table) (ledger.Entry, error) {
		i, ok := t.FindRow(key)
		if !ok {
			return ledger.Entry{}, fmt.Errorf("%w in %s for key %v", ErrRowNotFound, name, key)
		}
		old := t.Rows[i]
		t.DeleteRow(i)
		return ledger.NewDelete(s.now(), s.id.String(), name, rowKey(t, old), old), nil
	})
}

// History returns ledger entries most recent first. An empty name returns
// the full ledger; otherwise entries are filtered to one resource.
func (s *Store) History(name string) ([]ledger.Entry, error) {
	entries, err := s.history.Entries()
	if err != nil {
		return nil, err
	}
	if name != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.ConfigFile == name {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	ledger.SortMostRecentFirst(entries)
	return entries, nil
}

// RepairHistory forces a ledger repair pass.
func (s *Store) RepairHistory() error {
	return s.history.Repair()
}

// LockStatus inspects a resource's lock sentinel.
func (s *Store) LockStatus(name string) (lockfile.Info, error) {
	res, err := s.cat.Lookup(name)
	if err != nil {
		return lockfile.Info{}, err
	}
	return s.locks.Status(res.Path, s.cat.StaleLockAfter.AsDuration())
}

// Unlock force-removes a resource's lock sentinel. Operator action for
// cleaning up after a crashed holder; never called automatically.
func (s *Store) Unlock(name string) error {
	res, err := s.cat.Lookup(name)
	if err != nil {
		return err
	}
	return lockfile.ForceUnlock(res.Path)
}
