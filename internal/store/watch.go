package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports when a resource's backing file is replaced by a writer, so
// a reader holding an in-memory copy knows it went stale and can reload.
//
// The returned channel coalesces bursts (an atomic replace shows up as a
// create+rename pair) and is closed when ctx ends. Watching does not take
// any lock and does not deliver data; reloading is still the caller's move.
func (s *Store) Watch(ctx context.Context, name string) (<-chan struct{}, error) {
	res, err := s.cat.Lookup(name)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory, not the file: the atomic rename on persist
	// replaces the inode, which breaks a direct file watch.
	dir := filepath.Dir(res.Path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	base := filepath.Base(res.Path)
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer func() {
			_ = w.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				// Temp files and lock sentinels share the directory but are
				// filtered out by the base-name check above; only the final
				// rename onto the resource path lands here.
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default: // already pending, coalesce
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("watcher error", "resource", name, "err", err)
			}
		}
	}()
	return ch, nil
}
