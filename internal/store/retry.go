package store

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/tabshare/tabshare/internal/lockfile"
)

// DefaultRetryInterval paces RetryLocked attempts.
const DefaultRetryInterval = 500 * time.Millisecond

// RetryLocked runs fn, retrying while it fails because another actor holds
// the lock. Acquisition itself never blocks: it succeeds or fails
// immediately. This helper layers waiting on top without spinning in a
// tight loop.
//
// fn runs at most attempts times, paced by interval (<= 0 uses the default).
// Any error other than a lock conflict returns immediately; when attempts
// run out, the last lock error is returned so the caller can report the
// owner.
func RetryLocked(ctx context.Context, attempts int, interval time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	var last error
	for range attempts {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		last = fn()
		var locked *lockfile.LockedError
		if !errors.As(last, &locked) {
			return last
		}
	}
	return last
}
