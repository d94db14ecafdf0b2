// Package identity resolves who is performing a mutation and when.
//
// Lock sentinels and ledger entries both record the acting identity as
// "user@machine" and timestamps in a fixed local format, so the two pieces
// live together here.
package identity

import (
	"os"
	"os/user"
	"time"
)

// TimestampFormat is the local timestamp layout used in lock sentinels and
// ledger entries. It sorts lexicographically, which the history view relies on.
const TimestampFormat = "2006-01-02 15:04:05"

// Identity is the acting user on a specific machine.
type Identity struct {
	User    string
	Machine string
}

// String returns the canonical "user@machine" form.
func (i Identity) String() string {
	return i.User + "@" + i.Machine
}

// Current resolves the identity of the calling process from the operating
// system. It never fails; unknown pieces degrade to "unknown".
func Current() Identity {
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = os.Getenv("USERNAME")
	}
	if name == "" {
		name = "unknown"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return Identity{User: name, Machine: host}
}

// Clock supplies the current local time. Tests substitute a fixed clock so
// timestamps in sentinels and ledger entries are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Timestamp formats t in the shared sentinel/ledger layout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}
