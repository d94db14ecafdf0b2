package identity

import (
	"strings"
	"testing"
	"time"
)

func TestCurrent(t *testing.T) {
	id := Current()
	if id.User == "" || id.Machine == "" {
		t.Fatalf("incomplete identity: %+v", id)
	}
	s := id.String()
	if !strings.Contains(s, "@") {
		t.Fatalf("expected user@machine, got %q", s)
	}
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2025, 7, 8, 14, 3, 9, 0, time.UTC))
	if ts != "2025-07-08 14:03:09" {
		t.Fatalf("unexpected timestamp %q", ts)
	}
}

func TestTimestampSortsLexicographically(t *testing.T) {
	a := Timestamp(time.Date(2025, 9, 30, 23, 59, 59, 0, time.UTC))
	b := Timestamp(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
}
