package ledger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// legacyFile mixes well-formed records with leftovers from the old
// free-text history format.
const legacyFile = `====== Edit History ======
Config: Widgets
Action: row added
Key: X1
User: alice
Changes: VALUE '' => '10'
Operations: 3

2025-07-08 14:00:00,alice@machineA,Widgets,ADD,X1,New row added,"","{""KEY"":""X1"",""VALUE"":""10""}"
2025-07-08 14:05:00,bob@machineB,Widgets,EDIT,X1,"VALUE: '10' → '20'","{""KEY"":""X1"",""VALUE"":""10""}","{""KEY"":""X1"",""VALUE"":""20""}"
not a record at all
`

func TestRepairLegacyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit_history.csv")
	if err := os.WriteFile(path, []byte(legacyFile), 0o644); err != nil {
		t.Fatal(err)
	}
	l := New(path, testClock, slog.Default())

	if err := l.Repair(); err != nil {
		t.Fatal(err)
	}

	// Backup holds the original bytes.
	backup := path + ".backup_20250708140000"
	raw, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != legacyFile {
		t.Fatal("backup does not preserve original bytes")
	}

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d: %v", len(entries), entries)
	}
	if entries[0].Operation != OpAdd || entries[0].RowKey != "X1" {
		t.Fatalf("first entry %+v", entries[0])
	}
	if entries[1].ChangeSummary != "VALUE: '10' → '20'" {
		t.Fatalf("summary not preserved: %q", entries[1].ChangeSummary)
	}
	if got := entries[1].NewRow()["VALUE"]; got != "20" {
		t.Fatalf("snapshot not preserved, VALUE=%q", got)
	}
}

func TestEntriesAutoRepairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit_history.csv")
	if err := os.WriteFile(path, []byte(legacyFile), 0o644); err != nil {
		t.Fatal(err)
	}
	l := New(path, testClock, slog.Default())

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected auto-repair to leave 2 entries, got %d", len(entries))
	}
	// Repaired file now starts with the canonical header.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), headerPrefix) {
		t.Fatalf("repaired file head: %q", string(data)[:40])
	}
}

func TestRepairIsIdempotentOnCleanFile(t *testing.T) {
	l := newTestLedger(t)
	add := NewAdd("2025-07-08 14:00:00", "alice@machineA", "Widgets", "X1", map[string]string{"KEY": "X1"})
	if err := l.Append(add); err != nil {
		t.Fatal(err)
	}
	before, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Repair(); err != nil {
		t.Fatal(err)
	}
	after, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("repair changed entry count: %d -> %d", len(before), len(after))
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{`a,"b,c",d`, []string{"a", "b,c", "d"}},
		{`a,"say ""hi""",c`, []string{"a", `say "hi"`, "c"}},
		{"", []string{""}},
		{"a,", []string{"a", ""}},
	}
	for _, tt := range tests {
		got := splitLine(tt.line)
		if len(got) != len(tt.want) {
			t.Fatalf("splitLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("splitLine(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSkipLine(t *testing.T) {
	skip := []string{
		"",
		"   ",
		"====== banner ======",
		"Config: Widgets",
		"Key: X1",
		"User: alice",
		"Changes: things",
		"Action: add",
		"  Operations: 12",
		"VALUE '' => '10'",
		"Timestamp,UserID,ConfigFile,Operation,RowKey,ChangeSummary,OldValues,NewValues",
	}
	for _, line := range skip {
		if !skipLine(line) {
			t.Errorf("skipLine(%q) = false, want true", line)
		}
	}
	if skipLine("2025-07-08 14:00:00,alice@machineA,Widgets,ADD,X1,New row added,,") {
		t.Error("valid record line must not be skipped")
	}
}
