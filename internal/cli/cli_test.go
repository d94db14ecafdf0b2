package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePairs(t *testing.T) {
	row, err := parsePairs([]string{"KEY=X1", "VALUE=a=b", "EMPTY="})
	if err != nil {
		t.Fatal(err)
	}
	if row["KEY"] != "X1" || row["VALUE"] != "a=b" || row["EMPTY"] != "" {
		t.Fatalf("row %v", row)
	}
	if _, err := parsePairs([]string{"novalue"}); err == nil {
		t.Fatal("expected error for pair without =")
	}
	if _, err := parsePairs([]string{"=x"}); err == nil {
		t.Fatal("expected error for empty column name")
	}
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("tabshare %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "widgets.csv"), []byte("KEY,VALUE\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cat := `
resources:
  - name: Widgets
    path: widgets.csv
    columns: [KEY, VALUE]
ledger: edit_history.csv
`
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(cat), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddShowHistory(t *testing.T) {
	cat := setupWorkspace(t)

	run(t, "add", "Widgets", "--catalog", cat, "--set", "KEY=X1", "--set", "VALUE=10")

	out := run(t, "show", "Widgets", "--catalog", cat)
	if !strings.Contains(out, "KEY,VALUE") || !strings.Contains(out, "X1,10") {
		t.Fatalf("show output:\n%s", out)
	}

	out = run(t, "history", "Widgets", "--catalog", cat)
	if !strings.Contains(out, "ADD") || !strings.Contains(out, "X1") {
		t.Fatalf("history output:\n%s", out)
	}

	run(t, "update", "Widgets", "--catalog", cat, "--key", "KEY=X1", "--set", "KEY=X1", "--set", "VALUE=20")
	out = run(t, "show", "Widgets", "--catalog", cat)
	if !strings.Contains(out, "X1,20") {
		t.Fatalf("show after update:\n%s", out)
	}

	run(t, "delete", "Widgets", "--catalog", cat, "--key", "KEY=X1")
	out = run(t, "show", "Widgets", "--catalog", cat)
	if strings.Contains(out, "X1") {
		t.Fatalf("row not deleted:\n%s", out)
	}

	out = run(t, "history", "--catalog", cat)
	for _, op := range []string{"ADD", "EDIT", "DELETE"} {
		if !strings.Contains(out, op) {
			t.Fatalf("history missing %s:\n%s", op, out)
		}
	}
}

func TestListAndLockStatus(t *testing.T) {
	cat := setupWorkspace(t)

	out := run(t, "list", "--catalog", cat)
	if strings.TrimSpace(out) != "Widgets" {
		t.Fatalf("list output %q", out)
	}

	out = run(t, "lock-status", "--catalog", cat)
	if !strings.Contains(out, "Widgets: unlocked") {
		t.Fatalf("lock-status output %q", out)
	}
}

func TestUnlockRequiresForce(t *testing.T) {
	cat := setupWorkspace(t)
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"unlock", "Widgets", "--catalog", cat})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected unlock without --force to fail")
	}
	run(t, "unlock", "Widgets", "--catalog", cat, "--force")
}
