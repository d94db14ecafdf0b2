package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestLoadPadsShortRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Row{"a": "1", "b": "2", "c": ""}
	if !reflect.DeepEqual(tbl.Rows[0], want) {
		t.Fatalf("got %v, want %v", tbl.Rows[0], want)
	}
}

func TestLoadRejectsLongRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.csv")
	tbl := NewTable([]string{"KEY", "VALUE", "NOTE"})
	tbl.AppendRow(Row{"KEY": "X1", "VALUE": "10", "NOTE": "plain"})
	tbl.AppendRow(Row{"KEY": "X2", "VALUE": "a,b", "NOTE": `says "hi"`})
	tbl.AppendRow(Row{"KEY": "X3", "VALUE": "line1\nline2", "NOTE": ""})
	tbl.AppendRow(Row{"KEY": "X4"}) // missing values normalize to ""

	if err := Persist(path, tbl); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Columns, tbl.Columns) {
		t.Fatalf("columns: got %v, want %v", got.Columns, tbl.Columns)
	}
	if !reflect.DeepEqual(got.Rows, tbl.Rows) {
		t.Fatalf("rows: got %v, want %v", got.Rows, tbl.Rows)
	}
}

func TestPersistOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.csv")
	tbl := NewTable([]string{"a"})
	tbl.AppendRow(Row{"a": "1"})
	if err := Persist(path, tbl); err != nil {
		t.Fatal(err)
	}
	tbl.AppendRow(Row{"a": "2"})
	if err := Persist(path, tbl); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestPersistFailureSurfacesCause(t *testing.T) {
	tbl := NewTable([]string{"a"})
	err := Persist(filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv"), tbl)
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if pe.Err == nil {
		t.Fatal("expected underlying cause")
	}
}

func TestFindRow(t *testing.T) {
	tbl := NewTable([]string{"KEY", "VALUE"})
	tbl.AppendRow(Row{"KEY": "X1", "VALUE": "10"})
	tbl.AppendRow(Row{"KEY": "X2", "VALUE": "20"})
	tbl.AppendRow(Row{"KEY": "X2", "VALUE": "30"})

	if i, ok := tbl.FindRow(Row{"KEY": "X2"}); !ok || i != 1 {
		t.Fatalf("expected first match at 1, got %d %v", i, ok)
	}
	if i, ok := tbl.FindRow(Row{"KEY": "X2", "VALUE": "30"}); !ok || i != 2 {
		t.Fatalf("expected composite match at 2, got %d %v", i, ok)
	}
	if _, ok := tbl.FindRow(Row{"KEY": "nope"}); ok {
		t.Fatal("expected no match")
	}
}
