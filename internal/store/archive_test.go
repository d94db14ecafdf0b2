package store

import (
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"

	"github.com/tabshare/tabshare/internal/catalog"
	"github.com/tabshare/tabshare/internal/identity"
	"github.com/tabshare/tabshare/internal/ledger"
	"github.com/tabshare/tabshare/internal/tabular"
)

func TestArchiveCommitsMutations(t *testing.T) {
	dir := t.TempDir()
	res := catalog.Resource{Name: "Widgets", Path: filepath.Join(dir, "widgets.csv"), Columns: []string{"KEY", "VALUE"}}
	tbl := tabular.NewTable(res.Columns)
	if err := tabular.Persist(res.Path, tbl); err != nil {
		t.Fatal(err)
	}

	cat := &catalog.Catalog{
		Resources:   []catalog.Resource{res},
		Ledger:      filepath.Join(dir, "edit_history.csv"),
		Archive:     catalog.Archive{Enabled: true, Dir: dir},
		MissingFile: catalog.FailFast,
	}
	s, err := New(cat, Options{
		Identity: identity.Identity{User: "alice", Machine: "machineA"},
		Clock:    fixedClock{testTime},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.Close()
	}()

	if err := s.Add("Widgets", tabular.Row{"KEY": "X1", "VALUE": "10"}); err != nil {
		t.Fatal(err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "ADD Widgets X1" {
		t.Fatalf("commit message %q", commit.Message)
	}
	if commit.Author.Name != "alice" {
		t.Fatalf("author %q", commit.Author.Name)
	}
}

func TestArchiveSkipsFilesOutsideDir(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenArchive(dir)
	if err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "elsewhere.csv")
	e := ledger.NewAdd("2025-07-08 14:00:00", "alice@m", "Widgets", "X1", nil)
	if err := a.CommitMutation(identity.Identity{User: "alice", Machine: "m"}, e, outside); err != nil {
		t.Fatal(err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Head(); err == nil {
		t.Fatal("expected no commits")
	}
}
