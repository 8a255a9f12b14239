package index_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"notelinks/internal/index"

	_ "github.com/mattn/go-sqlite3"
)

func openTestStore(t *testing.T) *index.Store {
	t.Helper()
	store, err := index.Open(":memory:", ".md")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustUpsert(t *testing.T, store *index.Store, path, title string) bool {
	t.Helper()
	changed, err := store.Upsert(index.Note{Path: path, Title: title, LastModified: time.Unix(100, 0)})
	if err != nil {
		t.Fatalf("Upsert(%s) error = %v", path, err)
	}
	return changed
}

func TestUpsertAndResolve(t *testing.T) {
	store := openTestStore(t)

	if !mustUpsert(t, store, "a.md", "Alpha") {
		t.Error("expected a new note to be reported as changed")
	}
	if mustUpsert(t, store, "a.md", "Alpha") {
		t.Error("expected an unchanged title not to be reported")
	}
	if !mustUpsert(t, store, "a.md", "Alpha 2") {
		t.Error("expected a retitled note to be reported")
	}
	mustUpsert(t, store, "untitled.md", "")

	tests := []struct {
		dest  string
		title string
		ok    bool
	}{
		{"a.md", "Alpha 2", true},
		{"untitled.md", "", false},
		{"missing.md", "", false},
	}
	for _, tt := range tests {
		title, ok := store.Resolve(tt.dest)
		if title != tt.title || ok != tt.ok {
			t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.dest, title, ok, tt.title, tt.ok)
		}
	}

	note, err := store.Get("a.md")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !note.LastModified.Equal(time.Unix(100, 0)) {
		t.Errorf("LastModified = %v", note.LastModified)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	mustUpsert(t, store, "a.md", "Alpha")

	if err := store.Delete("a.md"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get("a.md"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete("a.md"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if !store.LastModified("a.md").IsZero() {
		t.Error("expected zero time for a missing note")
	}
}

func TestPaths(t *testing.T) {
	store := openTestStore(t)
	mustUpsert(t, store, "b.md", "B")
	mustUpsert(t, store, "a.md", "A")

	paths, err := store.Paths()
	if err != nil {
		t.Fatalf("Paths() error = %v", err)
	}
	if len(paths) != 2 || paths[0] != "a.md" || paths[1] != "b.md" {
		t.Errorf("Paths() = %v", paths)
	}
}

func TestLookup(t *testing.T) {
	store := openTestStore(t)
	for _, p := range []string{
		"Home.md",
		"projects/Plan.md",
		"archive/projects/Plan.md",
		"daily/2024-01-01.md",
		"daily/notes/Todo.md",
		"daily/2024.01.15.md",
		"v1.2 notes.md",
		"image.png",
	} {
		mustUpsert(t, store, p, "")
	}

	tests := []struct {
		link   string
		source string
		want   string
		ok     bool
	}{
		{"Home", "x.md", "Home.md", true},
		{"home", "x.md", "Home.md", true},
		{"Home.md", "x.md", "Home.md", true},
		{"Plan", "x.md", "projects/Plan.md", true},
		{"archive/projects/Plan", "x.md", "archive/projects/Plan.md", true},
		{"notes/Todo", "daily/2024-01-01.md", "daily/notes/Todo.md", true},
		{"Todo", "Home.md", "daily/notes/Todo.md", true},
		{"image.png", "x.md", "image.png", true},
		{"2024.01.15", "x.md", "daily/2024.01.15.md", true},
		{"2024.01.15.md", "x.md", "daily/2024.01.15.md", true},
		{"daily/2024.01.15", "x.md", "daily/2024.01.15.md", true},
		{"v1.2 notes", "x.md", "v1.2 notes.md", true},
		{"2024.01", "x.md", "", false},
		{"Missing", "x.md", "", false},
		{"", "x.md", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, ok := store.Lookup(tt.link, tt.source)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Lookup(%q, %q) = %q, %v; want %q, %v", tt.link, tt.source, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestOpenDropsOldSchema(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "index.db")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{
		`CREATE TABLE notes (path TEXT PRIMARY KEY, base TEXT NOT NULL, title TEXT NOT NULL DEFAULT '', last_modified INTEGER NOT NULL)`,
		`INSERT INTO notes VALUES ('2024.01.15.md', '2024.01', 'Day', 1)`,
		`PRAGMA user_version = 1`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	store, err := index.Open(dsn, ".md")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	paths, err := store.Paths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("expected an empty index, got %v", paths)
	}
}

func TestSubscribe(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	events := store.Subscribe(ctx)

	mustUpsert(t, store, "a.md", "A")
	mustUpsert(t, store, "a.md", "B")
	mustUpsert(t, store, "a.md", "B")
	if err := store.Delete("a.md"); err != nil {
		t.Fatal(err)
	}

	want := []index.Event{
		{Type: index.CreateNote, Path: "a.md", Title: "A"},
		{Type: index.UpdateNote, Path: "a.md", OldTitle: "A", Title: "B"},
		{Type: index.DeleteNote, Path: "a.md"},
	}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	cancel()
	for range events {
	}
}
