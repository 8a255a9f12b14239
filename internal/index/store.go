// Package index keeps the titles of the notes of a vault in SQLite and
// resolves link destinations to those titles.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.index")

// Note is one indexed note.
type Note struct {
	Path         string
	Title        string
	LastModified time.Time
}

type EventType int

const (
	CreateNote EventType = iota // A note was added to the index.
	UpdateNote                  // The title of a note changed.
	DeleteNote                  // A note was removed from the index.
)

// Event describes a single change of the index.
type Event struct {
	Type     EventType
	Path     string
	OldTitle string
	Title    string
}

// Store is the SQLite backed title index.
type Store struct {
	db         *sql.DB
	extensions []string

	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

// Open opens or creates the index at dsn. extensions are the note
// extensions of the vault, e.g. ".md". The first one is appended to link
// paths that do not end in a note extension.
func Open(dsn string, extensions ...string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:          db,
		extensions:  extensions,
		subscribers: make(map[int]chan Event),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// noteExt returns the note extension p ends in, or "".
// "2024.01.15" has none, its ".15" is part of the name.
func (s *Store) noteExt(p string) string {
	ext := path.Ext(p)
	for _, e := range s.extensions {
		if strings.EqualFold(ext, e) {
			return ext
		}
	}
	return ""
}

func (s *Store) baseName(p string) string {
	b := path.Base(p)
	return strings.ToLower(strings.TrimSuffix(b, s.noteExt(b)))
}

// Upsert stores note and reports whether it was added or its title
// changed.
func (s *Store) Upsert(note Note) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var old string
	err = tx.QueryRow(`SELECT title FROM notes WHERE path = ?`, note.Path).Scan(&old)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return false, fmt.Errorf("failed to read note %s: %w", note.Path, err)
	}

	_, err = tx.Exec(`
		INSERT INTO notes (path, base, title, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			last_modified = excluded.last_modified;
	`, note.Path, s.baseName(note.Path), note.Title, note.LastModified.UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to upsert note %s: %w", note.Path, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	switch {
	case !exists:
		s.emit(Event{Type: CreateNote, Path: note.Path, Title: note.Title})
		return true, nil
	case old != note.Title:
		s.emit(Event{Type: UpdateNote, Path: note.Path, OldTitle: old, Title: note.Title})
		return true, nil
	}
	return false, nil
}

// Delete removes a note from the index.
func (s *Store) Delete(p string) error {
	res, err := s.db.Exec(`DELETE FROM notes WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.emit(Event{Type: DeleteNote, Path: p})
	return nil
}

func (s *Store) Get(p string) (Note, error) {
	var note Note
	var modified int64
	err := s.db.QueryRow(
		`SELECT path, title, last_modified FROM notes WHERE path = ?`, p,
	).Scan(&note.Path, &note.Title, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	} else if err != nil {
		return Note{}, fmt.Errorf("failed to read note %s: %w", p, err)
	}
	note.LastModified = time.Unix(0, modified)
	return note, nil
}

// Paths returns all indexed note paths in lexical order.
func (s *Store) Paths() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// LastModified returns the modification time stored for a note, or the
// zero time if it is not indexed.
func (s *Store) LastModified(p string) time.Time {
	note, err := s.Get(p)
	if err != nil {
		return time.Time{}
	}
	return note.LastModified
}

// Resolve returns the title of the note at dest.
func (s *Store) Resolve(dest string) (string, bool) {
	note, err := s.Get(dest)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Errorf("resolve %s: %v", dest, err)
		}
		return "", false
	}
	if note.Title == "" {
		return "", false
	}
	return note.Title, true
}

// Lookup finds the note a link path written in source points to. The
// link path is tried as a vault path, relative to the directory of
// source and finally as a file name, preferring the shortest path.
// Matching ignores case.
func (s *Store) Lookup(linkpath, source string) (string, bool) {
	linkpath = strings.TrimSpace(linkpath)
	if linkpath == "" {
		return "", false
	}
	clean := path.Clean(strings.TrimPrefix(linkpath, "/"))

	var candidates []string
	var defaultExt string
	if len(s.extensions) > 0 {
		defaultExt = s.extensions[0]
	}
	add := func(p string) {
		candidates = append(candidates, p)
		if defaultExt != "" && s.noteExt(p) == "" {
			candidates = append(candidates, p+defaultExt)
		}
	}
	add(clean)
	if dir := path.Dir(source); dir != "." {
		add(path.Join(dir, linkpath))
	}

	for _, c := range candidates {
		var found string
		err := s.db.QueryRow(
			`SELECT path FROM notes WHERE path = ? COLLATE NOCASE ORDER BY path LIMIT 1`, c,
		).Scan(&found)
		if err == nil {
			return found, true
		}
		if !errors.Is(err, sql.ErrNoRows) {
			log.Errorf("lookup %s: %v", c, err)
			return "", false
		}
	}

	rows, err := s.db.Query(
		`SELECT path FROM notes WHERE base = ? ORDER BY length(path), path`, s.baseName(clean),
	)
	if err != nil {
		log.Errorf("lookup %s: %v", linkpath, err)
		return "", false
	}
	defer rows.Close()

	suffix := strings.ToLower(clean)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", false
		}
		lower := strings.ToLower(p)
		stem := strings.TrimSuffix(lower, strings.ToLower(s.noteExt(lower)))
		if lower == suffix || stem == suffix ||
			strings.HasSuffix(lower, "/"+suffix) || strings.HasSuffix(stem, "/"+suffix) {
			return p, true
		}
	}
	return "", false
}

// Subscribe returns a channel of change events until ctx is canceled.
// Events are dropped for subscribers that do not keep up.
func (s *Store) Subscribe(ctx context.Context) <-chan Event {
	s.mu.Lock()
	ch := make(chan Event, 16)
	sid := s.nextSubID
	s.nextSubID++
	s.subscribers[sid] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, sid)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
