package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notelinks/internal/scanner"
)

// Indexer keeps a Store in line with the notes on disk.
type Indexer struct {
	store      *Store
	root       string
	extensions []string
	opts       TitleOptions
}

func NewIndexer(store *Store, root string, extensions []string, opts TitleOptions) *Indexer {
	return &Indexer{
		store:      store,
		root:       root,
		extensions: extensions,
		opts:       opts,
	}
}

func (ix *Indexer) Store() *Store { return ix.store }

func (ix *Indexer) Root() string { return ix.root }

// IsNote reports whether the vault path names a note.
func (ix *Indexer) IsNote(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	for _, e := range ix.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Rel converts an absolute path into a vault path.
func (ix *Indexer) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	return filepath.ToSlash(rel), nil
}

// Scan indexes every note of the vault that changed since it was last
// indexed and drops notes that no longer exist.
func (ix *Indexer) Scan(ctx context.Context) error {
	var mu sync.Mutex
	seen := map[string]struct{}{}

	skip := func(rel string, info fs.FileInfo) bool {
		if !ix.IsNote(rel) {
			return true
		}
		mu.Lock()
		seen[rel] = struct{}{}
		mu.Unlock()

		lastSeen := ix.store.LastModified(rel)
		unchanged := !lastSeen.IsZero() && !info.ModTime().After(lastSeen)
		if !unchanged {
			log.Debugf("note %s was changed", rel)
		}
		return unchanged
	}
	callback := func(rel string, document []byte, info fs.FileInfo) error {
		_, err := ix.IndexDocument(rel, document, info.ModTime())
		return err
	}

	start := time.Now()
	if err := scanner.Scan(ctx, ix.root, skip, callback); err != nil {
		return fmt.Errorf("failed to scan %s: %w", ix.root, err)
	}

	paths, err := ix.store.Paths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := ix.store.Delete(p); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	log.Infof("indexed %s in %s", ix.root, time.Since(start))
	return nil
}

// IndexDocument stores the title of the note at rel and reports whether
// the note was added or retitled.
func (ix *Indexer) IndexDocument(rel string, content []byte, modTime time.Time) (bool, error) {
	if !ix.IsNote(rel) {
		return false, fmt.Errorf("%w: %s", ErrNotNote, rel)
	}
	return ix.store.Upsert(Note{
		Path:         rel,
		Title:        Title(content, ix.opts),
		LastModified: modTime,
	})
}

// IndexFile reads the note at rel from disk and indexes it.
func (ix *Indexer) IndexFile(rel string) (bool, error) {
	abs := filepath.Join(ix.root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return ix.IndexDocument(rel, content, info.ModTime())
}

// Remove drops the note at rel from the index.
func (ix *Indexer) Remove(rel string) error {
	return ix.store.Delete(rel)
}
