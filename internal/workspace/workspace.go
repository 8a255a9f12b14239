// Package workspace describes the documents a reconciliation runs on and
// provides the filesystem-backed document accessor used by the CLI.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// KindMarkdown is the kind of document holding wiki links.
const KindMarkdown = "markdown"

var (
	ErrDocumentNotOpen = errors.New("workspace: document not open")
	ErrOutsideRoot     = errors.New("workspace: path outside of root")
)

// File is the backing file of a document. Path is relative to the vault
// root and uses forward slashes.
type File struct {
	Path string
}

// View is a document open for editing. File is nil when the view has no
// backing file.
type View struct {
	Kind string
	File *File
}

// Filesystem treats a set of vault files as the open documents and
// reads and writes them on disk.
type Filesystem struct {
	root string

	mu   sync.Mutex
	open map[string]struct{}
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{
		root: root,
		open: make(map[string]struct{}),
	}
}

func (f *Filesystem) Root() string { return f.root }

// Open marks the vault-relative paths as open documents.
func (f *Filesystem) Open(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.open[filepath.ToSlash(filepath.Clean(p))] = struct{}{}
	}
}

// Close removes paths from the open documents.
func (f *Filesystem) Close(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.open, filepath.ToSlash(filepath.Clean(p)))
	}
}

// OpenDocuments returns a view per open path in lexical order. Views
// whose file vanished from disk carry a nil File.
func (f *Filesystem) OpenDocuments(ctx context.Context, kind string) ([]View, error) {
	if kind != KindMarkdown {
		return nil, nil
	}

	f.mu.Lock()
	paths := make([]string, 0, len(f.open))
	for p := range f.open {
		paths = append(paths, p)
	}
	f.mu.Unlock()
	sort.Strings(paths)

	views := make([]View, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view := View{Kind: kind}
		abs, err := f.abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		switch {
		case err == nil && !info.IsDir():
			view.File = &File{Path: p}
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		views = append(views, view)
	}
	return views, nil
}

func (f *Filesystem) Content(ctx context.Context, file *File) (string, error) {
	abs, err := f.abs(file.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	return string(data), nil
}

// Modify overwrites the file with content. The new content is written
// to a temporary file first and renamed over the original.
func (f *Filesystem) Modify(ctx context.Context, file *File, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := f.abs(file.Path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", file.Path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", file.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", file.Path, err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("failed to replace %s: %w", file.Path, err)
	}
	return nil
}

func (f *Filesystem) abs(rel string) (string, error) {
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	check, err := filepath.Rel(f.root, abs)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, nil
}
