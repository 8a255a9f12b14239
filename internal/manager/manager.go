// Package manager keeps the notes open in the editor and writes link
// rewrites back through the client.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"notelinks/internal/workspace"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var ErrEditRejected = errors.New("manager: client rejected edit")

// Editor applies workspace edits in the client.
type Editor interface {
	ApplyEdit(ctx context.Context, label string, edit protocol.WorkspaceEdit) error
}

// Document is a note open in the editor.
type Document struct {
	URI     protocol.DocumentUri
	Path    string
	Version protocol.Integer
	Text    string
}

// DocumentManager holds the state of every open note, keyed by vault path.
type DocumentManager struct {
	root   string
	editor Editor

	mu   sync.Mutex
	docs map[string]*Document
}

// NewDocumentManager creates an initialized DocumentManager for the vault
// at root, an absolute filesystem path.
func NewDocumentManager(root string, editor Editor) *DocumentManager {
	return &DocumentManager{
		root:   filepath.Clean(root),
		editor: editor,
		docs:   make(map[string]*Document),
	}
}

// URIToPath converts a file URI into a vault path.
func (dm *DocumentManager) URIToPath(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", workspace.ErrOutsideRoot, uri)
	}
	rel, err := filepath.Rel(dm.root, filepath.FromSlash(u.Path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", workspace.ErrOutsideRoot, uri)
	}
	return filepath.ToSlash(rel), nil
}

// PathToURI converts a vault path into a file URI.
func (dm *DocumentManager) PathToURI(rel string) protocol.DocumentUri {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(filepath.Join(dm.root, filepath.FromSlash(rel))),
	}
	return u.String()
}

// Open stores the content of a newly opened note and returns its vault path.
func (dm *DocumentManager) Open(uri protocol.DocumentUri, version protocol.Integer, text string) (string, error) {
	rel, err := dm.URIToPath(uri)
	if err != nil {
		return "", err
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs[rel] = &Document{URI: uri, Path: rel, Version: version, Text: text}
	return rel, nil
}

// Change applies the content changes of a didChange notification in order.
func (dm *DocumentManager) Change(uri protocol.DocumentUri, version protocol.Integer, changes []any) (string, error) {
	rel, err := dm.URIToPath(uri)
	if err != nil {
		return "", err
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[rel]
	if !ok {
		return "", fmt.Errorf("%w: %s", workspace.ErrDocumentNotOpen, rel)
	}
	text := doc.Text
	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			text = applyChange(text, change)
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		default:
			return "", fmt.Errorf("unexpected change event type %T", raw)
		}
	}
	doc.Text = text
	doc.Version = version
	return rel, nil
}

// Save replaces the stored content when the client includes it.
func (dm *DocumentManager) Save(uri protocol.DocumentUri, text *string) (string, error) {
	rel, err := dm.URIToPath(uri)
	if err != nil {
		return "", err
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[rel]
	if !ok {
		return "", fmt.Errorf("%w: %s", workspace.ErrDocumentNotOpen, rel)
	}
	if text != nil {
		doc.Text = *text
	}
	return rel, nil
}

// Release forgets a closed note.
func (dm *DocumentManager) Release(uri protocol.DocumentUri) (string, error) {
	rel, err := dm.URIToPath(uri)
	if err != nil {
		return "", err
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.docs, rel)
	return rel, nil
}

// Get returns a copy of the open note at rel.
func (dm *DocumentManager) Get(rel string) (Document, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.docs[rel]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// OpenDocuments lists the open notes in vault path order.
func (dm *DocumentManager) OpenDocuments(ctx context.Context, kind string) ([]workspace.View, error) {
	if kind != workspace.KindMarkdown {
		return nil, nil
	}
	dm.mu.Lock()
	paths := make([]string, 0, len(dm.docs))
	for p := range dm.docs {
		paths = append(paths, p)
	}
	dm.mu.Unlock()
	sort.Strings(paths)

	views := make([]workspace.View, 0, len(paths))
	for _, p := range paths {
		views = append(views, workspace.View{Kind: kind, File: &workspace.File{Path: p}})
	}
	return views, nil
}

func (dm *DocumentManager) Content(ctx context.Context, file *workspace.File) (string, error) {
	doc, ok := dm.Get(file.Path)
	if !ok {
		return "", fmt.Errorf("%w: %s", workspace.ErrDocumentNotOpen, file.Path)
	}
	return doc.Text, nil
}

// Modify asks the client to replace the whole note with content. The
// stored text is left alone; the client reports the edit via didChange.
func (dm *DocumentManager) Modify(ctx context.Context, file *workspace.File, content string) error {
	doc, ok := dm.Get(file.Path)
	if !ok {
		return fmt.Errorf("%w: %s", workspace.ErrDocumentNotOpen, file.Path)
	}
	version := doc.Version
	edit := protocol.WorkspaceEdit{
		DocumentChanges: []any{
			protocol.TextDocumentEdit{
				TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
					TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc.URI},
					Version:                &version,
				},
				Edits: []any{
					protocol.TextEdit{
						Range: protocol.Range{
							Start: protocol.Position{Line: 0, Character: 0},
							End:   endPosition(doc.Text),
						},
						NewText: content,
					},
				},
			},
		},
	}
	if err := dm.editor.ApplyEdit(ctx, "Update link titles", edit); err != nil {
		return fmt.Errorf("failed to modify %s: %w", file.Path, err)
	}
	return nil
}
