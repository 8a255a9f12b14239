// Package reconcile keeps the aliases of wiki links in open notes in line
// with the current titles of the notes they point to.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"notelinks/internal/events"
	"notelinks/internal/workspace"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.reconcile")

// ID names the link manager among the managers of the host.
const ID = "note-link"

// ErrStaleDocument reports that a document no longer contains the links
// a batch was built from.
var ErrStaleDocument = errors.New("reconcile: document changed since links were extracted")

// Documents gives access to the documents open in the host.
type Documents interface {
	OpenDocuments(ctx context.Context, kind string) ([]workspace.View, error)
	Content(ctx context.Context, file *workspace.File) (string, error)
	Modify(ctx context.Context, file *workspace.File, content string) error
}

// LinkSource extracts the wiki links of a document.
type LinkSource interface {
	Links(ctx context.Context, path string) ([]events.Link, error)
}

// Resolver returns the current title of a link destination.
type Resolver interface {
	Resolve(dest string) (string, bool)
}

// Manager rewrites link aliases of open documents to the titles of
// their destinations. Documents are processed one after another and
// every batch of rewrites passes the approval event before it is applied.
type Manager struct {
	docs     Documents
	links    LinkSource
	resolver Resolver
	bus      *events.Bus
	enabled  atomic.Bool
}

// New returns a disabled Manager.
func New(docs Documents, links LinkSource, resolver Resolver, bus *events.Bus) *Manager {
	return &Manager{
		docs:     docs,
		links:    links,
		resolver: resolver,
		bus:      bus,
	}
}

func (m *Manager) ID() string { return ID }

func (m *Manager) Enable() { m.enabled.Store(true) }

func (m *Manager) Disable() { m.enabled.Store(false) }

func (m *Manager) IsEnabled() bool { return m.enabled.Load() }

// Update processes every open document, or only the one at path when
// path is not empty. A path is processed at most once per call, however
// many views show it.
//
// The boolean result is always false and does not report whether a
// document was changed.
func (m *Manager) Update(ctx context.Context, path string) (bool, error) {
	if !m.IsEnabled() {
		return false, nil
	}

	views, err := m.docs.OpenDocuments(ctx, workspace.KindMarkdown)
	if err != nil {
		return false, fmt.Errorf("failed to list open documents: %w", err)
	}
	if len(views) == 0 {
		return false, nil
	}

	done := make(map[string]struct{}, len(views))
	for _, view := range views {
		if view.File == nil {
			continue
		}
		p := view.File.Path
		if _, ok := done[p]; ok {
			continue
		}
		if path != "" && path != p {
			continue
		}
		if err := m.Process(ctx, view.File); err != nil {
			return false, err
		}
		done[p] = struct{}{}
	}
	return false, nil
}

// Process runs one reconciliation pass over file.
func (m *Manager) Process(ctx context.Context, file *workspace.File) error {
	log.Infof("process %s", file.Path)

	links, err := m.links.Links(ctx, file.Path)
	if err != nil {
		return fmt.Errorf("failed to extract links of %s: %w", file.Path, err)
	}
	links = m.bus.FilterLinks(ctx, file.Path, links)

	changes := m.changes(links)
	if len(changes) == 0 {
		log.Infof("no replaces for %s", file.Path)
		return nil
	}

	batch := uuid.NewString()
	log.Infof("request approval for %s (batch %s, %d changes)", file.Path, batch, len(changes))
	approved, err := m.bus.RequestApproval(ctx, batch, file.Path, changes)
	if err != nil {
		return fmt.Errorf("failed to approve changes for %s: %w", file.Path, err)
	}
	if !approved {
		log.Infof("changes for %s have been rejected (batch %s)", file.Path, batch)
		return nil
	}
	log.Infof("changes for %s have been approved (batch %s)", file.Path, batch)

	content, err := m.docs.Content(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	updated, err := Apply(content, changes)
	if errors.Is(err, ErrStaleDocument) {
		log.Warningf("drop batch %s for %s: %v", batch, file.Path, err)
		return nil
	}
	if err != nil {
		return err
	}
	if updated == content {
		return nil
	}
	if err := m.docs.Modify(ctx, file, updated); err != nil {
		return fmt.Errorf("failed to modify %s: %w", file.Path, err)
	}
	return nil
}

type resolution struct {
	title string
	ok    bool
}

// changes resolves every destination once and returns the rewrites of
// links whose alias differs from the resolved title.
func (m *Manager) changes(links []events.Link) []events.Change {
	var changes []events.Change
	resolved := make(map[string]resolution)
	for _, item := range links {
		r, seen := resolved[item.Dest]
		if !seen {
			r.title, r.ok = m.resolver.Resolve(item.Dest)
			resolved[item.Dest] = r
		}
		if !r.ok || r.title == "" || r.title == item.Alias {
			continue
		}
		changes = append(changes, events.Change{
			New:   Format(item.Link, r.title),
			Old:   item.Original,
			Start: item.Start,
			End:   item.End,
		})
	}
	return changes
}

// Format returns the wiki link to link displayed as title.
func Format(link, title string) string {
	return "[[" + link + "|" + title + "]]"
}

// Apply replaces the old text of every change at its offsets with the
// new text. Edits are applied from the end of content backwards, so
// text outside the changed links is never touched. It fails with
// ErrStaleDocument when the text at the offsets of a change is no
// longer its old text.
func Apply(content string, changes []events.Change) (string, error) {
	edits := make([]events.Change, len(changes))
	copy(edits, changes)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Start > edits[j].Start
	})

	next := len(content)
	var last *events.Change
	for i := range edits {
		c := edits[i]
		if last != nil && c == *last {
			continue
		}
		if c.Old == "" || c.Start < 0 || c.End > next ||
			c.End-c.Start != len(c.Old) || content[c.Start:c.End] != c.Old {
			return "", fmt.Errorf("%w: %q not found at %d", ErrStaleDocument, c.Old, c.Start)
		}
		content = content[:c.Start] + c.New + content[c.End:]
		next = c.Start
		last = &edits[i]
	}
	return content, nil
}
