// Package events provides the synchronous observer bus used to filter
// extracted note links and to approve link rewrites before they are applied.
package events

import (
	"context"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.events")

type Name string

const (
	LinkFilter        Name = "note:link:filter"         // Observers may alter the link set of a note.
	LinkChangeApprove Name = "note:link:change:approve" // Observers decide whether a batch is applied.
)

// Link is one wiki link found in a note.
// Original is the exact text of the link in the document, found at the
// byte offsets [Start, End).
type Link struct {
	Link     string `json:"link"`
	Alias    string `json:"alias"`
	Dest     string `json:"dest"`
	Original string `json:"original"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Change replaces the Old text of a link at [Start, End) with New.
type Change struct {
	New   string `json:"new"`
	Old   string `json:"old"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// FilterEvent carries the links of one note through LinkFilter.
// Observers replace Links to drop or alter links.
type FilterEvent struct {
	Path  string
	Links []Link
}

// Decision resolves to whether a batch may be applied.
type Decision func(ctx context.Context) (bool, error)

// Approved is the default decision of every batch.
func Approved(context.Context) (bool, error) { return true, nil }

// Rejected never lets a batch through.
func Rejected(context.Context) (bool, error) { return false, nil }

// ApproveEvent carries one batch of changes through LinkChangeApprove.
// Observers replace Approve to take over the decision; the batch is
// accepted or rejected as a whole.
type ApproveEvent struct {
	ID      string
	Path    string
	Changes []Change
	Approve Decision
}

// Observer is called with the event being dispatched.
type Observer[T any] func(ctx context.Context, event T)

type entry[T any] struct {
	id int
	fn Observer[T]
}

// Topic dispatches events of one type to its observers in
// registration order.
type Topic[T any] struct {
	name      Name
	mu        sync.RWMutex
	observers []entry[T]
	nextID    int
}

func NewTopic[T any](name Name) *Topic[T] {
	return &Topic[T]{name: name}
}

func (t *Topic[T]) Name() Name { return t.name }

// Subscribe registers fn and returns a function removing it again.
func (t *Topic[T]) Subscribe(fn Observer[T]) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.observers = append(t.observers, entry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, e := range t.observers {
				if e.id == id {
					t.observers = append(t.observers[:i:i], t.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch runs every observer on event and returns it. Each observer
// sees the changes made by the ones before it.
func (t *Topic[T]) Dispatch(ctx context.Context, event T) T {
	t.mu.RLock()
	observers := make([]entry[T], len(t.observers))
	copy(observers, t.observers)
	t.mu.RUnlock()

	log.Debugf("dispatch %s to %d observers", t.name, len(observers))
	for _, e := range observers {
		e.fn(ctx, event)
	}
	return event
}

// Len returns the number of registered observers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.observers)
}

// Bus groups the topics of the link reconciliation.
type Bus struct {
	LinkFilter        *Topic[*FilterEvent]
	LinkChangeApprove *Topic[*ApproveEvent]
}

func NewBus() *Bus {
	return &Bus{
		LinkFilter:        NewTopic[*FilterEvent](LinkFilter),
		LinkChangeApprove: NewTopic[*ApproveEvent](LinkChangeApprove),
	}
}

// FilterLinks dispatches links through LinkFilter and returns the
// resulting set.
func (b *Bus) FilterLinks(ctx context.Context, path string, links []Link) []Link {
	return b.LinkFilter.Dispatch(ctx, &FilterEvent{Path: path, Links: links}).Links
}

// RequestApproval dispatches a batch through LinkChangeApprove, starting
// from the Approved decision, and waits for the resulting decision.
func (b *Bus) RequestApproval(ctx context.Context, id, path string, changes []Change) (bool, error) {
	event := b.LinkChangeApprove.Dispatch(ctx, &ApproveEvent{
		ID:      id,
		Path:    path,
		Changes: changes,
		Approve: Approved,
	})
	if event.Approve == nil {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return event.Approve(ctx)
}
