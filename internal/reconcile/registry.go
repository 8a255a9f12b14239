package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownManager = errors.New("reconcile: unknown manager")

// Updater is the surface the host drives registered managers through.
type Updater interface {
	ID() string
	Enable()
	Disable()
	IsEnabled() bool
	Update(ctx context.Context, path string) (bool, error)
}

// Registry routes host requests to managers by ID.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]Updater
}

func NewRegistry(managers ...Updater) *Registry {
	r := &Registry{managers: make(map[string]Updater)}
	for _, m := range managers {
		r.Register(m)
	}
	return r
}

// Register adds m, replacing a manager registered under the same ID.
func (r *Registry) Register(m Updater) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m.ID()] = m
}

func (r *Registry) Get(id string) (Updater, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManager, id)
	}
	return m, nil
}

// IDs returns the registered IDs in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateAll calls Update on every enabled manager in ID order and stops
// at the first error.
func (r *Registry) UpdateAll(ctx context.Context, path string) error {
	for _, id := range r.IDs() {
		m, err := r.Get(id)
		if err != nil {
			continue
		}
		if !m.IsEnabled() {
			continue
		}
		if _, err := m.Update(ctx, path); err != nil {
			return fmt.Errorf("manager %s: %w", id, err)
		}
	}
	return nil
}
