package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"notelinks/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	id      string
	enabled bool
	paths   []string
	err     error
}

func (s *stubManager) ID() string { return s.id }
func (s *stubManager) Enable() { s.enabled = true }
func (s *stubManager) Disable() { s.enabled = false }
func (s *stubManager) IsEnabled() bool { return s.enabled }
func (s *stubManager) Update(ctx context.Context, path string) (bool, error) {
	s.paths = append(s.paths, path)
	return false, s.err
}

func TestRegistry(t *testing.T) {
	a := &stubManager{id: "b-manager", enabled: true}
	b := &stubManager{id: "a-manager"}
	r := reconcile.NewRegistry(a, b)

	assert.Equal(t, []string{"a-manager", "b-manager"}, r.IDs())

	got, err := r.Get("a-manager")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, reconcile.ErrUnknownManager)

	require.NoError(t, r.UpdateAll(context.Background(), "x.md"))
	assert.Equal(t, []string{"x.md"}, a.paths)
	assert.Empty(t, b.paths)
}

func TestRegistryUpdateAllError(t *testing.T) {
	errBoom := errors.New("boom")
	r := reconcile.NewRegistry(&stubManager{id: "m", enabled: true, err: errBoom})

	err := r.UpdateAll(context.Background(), "")
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "manager m")
}
