package links_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notelinks/internal/events"
	"notelinks/internal/links"
	"notelinks/internal/workspace"
)

type fakeReader map[string]string

func (r fakeReader) Content(_ context.Context, file *workspace.File) (string, error) {
	content, ok := r[file.Path]
	if !ok {
		return "", errors.New("no such note")
	}
	return content, nil
}

type fakeLocator struct {
	notes   map[string]string
	sources []string
}

func (l *fakeLocator) Lookup(linkpath, source string) (string, bool) {
	l.sources = append(l.sources, source)
	dest, ok := l.notes[linkpath]
	return dest, ok
}

func TestLinks(t *testing.T) {
	reader := fakeReader{
		"daily/today.md": "[[Plan|Old]] [[Plan#Goals]] [[missing]] [[#Local]]",
	}
	locator := &fakeLocator{notes: map[string]string{"Plan": "projects/Plan.md"}}
	svc := links.NewService(newExtractor(t), reader, locator)

	got, err := svc.Links(context.Background(), "daily/today.md")
	require.NoError(t, err)
	assert.Equal(t, []events.Link{
		{Link: "Plan", Alias: "Old", Dest: "projects/Plan.md", Original: "[[Plan|Old]]", Start: 0, End: 12},
		{Link: "Plan#Goals", Alias: "Plan#Goals", Dest: "projects/Plan.md", Original: "[[Plan#Goals]]", Start: 13, End: 27},
	}, got)
	for _, source := range locator.sources {
		assert.Equal(t, "daily/today.md", source)
	}
}

func TestLinksReadError(t *testing.T) {
	svc := links.NewService(newExtractor(t), fakeReader{}, &fakeLocator{})
	_, err := svc.Links(context.Background(), "missing.md")
	assert.Error(t, err)
}
