package links_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notelinks/internal/links"
)

func newExtractor(t *testing.T) *links.Extractor {
	t.Helper()
	e, err := links.NewExtractor(2)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestExtract(t *testing.T) {
	e := newExtractor(t)

	content := "# Note\n" +
		"See [[alpha]] and [[dir/beta|Beta]].\n" +
		"Heading link [[gamma#Intro|Gamma intro]] and ![[image.png]].\n" +
		"Inline `[[in code]]` stays.\n" +
		"\n" +
		"```\n" +
		"[[fenced]]\n" +
		"```\n" +
		"\n" +
		"    [[indented]]\n" +
		"\n" +
		"Last [[delta|]] and [[ ]].\n"

	got, err := e.Extract(context.Background(), []byte(content))
	require.NoError(t, err)

	type link struct{ target, alias, original string }
	var simplified []link
	for _, o := range got {
		simplified = append(simplified, link{o.Target, o.Alias, o.Original})
		assert.Equal(t, o.Original, content[o.Start:o.End])
	}
	assert.Equal(t, []link{
		{"alpha", "alpha", "[[alpha]]"},
		{"dir/beta", "Beta", "[[dir/beta|Beta]]"},
		{"gamma#Intro", "Gamma intro", "[[gamma#Intro|Gamma intro]]"},
		{"delta", "", "[[delta|]]"},
	}, simplified)
}

func TestOccurrencePath(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"note", "note"},
		{"note#Heading", "note"},
		{"dir/note#^block", "dir/note"},
		{"#Heading", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, links.Occurrence{Target: tt.target}.Path(), tt.target)
	}
}

func TestExtractCanceled(t *testing.T) {
	e, err := links.NewExtractor(1)
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Extract(ctx, []byte("[[a]]"))
	assert.ErrorIs(t, err, context.Canceled)
}
