package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notelinks/internal/config"
	"notelinks/internal/events"
	"notelinks/internal/workspace"
)

func writeVault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	t.Setenv("NOTELINKS_STATE_DIR", t.TempDir())
	return root
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(data)
}

var notes = map[string]string{
	"projects/plan.md": "---\ntitle: Master Plan\n---\n",
	"daily/today.md":   "Work on [[plan|Plan]] and [[plan]].\n",
	"readme.md":        "# Readme\n```\n[[plan|Plan]]\n```\n",
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "notelinks version "+Version+"\n", out)
}

func TestSyncAuto(t *testing.T) {
	root := writeVault(t, notes)

	_, err := run(t, "", "--root", root, "--approval", "auto", "sync")
	require.NoError(t, err)

	assert.Equal(t, "Work on [[plan|Master Plan]] and [[plan|Master Plan]].\n", readFile(t, root, "daily/today.md"))
	assert.Equal(t, notes["readme.md"], readFile(t, root, "readme.md"))
}

func TestSyncPaths(t *testing.T) {
	root := writeVault(t, map[string]string{
		"projects/plan.md": notes["projects/plan.md"],
		"a.md":             "[[plan|Plan]]\n",
		"b.md":             "[[plan|Plan]]\n",
	})

	_, err := run(t, "", "--root", root, "--approval", "auto", "sync", "a.md")
	require.NoError(t, err)
	assert.Equal(t, "[[plan|Master Plan]]\n", readFile(t, root, "a.md"))
	assert.Equal(t, "[[plan|Plan]]\n", readFile(t, root, "b.md"))

	_, err = run(t, "", "--root", root, "sync", "image.png")
	assert.Error(t, err)
}

func TestSyncPrompt(t *testing.T) {
	root := writeVault(t, map[string]string{
		"projects/plan.md": notes["projects/plan.md"],
		"a.md":             "[[plan|Plan]]\n",
	})

	out, err := run(t, "n\n", "--root", root, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "[[plan|Plan]] -> [[plan|Master Plan]]")
	assert.Equal(t, "[[plan|Plan]]\n", readFile(t, root, "a.md"))

	_, err = run(t, "y\n", "--root", root, "sync")
	require.NoError(t, err)
	assert.Equal(t, "[[plan|Master Plan]]\n", readFile(t, root, "a.md"))
}

func TestSyncNever(t *testing.T) {
	root := writeVault(t, notes)
	_, err := run(t, "", "--root", root, "--approval", "never", "sync")
	require.NoError(t, err)
	assert.Equal(t, notes["daily/today.md"], readFile(t, root, "daily/today.md"))
}

func TestSyncConfigFile(t *testing.T) {
	root := writeVault(t, map[string]string{
		"projects/plan.md": "---\nname: From Name\n---\n",
		"a.md":             "[[plan|Plan]]\n",
		".notelinks.yaml":  "approval: auto\ntitle_key: name\n",
	})

	_, err := run(t, "", "--root", root, "sync")
	require.NoError(t, err)
	assert.Equal(t, "[[plan|From Name]]\n", readFile(t, root, "a.md"))
}

func TestInvalidApproval(t *testing.T) {
	root := writeVault(t, notes)
	_, err := run(t, "", "--root", root, "--approval", "maybe", "sync")
	assert.Error(t, err)
}

func TestTerminalPrompter(t *testing.T) {
	changes := []events.Change{{Old: "[[a|Old]]", New: "[[a|New]]"}}
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := newTerminalPrompter(strings.NewReader(tt.input), &out)
		got, err := p.Confirm(context.Background(), "a.md", changes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "a.md:")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTerminalPrompter(strings.NewReader("y\n"), &bytes.Buffer{}).Confirm(ctx, "a.md", changes)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrackRemovedNote(t *testing.T) {
	root := writeVault(t, notes)
	cfg := config.Default()
	cfg.Root = root
	cfg.StateDir = t.TempDir()
	v, err := openVault(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer v.Close()
	require.NoError(t, v.openNotes(nil))

	require.NoError(t, os.Remove(filepath.Join(root, "readme.md")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.md"), []byte("# New\n"), 0o644))
	v.track("readme.md", true)
	v.track("new.md", false)

	views, err := v.files.OpenDocuments(context.Background(), workspace.KindMarkdown)
	require.NoError(t, err)
	var paths []string
	for _, view := range views {
		require.NotNil(t, view.File, "open set holds a missing note")
		paths = append(paths, view.File.Path)
	}
	assert.Equal(t, []string{"daily/today.md", "new.md", "projects/plan.md"}, paths)
}
