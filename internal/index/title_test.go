package index_test

import (
	"testing"

	"notelinks/internal/index"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    index.TitleOptions
		want    string
	}{
		{
			name:    "front matter",
			content: "---\ntitle: My Note\ntags: [a]\n---\n# Heading\n",
			opts:    index.DefaultTitleOptions,
			want:    "My Note",
		},
		{
			name:    "crlf front matter",
			content: "---\r\ntitle: Windows\r\n---\r\nbody",
			opts:    index.DefaultTitleOptions,
			want:    "Windows",
		},
		{
			name:    "nested key",
			content: "---\nmeta:\n  title: Nested\n---\n",
			opts:    index.TitleOptions{Key: "meta.title"},
			want:    "Nested",
		},
		{
			name:    "numeric title",
			content: "---\ntitle: 2024\n---\n",
			opts:    index.DefaultTitleOptions,
			want:    "2024",
		},
		{
			name:    "list title is ignored",
			content: "---\ntitle: [a, b]\n---\n",
			opts:    index.TitleOptions{Key: "title"},
			want:    "",
		},
		{
			name:    "heading fallback",
			content: "---\ntags: [a]\n---\n\n## Sub\n# Top Heading #\n",
			opts:    index.DefaultTitleOptions,
			want:    "Top Heading",
		},
		{
			name:    "heading in code block is ignored",
			content: "```\n# not a title\n```\n# Real\n",
			opts:    index.DefaultTitleOptions,
			want:    "Real",
		},
		{
			name:    "heading fallback disabled",
			content: "# Heading\n",
			opts:    index.TitleOptions{Key: "title"},
			want:    "",
		},
		{
			name:    "unterminated front matter",
			content: "---\ntitle: Broken\n",
			opts:    index.TitleOptions{Key: "title"},
			want:    "",
		},
		{
			name:    "invalid yaml",
			content: "---\ntitle: [unclosed\n---\n# Fallback\n",
			opts:    index.DefaultTitleOptions,
			want:    "Fallback",
		},
		{
			name:    "empty document",
			content: "",
			opts:    index.DefaultTitleOptions,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := index.Title([]byte(tt.content), tt.opts); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
