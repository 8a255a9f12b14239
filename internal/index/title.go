package index

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TitleOptions controls where the title of a note is taken from.
type TitleOptions struct {
	// Key is the front matter key holding the title. Dots address
	// nested mappings, e.g. "meta.title".
	Key string

	// HeadingFallback uses the first level one heading when the front
	// matter has no title.
	HeadingFallback bool
}

var DefaultTitleOptions = TitleOptions{Key: "title", HeadingFallback: true}

// Title returns the display title of a note, or "" if it has none.
func Title(content []byte, opts TitleOptions) string {
	front, body := splitFrontMatter(content)
	if front != nil {
		if t := frontMatterValue(front, opts.Key); t != "" {
			return t
		}
	}
	if opts.HeadingFallback {
		return firstHeading(body)
	}
	return ""
}

// splitFrontMatter separates a leading YAML block delimited by "---"
// lines from the body. front is nil when there is none.
func splitFrontMatter(content []byte) (front, body []byte) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	first, rest, ok := bytes.Cut(content, []byte("\n"))
	if !ok || string(bytes.TrimRight(first, "\r")) != "---" {
		return nil, content
	}

	offset := 0
	for len(rest[offset:]) > 0 {
		line, _, found := bytes.Cut(rest[offset:], []byte("\n"))
		trimmed := string(bytes.TrimRight(line, "\r"))
		if trimmed == "---" || trimmed == "..." {
			end := offset + len(line)
			if found {
				end++
			}
			return rest[:offset], rest[end:]
		}
		if !found {
			break
		}
		offset += len(line) + 1
	}
	return nil, content
}

func frontMatterValue(front []byte, key string) string {
	var meta map[string]any
	if err := yaml.Unmarshal(front, &meta); err != nil {
		log.Debugf("invalid front matter: %v", err)
		return ""
	}

	var value any = meta
	for _, part := range strings.Split(key, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return ""
		}
		value = m[part]
	}

	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func firstHeading(body []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(body))
	fenced := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
			continue
		}
		if fenced || len(line)-len(trimmed) > 3 {
			continue
		}
		if trimmed == "#" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			heading := strings.TrimSpace(trimmed[2:])
			heading = strings.TrimSpace(strings.TrimRight(heading, "#"))
			if heading != "" {
				return heading
			}
		}
	}
	return ""
}
