// Package links finds the wiki links of Markdown notes and resolves
// their destinations against the title index.
package links

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.links")

var (
	lang      = markdown.GetLanguage()
	codeQuery = []byte(`[(fenced_code_block) (indented_code_block)] @code`)

	wikiLink = regexp.MustCompile(`(!?)\[\[([^\[\]|\n]+)(?:\|([^\[\]\n]*))?\]\]`)
	codeSpan = regexp.MustCompile("`[^`\n]+`")
)

// Occurrence is one wiki link in the raw text of a note.
type Occurrence struct {
	Target   string // link path including any #heading or #^block suffix
	Alias    string // display text, the target if the link has none
	Original string
	Start    int
	End      int
}

// Path returns the target without its heading or block suffix.
func (o Occurrence) Path() string {
	p, _, _ := strings.Cut(o.Target, "#")
	return strings.TrimSpace(p)
}

type span struct{ start, end int }

func within(spans []span, start, end int) bool {
	for _, s := range spans {
		if s.start < end && start < s.end {
			return true
		}
	}
	return false
}

// Extractor finds wiki links outside of code. It keeps a fixed pool of
// tree-sitter parsers.
type Extractor struct {
	pool  chan *sitter.Parser
	query *sitter.Query
}

func NewExtractor(n int) (*Extractor, error) {
	if n < 1 {
		n = 1
	}
	q, err := sitter.NewQuery(codeQuery, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	e := &Extractor{pool: make(chan *sitter.Parser, n), query: q}
	for i := 0; i < n; i++ {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		e.pool <- p
	}
	return e, nil
}

// Extract returns the links of content in document order. Embeds and
// links in code blocks or code spans are skipped.
func (e *Extractor) Extract(ctx context.Context, content []byte) ([]Occurrence, error) {
	code, err := e.codeBlocks(ctx, content)
	if err != nil {
		return nil, err
	}
	for _, loc := range codeSpan.FindAllIndex(content, -1) {
		code = append(code, span{loc[0], loc[1]})
	}

	var links []Occurrence
	for _, m := range wikiLink.FindAllSubmatchIndex(content, -1) {
		if m[3] > m[2] {
			continue // embed
		}
		if within(code, m[0], m[1]) {
			continue
		}
		target := strings.TrimSpace(string(content[m[4]:m[5]]))
		if target == "" {
			continue
		}
		alias := target
		if m[6] >= 0 {
			alias = string(content[m[6]:m[7]])
		}
		links = append(links, Occurrence{
			Target:   target,
			Alias:    alias,
			Original: string(content[m[0]:m[1]]),
			Start:    m[0],
			End:      m[1],
		})
	}
	return links, nil
}

func (e *Extractor) codeBlocks(ctx context.Context, content []byte) ([]span, error) {
	var p *sitter.Parser
	select {
	case p = <-e.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { e.pool <- p }()

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(e.query, tree.RootNode())

	var spans []span
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			spans = append(spans, span{int(c.Node.StartByte()), int(c.Node.EndByte())})
		}
	}
	return spans, nil
}

// Close releases the parsers. The Extractor must not be used afterwards.
func (e *Extractor) Close() {
	close(e.pool)
	for p := range e.pool {
		p.Close()
	}
	e.query.Close()
}
