package links

import (
	"context"

	"notelinks/internal/events"
	"notelinks/internal/workspace"
)

// Reader returns the current content of a note.
type Reader interface {
	Content(ctx context.Context, file *workspace.File) (string, error)
}

// Locator maps a link path written in source to the vault path of a note.
type Locator interface {
	Lookup(linkpath, source string) (string, bool)
}

// Service produces the link records of a note.
type Service struct {
	extractor *Extractor
	reader    Reader
	locator   Locator
}

func NewService(extractor *Extractor, reader Reader, locator Locator) *Service {
	return &Service{extractor: extractor, reader: reader, locator: locator}
}

// Links returns the wiki links of the note at path whose destination is
// an indexed note. Dest is the vault path of that note.
func (s *Service) Links(ctx context.Context, path string) ([]events.Link, error) {
	content, err := s.reader.Content(ctx, &workspace.File{Path: path})
	if err != nil {
		return nil, err
	}
	occurrences, err := s.extractor.Extract(ctx, []byte(content))
	if err != nil {
		return nil, err
	}

	links := make([]events.Link, 0, len(occurrences))
	for _, o := range occurrences {
		dest, ok := s.locator.Lookup(o.Path(), path)
		if !ok {
			log.Debugf("%s: no note for %s", path, o.Target)
			continue
		}
		links = append(links, events.Link{
			Link:     o.Target,
			Alias:    o.Alias,
			Dest:     dest,
			Original: o.Original,
			Start:    o.Start,
			End:      o.End,
		})
	}
	return links, nil
}
