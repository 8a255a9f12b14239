package server

import (
	"errors"
	"time"

	"notelinks/internal/workspace"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// note returns the vault path of uri if it names a note of the vault.
func (s *Server) note(uri protocol.DocumentUri) (string, bool) {
	if !s.initialized.Load() {
		return "", false
	}
	rel, err := s.documents.URIToPath(uri)
	if err != nil {
		log.Debugf("ignoring %s: %v", uri, err)
		return "", false
	}
	return rel, s.indexer.IsNote(rel)
}

func (s *Server) textDocumentDidOpen(
	ctx *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	rel, ok := s.note(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if _, err := s.documents.Open(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text); err != nil {
		return err
	}
	if _, err := s.indexer.IndexDocument(rel, []byte(params.TextDocument.Text), time.Now()); err != nil {
		return err
	}
	s.update(rel)
	return nil
}

func (s *Server) textDocumentDidChange(
	ctx *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	if _, ok := s.note(params.TextDocument.URI); !ok {
		return nil
	}
	_, err := s.documents.Change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	return err
}

// textDocumentDidSave reindexes the saved note. A changed title refreshes
// the open notes through the index events.
func (s *Server) textDocumentDidSave(
	ctx *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	rel, ok := s.note(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if _, err := s.documents.Save(params.TextDocument.URI, params.Text); err != nil {
		if errors.Is(err, workspace.ErrDocumentNotOpen) {
			_, err = s.indexer.IndexFile(rel)
		}
		return err
	}
	doc, _ := s.documents.Get(rel)
	if _, err := s.indexer.IndexDocument(rel, []byte(doc.Text), time.Now()); err != nil {
		return err
	}
	return nil
}

func (s *Server) textDocumentDidClose(
	ctx *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	if _, ok := s.note(params.TextDocument.URI); !ok {
		return nil
	}
	_, err := s.documents.Release(params.TextDocument.URI)
	return err
}
