// Package server exposes link title reconciliation as a language server.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"notelinks/internal/config"
	"notelinks/internal/events"
	"notelinks/internal/index"
	"notelinks/internal/links"
	"notelinks/internal/manager"
	"notelinks/internal/reconcile"
	"notelinks/internal/scheduler"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

var log = commonlog.GetLogger("notelinks.server")

var (
	ErrNotInitialized = errors.New("server: not initialized")
	ErrUnknownCommand = errors.New("server: unknown command")
	ErrClientClosing  = errors.New("server: client is shutting down")
)

const (
	CommandEnable  = "notelinks.enable"
	CommandDisable = "notelinks.disable"
	CommandUpdate  = "notelinks.update"
)

type Server struct {
	name    string
	version string
	handler *protocol.Handler

	config    config.Config
	client    *client
	bus       *events.Bus
	store     *index.Store
	indexer   *index.Indexer
	extractor *links.Extractor
	documents *manager.DocumentManager
	registry  *reconcile.Registry
	scheduler *scheduler.Scheduler

	ctx            context.Context
	cancel         context.CancelFunc
	closeClient    context.CancelFunc
	workers        sync.WaitGroup
	refreshPending atomic.Bool
	initialized    atomic.Bool
}

func New(name, version string) *Server {
	s := &Server{name: name, version: version}
	s.handler = &protocol.Handler{
		Initialize:              s.initialize,
		Initialized:             s.initializedHandler,
		TextDocumentDidOpen:     s.textDocumentDidOpen,
		TextDocumentDidChange:   s.textDocumentDidChange,
		TextDocumentDidSave:     s.textDocumentDidSave,
		TextDocumentDidClose:    s.textDocumentDidClose,
		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
		Shutdown:                s.shutdown,
	}
	return s
}

// NewServer returns the glsp server speaking for a new Server.
func NewServer(name, version string, debug bool) *server.Server {
	s := New(name, version)
	return server.NewServer(s.handler, name, debug)
}

// schedule queues fn on the scheduler without blocking the handler.
func (s *Server) schedule(name string, fn func(ctx context.Context) error) {
	ok := s.scheduler.TrySchedule(scheduler.Task{Name: name, Execute: fn})
	if !ok {
		log.Warningf("dropped task %s", name)
	}
}

// update runs every enabled manager on path, or on all open notes when
// path is empty.
func (s *Server) update(path string) {
	s.schedule("update "+path, func(ctx context.Context) error {
		return s.registry.UpdateAll(ctx, path)
	})
}

// refresh queues one update of all open notes unless one is already
// waiting.
func (s *Server) refresh() {
	if !s.refreshPending.CompareAndSwap(false, true) {
		return
	}
	s.schedule("refresh", func(ctx context.Context) error {
		s.refreshPending.Store(false)
		return s.registry.UpdateAll(ctx, "")
	})
}

// watchIndex refreshes open notes whenever a note is added or retitled.
func (s *Server) watchIndex(ctx context.Context) {
	for ev := range s.store.Subscribe(ctx) {
		switch ev.Type {
		case index.CreateNote, index.UpdateNote:
			log.Debugf("title of %s is %q", ev.Path, ev.Title)
			s.refresh()
		}
	}
}
