package server

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"notelinks/internal/config"
	"notelinks/internal/events"
	"notelinks/internal/index"
	"notelinks/internal/links"
	"notelinks/internal/manager"
	"notelinks/internal/policy"
	"notelinks/internal/reconcile"
	"notelinks/internal/scheduler"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) initialize(
	ctx *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, err
	}

	// Root
	root := cfg.Root
	if (root == "" || root == ".") && params.RootURI != nil {
		rootURI, err := url.Parse(*params.RootURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse root uri: %w", err)
		}
		root = filepath.FromSlash(rootURI.Path)
	}
	if cfg.Root, err = filepath.Abs(root); err != nil {
		return nil, err
	}
	s.config = cfg
	log.Infof("config: %+v", cfg)

	// Index
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	s.store, err = index.Open(dbPath, cfg.Extensions...)
	if err != nil {
		return nil, err
	}
	s.indexer = index.NewIndexer(s.store, cfg.Root, cfg.Extensions, index.TitleOptions{
		Key:             cfg.TitleKey,
		HeadingFallback: cfg.HeadingFallback,
	})

	// Documents and links
	closing, closeClient := context.WithCancel(context.Background())
	s.client = &client{call: ctx.Call, closing: closing}
	s.closeClient = closeClient
	s.documents = manager.NewDocumentManager(cfg.Root, s.client)
	if s.extractor, err = links.NewExtractor(4); err != nil {
		s.store.Close()
		return nil, err
	}
	linkService := links.NewService(s.extractor, s.documents, s.store)

	// Reconciliation
	s.bus = events.NewBus()
	policy.Install(s.bus, cfg, s.client)
	reconciler := reconcile.New(s.documents, linkService, s.store, s.bus)
	if cfg.Enabled {
		reconciler.Enable()
	}
	s.registry = reconcile.NewRegistry(reconciler)

	// Background work
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.scheduler = scheduler.NewScheduler(256)
	s.scheduler.RunScheduler(s.ctx)
	s.scheduler.SchedulePeriodicTask(cfg.RescanInterval(), scheduler.Task{
		Name:    "rescan",
		Execute: s.indexer.Scan,
	})

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		s.watchIndex(s.ctx)
	}()
	if watcher, err := index.NewWatcher(s.indexer, index.DefaultDebounce); err != nil {
		log.Warningf("not watching %s: %v", cfg.Root, err)
	} else {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			if err := watcher.Run(s.ctx, func(string, bool) {}); err != nil {
				log.Errorf("watcher: %v", err)
			}
		}()
	}
	s.initialized.Store(true)

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandEnable, CommandDisable, CommandUpdate},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initializedHandler(
	ctx *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

// shutdown stops background work. Queued updates still run, but
// requests to the editor fail from now on.
func (s *Server) shutdown(ctx *glsp.Context) error {
	if !s.initialized.CompareAndSwap(true, false) {
		return nil
	}
	s.closeClient()
	s.scheduler.StopScheduler()
	s.cancel()
	s.workers.Wait()
	s.extractor.Close()
	return s.store.Close()
}
