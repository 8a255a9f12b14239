package main

import (
	"context"
	"fmt"
	"path/filepath"

	"notelinks/internal/config"
	"notelinks/internal/events"
	"notelinks/internal/index"
	"notelinks/internal/links"
	"notelinks/internal/policy"
	"notelinks/internal/reconcile"
	"notelinks/internal/workspace"
)

// vault wires the reconciliation of files on disk.
type vault struct {
	store     *index.Store
	indexer   *index.Indexer
	files     *workspace.Filesystem
	extractor *links.Extractor
	registry  *reconcile.Registry
}

// openVault opens the title index of cfg.Root and brings it up to date.
func openVault(ctx context.Context, cfg config.Config, prompter policy.Prompter) (*vault, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Root = root

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := index.Open(dbPath, cfg.Extensions...)
	if err != nil {
		return nil, err
	}
	indexer := index.NewIndexer(store, root, cfg.Extensions, index.TitleOptions{
		Key:             cfg.TitleKey,
		HeadingFallback: cfg.HeadingFallback,
	})
	if err := indexer.Scan(ctx); err != nil {
		store.Close()
		return nil, err
	}

	extractor, err := links.NewExtractor(4)
	if err != nil {
		store.Close()
		return nil, err
	}
	files := workspace.NewFilesystem(root)

	bus := events.NewBus()
	policy.Install(bus, cfg, prompter)
	reconciler := reconcile.New(files, links.NewService(extractor, files, store), store, bus)
	if cfg.Enabled {
		reconciler.Enable()
	}

	return &vault{
		store:     store,
		indexer:   indexer,
		files:     files,
		extractor: extractor,
		registry:  reconcile.NewRegistry(reconciler),
	}, nil
}

// openNotes marks paths as open documents, or every indexed note when
// paths is empty. Paths are relative to the vault root.
func (v *vault) openNotes(paths []string) error {
	if len(paths) == 0 {
		all, err := v.store.Paths()
		if err != nil {
			return err
		}
		paths = all
	}
	for _, p := range paths {
		rel := filepath.ToSlash(filepath.Clean(p))
		if !v.indexer.IsNote(rel) {
			return fmt.Errorf("%w: %s", index.ErrNotNote, p)
		}
		v.files.Open(rel)
	}
	return nil
}

// track keeps the open documents in line with a note that was added,
// retitled or removed on disk.
func (v *vault) track(rel string, removed bool) {
	if removed {
		v.files.Close(rel)
		return
	}
	v.files.Open(rel)
}

func (v *vault) Close() error {
	v.extractor.Close()
	return v.store.Close()
}
