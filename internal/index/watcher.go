package index

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"notelinks/internal/scanner"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collects rapid saves of an editor into one re-index.
const DefaultDebounce = 200 * time.Millisecond

// Watcher re-indexes notes when they change on disk.
type Watcher struct {
	ix       *Indexer
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func NewWatcher(ix *Indexer, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{ix: ix, watcher: w, debounce: debounce}, nil
}

// Run watches the vault until ctx is canceled. onChange is called with
// the vault path of every note that was added, retitled or removed;
// removed is set for notes that no longer exist.
// Run closes the underlying watcher before it returns.
func (w *Watcher) Run(ctx context.Context, onChange func(rel string, removed bool)) error {
	defer w.watcher.Close()

	if err := w.addTree(w.ix.Root()); err != nil {
		return err
	}

	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !scanner.IgnoreDir(info.Name()) {
						if err := w.addTree(event.Name); err != nil {
							log.Warningf("watch %s: %v", event.Name, err)
						}
					}
					continue
				}
			}
			rel, err := w.ix.Rel(event.Name)
			if err != nil || !w.ix.IsNote(rel) {
				continue
			}
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watcher: %v", err)

		case <-fire:
			fire = nil
			for rel := range pending {
				if changed, removed := w.apply(rel); changed {
					onChange(rel, removed)
				}
			}
			pending = map[string]struct{}{}
		}
	}
}

// apply brings the index entry of rel in line with the disk and reports
// whether the title index changed and whether the note is gone.
func (w *Watcher) apply(rel string) (changed, removed bool) {
	changed, err := w.ix.IndexFile(rel)
	if errors.Is(err, fs.ErrNotExist) {
		if err := w.ix.Remove(rel); err != nil {
			return false, true
		}
		log.Infof("removed %s", rel)
		return true, true
	}
	if err != nil {
		log.Errorf("index %s: %v", rel, err)
		return false, false
	}
	if changed {
		log.Infof("reindexed %s", rel)
	}
	return changed, false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && scanner.IgnoreDir(d.Name()) {
			return fs.SkipDir
		}
		return w.watcher.Add(path)
	})
}
