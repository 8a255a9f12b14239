// scanner is used to scan a vault for notes.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("notelinks.scanner")

// Workers is the number of files read concurrently.
const Workers = 4

// IgnoreDir reports whether a directory is skipped entirely. Hidden
// directories such as .git or .obsidian are never scanned.
func IgnoreDir(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

// Scan walks the entire subtree under root. Any directory whose name
// begins with "." is skipped. For each remaining file skip() is applied,
// and if it returns false the file is read and callback(relPath,
// contents, info) invoked. relPath is relative to root and uses forward
// slashes. Callbacks run on up to Workers goroutines; Scan returns once
// all of them have completed or the first callback error occurred.
func Scan(
	ctx context.Context,
	root string,
	skip func(relPath string, info fs.FileInfo) bool,
	callback func(relPath string, document []byte, info fs.FileInfo) error,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers)

	log.Debugf("starting WalkDir at %q", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("walk error: %v", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != root && IgnoreDir(d.Name()) {
				log.Debugf("skipping %q", path)
				return fs.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skip(rel, info) {
			return nil
		}

		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("read error: %s: %v", path, err)
				return nil
			}
			return callback(rel, data, info)
		})
		return nil
	})

	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}
