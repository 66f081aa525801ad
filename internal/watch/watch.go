package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/conative/internal/oracle"
)

// DefaultDebounce is how long the watcher waits after the last change
// before triggering a rescan.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce      time.Duration
	IncludeHidden bool
	Logger        *slog.Logger
}

// Watcher watches a directory tree and triggers a callback after changes
// settle. fsnotify is not recursive, so every directory is added and new
// directories are picked up as they appear.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	hidden   bool
	log      *slog.Logger
}

// New creates a watcher for every directory under root.
func New(root string, opts Options) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  watcher,
		root:     root,
		debounce: opts.Debounce,
		hidden:   opts.IncludeHidden,
		log:      opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := w.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

// Watched returns the directories currently being watched.
func (w *Watcher) Watched() []string {
	return w.watcher.WatchList()
}

// Run calls onChange once per burst of filesystem changes. Callbacks run
// on the calling goroutine, one at a time, and never after ctx is
// cancelled. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			if ctx.Err() != nil {
				return nil
			}
			onChange()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn("watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.log.Debug("change detected", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
		return nil
	})
}

// ignored reports whether path lies under a hidden directory (unless
// hidden files are included) or one of oracle.SkipDirs.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "." || part == ".." {
			continue
		}
		if oracle.SkipDirs[part] || (!w.hidden && strings.HasPrefix(part, ".")) {
			return true
		}
	}
	return false
}
