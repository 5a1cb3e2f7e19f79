// Package watch re-runs analysis when workbooks change on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/formulint/pkg/sheet"
)

// Watcher monitors workbooks for changes and triggers analysis.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	// root is the directory handed to fsnotify. When a single file is
	// watched, root is its directory and target is the file.
	root     string
	target   string
	out      io.Writer
	logger   *slog.Logger
	callback func(path string)
	mu       sync.Mutex
	pending  map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithOutput sets where change banners are printed.
func WithOutput(out io.Writer) Option {
	return func(w *Watcher) {
		w.out = out
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for a workbook file or a directory of
// workbooks.
func NewWatcher(path string, debounce time.Duration, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debounce:  debounce,
		root:      filepath.Clean(path),
		out:       os.Stdout,
		logger:    slog.Default(),
		pending:   make(map[string]time.Time),
	}
	// Editors and spreadsheet apps save by renaming a temp file over the
	// original, which drops a watch on the file itself.
	if !info.IsDir() {
		w.root = filepath.Dir(w.root)
		w.target = filepath.Clean(path)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetCallback sets the function to call when a workbook changes.
func (w *Watcher) SetCallback(cb func(path string)) {
	w.callback = cb
}

func skipDir(root, path string) bool {
	return path != root && strings.HasPrefix(filepath.Base(path), ".")
}

// Start begins watching for changes. It blocks until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.target != "" {
		if err := w.fsWatcher.Add(w.root); err != nil {
			return err
		}
	} else {
		err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip errors
			}
			if !info.IsDir() {
				return nil
			}
			if skipDir(w.root, path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		})
		if err != nil {
			return err
		}
	}

	watching := w.root
	if w.target != "" {
		watching = w.target
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w.out, "Watching for changes in %s...\n", watching)
	cyan.Fprintln(w.out, "Press Ctrl+C to stop")
	fmt.Fprintln(w.out)

	// Start debounce processor
	go w.processDebounced(ctx)

	// Process events
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handleEvent processes a filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about writes and creates
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := filepath.Clean(event.Name)

	if w.target == "" && event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !skipDir(w.root, path) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("cannot watch directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if w.target != "" && path != w.target {
		return
	}
	// Office lock files share the workbook extension.
	if strings.HasPrefix(filepath.Base(path), "~$") || !sheet.Supported(path) {
		return
	}

	// Add to pending with current time
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced processes pending changes after debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending processes files that have been stable for the debounce period.
func (w *Watcher) processPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var ready []string

	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
		}
	}

	for _, path := range ready {
		delete(w.pending, path)
		if w.callback != nil {
			go w.runCallback(path)
		}
	}
}

// runCallback executes the callback for a changed workbook.
func (w *Watcher) runCallback(path string) {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		relPath = path
	}

	color.New(color.FgYellow).Fprintf(w.out, "\nWorkbook changed: %s\n", relPath)
	fmt.Fprintln(w.out, strings.Repeat("-", 40))

	w.callback(path)

	fmt.Fprintln(w.out)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the list of watched directories.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}
