// Package watch triggers grouping runs when a watched input tree settles.
// Filesystem events re-arm a quiet-period timer; only once the tree has
// been still for the full quiet period does a run start, so a camera
// import that lands hundreds of files produces one run, not hundreds.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"

	"shootsort/internal/config"
	"shootsort/internal/discover"
	"shootsort/internal/logging"
)

// RunFunc starts one grouping run. It is invoked on the watch goroutine
// after the quiet period elapses.
type RunFunc func(ctx context.Context) error

// Options configures a watcher.
type Options struct {
	// Root is the input tree to watch.
	Root string
	// Recurse registers existing subdirectories and any created later.
	Recurse bool
	// Quiet overrides the configured quiet period when positive.
	Quiet time.Duration
	// Run starts a grouping run once the tree settles.
	Run RunFunc
}

// Watcher debounces filesystem activity into grouping runs.
type Watcher struct {
	root    string
	recurse bool
	quiet   time.Duration
	prefix  string
	run     RunFunc
	logger  *slog.Logger
}

// New validates opts and returns a Watcher ready to Watch.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("watch root is required")
	}
	if opts.Run == nil {
		return nil, errors.New("watch run callback is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	quiet := opts.Quiet
	prefix := discover.DefaultSkipPrefix
	if cfg != nil {
		if quiet <= 0 {
			quiet = time.Duration(cfg.Watch.QuietSeconds) * time.Second
		}
		if strings.TrimSpace(cfg.Grouping.GroupDirName) != "" {
			prefix = cfg.Grouping.GroupDirName
		}
	}
	if quiet <= 0 {
		quiet = time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Watcher{
		root:    root,
		recurse: opts.Recurse,
		quiet:   quiet,
		prefix:  prefix,
		run:     opts.Run,
		logger:  logging.NewComponentLogger(logger, "watch"),
	}, nil
}

// Watch blocks, launching a run each time the tree settles, until ctx ends.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRoots(fsw); err != nil {
		return err
	}
	w.logger.Info("watching for changes",
		logging.String("input", w.root),
		logging.Duration("quiet", w.quiet))

	return w.loop(ctx, fsw.Events, fsw.Errors, fsw.Add)
}

func (w *Watcher) addRoots(fsw *fsnotify.Watcher) error {
	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	if !w.recurse {
		return nil
	}
	return godirwalk.Walk(w.root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() || path == w.root {
				return nil
			}
			if strings.HasPrefix(de.Name(), w.prefix) {
				return godirwalk.SkipThis
			}
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		},
	})
}

// loop drives the debounce. It is separated from Watch so tests can feed
// synthetic event streams.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, addDir func(string) error) error {
	timer := time.NewTimer(w.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if w.recurse && event.Has(fsnotify.Create) && addDir != nil {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDir(event.Name); err != nil {
						w.logger.Warn("watch new directory",
							logging.String("dir", event.Name),
							logging.Error(err))
					}
				}
			}
			w.logger.Debug("change detected",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()))
			timer.Reset(w.quiet)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-timer.C:
			w.fire(ctx)
		}
	}
}

// relevant filters out events that must not trigger a run: changes inside
// prior output folders (including this tool's own moves), hidden files
// such as the run lock, and non-image files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	if w.underGroupDir(event.Name) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if discover.IsImagePath(event.Name) {
		return true
	}
	// Directory creation may precede an import into it.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func (w *Watcher) underGroupDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, w.prefix) {
			return true
		}
	}
	return false
}

func (w *Watcher) fire(ctx context.Context) {
	w.logger.Info("input settled, starting run", logging.String("input", w.root))
	if err := w.run(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		w.logger.Warn("run failed", logging.Error(err))
	}
}
