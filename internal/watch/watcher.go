package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// DefaultDebounce is the quiet period before a changed file is re-linted.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with the vault-relative path of a changed file.
type Handler func(ctx context.Context, rel string)

// Config configures a Watcher.
type Config struct {
	Root     string
	Ignore   []string // vault-relative globs
	Skip     []string // base names never reported, e.g. generated notes
	Debounce time.Duration
	Logger   *slog.Logger
	OnChange Handler
}

// Watcher reports changed vault files through a debounced Scheduler.
type Watcher struct {
	root     string
	ignore   []string
	skip     []string
	onChange Handler
	logger   *slog.Logger

	fsw   *fsnotify.Watcher
	sched *Scheduler
}

// New creates a watcher and registers every non-hidden directory under root.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		ignore:   cfg.Ignore,
		skip:     cfg.Skip,
		onChange: cfg.OnChange,
		logger:   logger,
		fsw:      fsw,
		sched:    NewScheduler(debounce),
	}
	if err := w.addDir(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// addDir recursively adds a directory to the watcher.
func (w *Watcher) addDir(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// Run handles events until ctx is cancelled, then waits for running
// handlers and releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	w.logger.Info("watching vault", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) close() {
	w.sched.Close()
	_ = w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, ok := w.relevant(event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.sched.Cancel(rel)
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.addDir(event.Name); err != nil {
				w.logger.Warn("failed to watch directory", "dir", rel, "error", err)
			}
			return
		}
	}

	w.logger.Debug("file changed", "file", rel, "op", event.Op.String())
	w.sched.Schedule(rel, func(ctx context.Context) {
		w.onChange(ctx, rel)
	})
}

// relevant maps an absolute event path to a vault-relative one and filters
// hidden, skipped and ignored paths.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = lint.NormalizePath(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	if slices.Contains(w.skip, path.Base(rel)) {
		return "", false
	}
	if lint.MatchAny(w.ignore, rel) {
		return "", false
	}
	return rel, true
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
