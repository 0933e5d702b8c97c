// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes to the plug-in archives of a directory.
//
// A Watcher observes one directory (not its subdirectories) and calls
// OnChange once the directory has been quiet for the debounce period, with
// every archive name that changed since the previous call. Callbacks run on
// the Run goroutine, so a slow rescan delays the next one instead of
// overlapping it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")

	// DefaultPatterns selects plug-in archives.
	DefaultPatterns = []string{"*.marc", "*.MARC"}

	// defaultIgnores drops partial downloads, editor backups and hidden
	// files that copy tools create next to the real archive.
	defaultIgnores = []string{
		".*",
		"*~",
		"*.tmp",
		"*.part",
		"*.crdownload",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory to watch. It must exist.
		Dir string

		// Patterns are doublestar globs matched against the file name.
		// Empty means DefaultPatterns.
		Patterns []string

		// Ignore adds globs to the built-in ignore list.
		Ignore []string

		// Debounce is the quiet period after the last event.
		Debounce time.Duration

		// OnChange receives the sorted names of the files that changed. An
		// error is logged and does not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error

		Logger *log.Logger
	}

	// Watcher monitors a directory. Run must be called exactly once.
	Watcher struct {
		dir      string
		patterns []string
		ignores  []string
		debounce time.Duration
		onChange func(ctx context.Context, changed []string) error
		logger   *log.Logger

		fsw     *fsnotify.Watcher
		started atomic.Bool
	}
)

// New validates cfg and starts watching cfg.Dir. The watcher holds an OS
// handle until Run returns or Close is called.
func New(cfg Config) (*Watcher, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}
	if fi, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		patterns: slices.Clone(patterns),
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: "watch"})
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}
	w.fsw = fsw
	return w, nil
}

// Dir returns the absolute directory being watched.
func (w *Watcher) Dir() string { return w.dir }

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is done. It returns nil on cancellation
// and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "error", err)
		}
	}()

	var (
		pending = make(map[string]struct{})
		timer   = time.NewTimer(w.debounce)
		fire    <-chan time.Time
	)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			name := filepath.Base(evt.Name)
			if !w.relevant(name) {
				continue
			}
			w.logger.Debug("archive changed", "file", name, "op", evt.Op.String())
			pending[name] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if w.onChange == nil || ctx.Err() != nil {
				continue
			}
			if err := w.onChange(ctx, changed); err != nil {
				w.logger.Error("change handler failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// relevant reports whether a file name matches a pattern and no ignore.
func (w *Watcher) relevant(name string) bool {
	if matchAny(w.ignores, name) {
		return false
	}
	return matchAny(w.patterns, name)
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, kind string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", kind, pat)
		}
	}
	return nil
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
