// Package watch reports transfer files that appear or change in a directory.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/ginjaninja78/interlis-enums/pkg/utils"
)

const (
	// eventChannelBuffer is the size of the event channel.
	eventChannelBuffer = 256

	// DefaultDebounce is used when Config.Debounce is not positive.
	DefaultDebounce = 500 * time.Millisecond
)

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch, recursively.
	Dir string

	// Patterns are doublestar globs relative to Dir. A file is reported only
	// when it matches one of them. Empty means every file.
	Patterns []string

	// Debounce is how long changes are collected before they are reported.
	Debounce time.Duration
}

// Watcher watches a directory tree and emits the paths of changed files
// matching its patterns. Removed files are not reported.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	// content hashes of reported files, to skip writes without changes
	hashMu sync.Mutex
	hashes map[string]string

	events chan string

	droppedEvents atomic.Int64
}

// New creates a Watcher. Start must be called to begin watching.
func New(config Config, logger *slog.Logger) (*Watcher, error) {
	for _, p := range config.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New("invalid watch pattern: " + p)
		}
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]struct{}),
		hashes:  make(map[string]string),
		events:  make(chan string, eventChannelBuffer),
	}, nil
}

// Events returns the channel of changed file paths. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start adds watches for Dir and its subdirectories and begins processing
// events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.config.Dir, 0755); err != nil {
		return err
	}
	if err := w.addWatchesRecursive(w.config.Dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Watcher started",
		"dir", w.config.Dir,
		"debounce", w.config.Debounce,
		"patterns", w.config.Patterns)

	return nil
}

// Stop stops the watcher. The events channel is closed by processEvents.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Seed records the current content of path so that an unchanged file is
// not reported. Used for files already converted before watching started.
func (w *Watcher) Seed(path string) error {
	hash, err := fileHash(path)
	if err != nil {
		return err
	}
	w.hashMu.Lock()
	w.hashes[path] = hash
	w.hashMu.Unlock()
	return nil
}

// DroppedEvents returns the number of events dropped on a full channel.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(path, root) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !isHidden(path, w.config.Dir) {
				w.watchNewDirectory(path)
			}
			return
		}
	}

	if !w.matches(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Change detected", "path", path, "op", event.Op.String())
}

// watchNewDirectory watches a new directory and queues the files it
// already holds, since their create events were missed.
func (w *Watcher) watchNewDirectory(path string) {
	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
		return
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.matches(p) {
			return nil
		}
		w.pendingMu.Lock()
		w.pending[p] = struct{}{}
		w.pendingMu.Unlock()
		return nil
	})
}

func (w *Watcher) matches(path string) bool {
	if len(w.config.Patterns) == 0 {
		return true
	}
	return utils.MatchesAny(w.config.Dir, path, w.config.Patterns)
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(paths)

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}

		hash, err := fileHash(path)
		if err != nil {
			// Removed again before the debounce elapsed.
			w.logger.Debug("Skipping unreadable file", "path", path, "error", err)
			continue
		}

		w.hashMu.Lock()
		unchanged := w.hashes[path] == hash
		w.hashes[path] = hash
		w.hashMu.Unlock()
		if unchanged {
			continue
		}

		w.send(path)
	}
}

func (w *Watcher) send(path string) {
	select {
	case w.events <- path:
		w.logger.Debug("Sent watch event", "path", path)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", path,
			"total_dropped", dropped)
	}
}

func fileHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// isHidden reports whether path is a dot directory below root.
func isHidden(path, root string) bool {
	if filepath.Clean(path) == filepath.Clean(root) {
		return false
	}
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "."
}
