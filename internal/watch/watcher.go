package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType classifies a changed file by how vtree reads it.
type ChangeType int

const (
	ChangeHTML ChangeType = iota // .html, .htm
	ChangeTree                   // .json tree documents
	ChangeOther
)

// String returns the string representation of the ChangeType.
func (c ChangeType) String() string {
	switch c {
	case ChangeHTML:
		return "html"
	case ChangeTree:
		return "tree"
	default:
		return "other"
	}
}

// Change represents a detected file change.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are files or directories to watch. Directories are watched
	// without recursion.
	Paths []string

	// Ignore patterns to skip (globs or path segments).
	Ignore []string

	// Debounce is the quiet period before a change is reported.
	Debounce time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".vtree",
	"*.tmp",
	"*.swp",
	"*~",
}

// ErrRunning is returned by Start when the watcher is already running.
var ErrRunning = errors.New("watch: already running")

// Watcher monitors files for changes.
type Watcher struct {
	config   WatcherConfig
	files    map[string]bool // Explicitly watched files
	onChange func(Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{config: config}
}

// OnChange sets the callback for file changes. It is called from the
// watcher goroutine, one change at a time.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done or Stop is called. It returns ctx.Err()
// on cancellation and nil after Stop.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	files, err := w.add(fw)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrRunning
	}
	w.running = true
	w.files = files
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	pending := make(map[string]Change)
	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			c, keep := w.classify(ev)
			if !keep {
				continue
			}
			pending[c.Path] = c
			timer.Reset(w.config.Debounce)
		case <-timer.C:
			w.flush(pending)
			clear(pending)
		}
	}
}

// add registers every configured path with fw. Files are watched through
// their parent directory.
func (w *Watcher) add(fw *fsnotify.Watcher) (map[string]bool, error) {
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range w.config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		dir := abs
		if !info.IsDir() {
			files[abs] = true
			dir = filepath.Dir(abs)
		}
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return nil, fmt.Errorf("watch: add %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return files, nil
}

// classify turns an fsnotify event into a Change, or reports false when
// the event is not of interest.
func (w *Watcher) classify(ev fsnotify.Event) (Change, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return Change{}, false
	}
	name := filepath.Clean(ev.Name)
	if w.shouldIgnore(name) {
		return Change{}, false
	}
	w.mu.Lock()
	explicit := len(w.files) > 0
	watched := w.files[name]
	w.mu.Unlock()
	if explicit && !watched && !w.inWatchedDir(name) {
		return Change{}, false
	}
	removed := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	if removed {
		// Rename-over saves leave the file in place.
		if _, err := os.Stat(name); err == nil {
			removed = false
		}
	}
	return Change{Path: name, Type: classifyChange(name), Removed: removed}, true
}

// inWatchedDir reports whether name sits in a directory that was given
// as a path in its own right.
func (w *Watcher) inWatchedDir(name string) bool {
	dir := filepath.Dir(name)
	for _, p := range w.config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if abs == dir {
			if info, err := os.Stat(abs); err == nil && info.IsDir() {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) flush(pending map[string]Change) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil {
		return
	}
	for _, c := range pending {
		callback(c)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}

		hasPathSep := strings.ContainsAny(pattern, `/\`)
		if strings.ContainsAny(pattern, "*?[") {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(normalized, filepath.ToSlash(pattern)) {
				return true
			}
			continue
		}
		if pathHasSegment(normalized, pattern) {
			return true
		}
	}
	return false
}

func pathHasSegment(p, segment string) bool {
	for _, part := range splitPathSegments(p) {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(p, pattern string) bool {
	pathParts := splitPathSegments(p)
	patternParts := splitPathSegments(pattern)
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}
	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func splitPathSegments(p string) []string {
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

// classifyChange determines the type of change based on file extension.
func classifyChange(p string) ChangeType {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html", ".htm":
		return ChangeHTML
	case ".json":
		return ChangeTree
	default:
		return ChangeOther
	}
}
