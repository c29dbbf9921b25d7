package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a file for changes, re-parses it, and calls a callback
// when the content is modified. It uses polling (not fsnotify) to keep
// dependencies minimal; the SHA-256 content gate means the callback fires
// exactly once per content change even when the file is rewritten in place.
//
// The same watcher serves both the server config file and the question flow
// file; the parse function decides what T is.
type Watcher[T any] struct {
	path     string
	interval time.Duration
	parse    func(data []byte) (T, error)
	onChange func(old, new T)

	mu       sync.Mutex
	current  T
	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*watcherSettings)

type watcherSettings struct {
	interval time.Duration
}

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(s *watcherSettings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewWatcher creates a file watcher that parses the file with parse. It loads
// the initial value immediately and starts polling in a background goroutine.
// A file revision that fails to parse is logged and skipped; the previous
// value stays current.
func NewWatcher[T any](path string, parse func(data []byte) (T, error), onChange func(old, new T), opts ...WatcherOption) (*Watcher[T], error) {
	settings := watcherSettings{interval: 5 * time.Second}
	for _, opt := range opts {
		opt(&settings)
	}
	w := &Watcher[T]{
		path:     path,
		interval: settings.interval,
		parse:    parse,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	// Load initial value.
	val, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = val
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// NewConfigWatcher watches the server configuration file at path.
func NewConfigWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher[*Config], error) {
	return NewWatcher(path, parseConfig, onChange, opts...)
}

func parseConfig(data []byte) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// Current returns the most recently loaded valid value.
func (w *Watcher[T]) Current() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher.
func (w *Watcher[T]) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the file periodically.
func (w *Watcher[T]) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reads the file and, if it has changed and parses cleanly, calls
// onChange and updates the current value.
func (w *Watcher[T]) check() {
	// Quick mtime check first to avoid hashing unchanged files.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	// Mtime changed — read and hash.
	val, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("watcher: failed to load file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()

	if hash == w.lastHash {
		// File was touched but content is identical.
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}

	old := w.current
	w.current = val
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	slog.Info("watcher: file reloaded", "path", w.path)

	// Invoke the callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(old, val)
	}
}

// loadAndHash reads the watched file, parses it, and returns the value
// alongside the file's SHA-256 hash and modification time. If parsing fails,
// it returns an error (the caller should keep the old value).
func (w *Watcher[T]) loadAndHash() (T, [sha256.Size]byte, time.Time, error) {
	var zero T
	var zeroHash [sha256.Size]byte

	f, err := os.Open(w.path)
	if err != nil {
		return zero, zeroHash, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return zero, zeroHash, time.Time{}, err
	}

	// Read the full file into memory for hashing + parsing.
	data, err := io.ReadAll(f)
	if err != nil {
		return zero, zeroHash, time.Time{}, err
	}

	hash := sha256.Sum256(data)

	val, err := w.parse(data)
	if err != nil {
		return zero, zeroHash, time.Time{}, err
	}

	return val, hash, info.ModTime(), nil
}
