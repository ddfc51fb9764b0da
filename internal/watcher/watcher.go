// Package watcher reports changes to a file, such as the local draft
// database, made by other processes.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/pubsub"
)

// EventType distinguishes change notifications from watch failures.
type EventType int

const (
	Changed EventType = iota
	Failed
)

// Event is published on the watcher's broker.
type Event struct {
	Type  EventType
	Path  string
	Error error
}

// Config holds watcher options.
type Config struct {
	Path     string
	Debounce time.Duration
}

// DefaultConfig watches path with a 500ms quiet period.
func DefaultConfig(path string) Config {
	return Config{Path: path, Debounce: 500 * time.Millisecond}
}

// Watcher watches one file. SQLite sidecar files (-wal, -journal) count as
// the file itself. Bursts of writes produce one Changed event.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	names    map[string]struct{}
	broker   *pubsub.Broker[Event]
	settle   *debounce.Func[string]
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	base := filepath.Base(cfg.Path)
	w := &Watcher{
		fs:     fsw,
		path:   cfg.Path,
		broker: pubsub.NewBroker[Event](),
		done:   make(chan struct{}),
		names: map[string]struct{}{
			base:              {},
			base + "-wal":     {},
			base + "-journal": {},
		},
	}
	w.settle = debounce.NewFunc(cfg.Debounce, func(path string) {
		w.broker.Publish(Event{Type: Changed, Path: path})
	})
	return w, nil
}

// Broker returns the event broker.
func (w *Watcher) Broker() *pubsub.Broker[Event] { return w.broker }

// Start watches the file's directory; the file itself may not exist yet.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()
	return nil
}

// Stop releases the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.settle.Stop()
		err = w.fs.Close()
		w.broker.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.settle.Call(w.path)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatDraft, "file watcher error", "path", w.path, "error", err)
			w.broker.Publish(Event{Type: Failed, Path: w.path, Error: err})
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	_, ok := w.names[filepath.Base(event.Name)]
	return ok
}
