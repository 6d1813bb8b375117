package watcher

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind is the collapsed kind of a file-system event.
type EventKind int

const (
	EventModified EventKind = iota
	EventCreated
	EventDeleted
)

// Event is one flushed file change handed to the coordinator.
type Event struct {
	Path string // absolute path
	Kind EventKind
}

// Handler consumes flushed events one file at a time.
type Handler func(ctx context.Context, ev Event)

// Watcher observes a project root recursively, debounces event bursts
// and emits per-file events. Events are buffered in a map keyed by
// absolute path; the latest kind overwrites earlier ones. A path
// flushes when it has been quiet for the debounce window or has been
// held for the maximum hold time.
type Watcher struct {
	root     string
	debounce time.Duration
	maxHold  time.Duration
	handler  Handler

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingEvent

	done chan struct{}
}

type pendingEvent struct {
	kind  EventKind
	first time.Time
	last  time.Time
}

// tickInterval is how often the pending map is scanned for flushable
// entries.
const tickInterval = 100 * time.Millisecond

// New creates a watcher for root. debounce and maxHold of zero use the
// defaults (500 ms, 5 s).
func New(root string, debounce, maxHold time.Duration, handler Handler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if maxHold <= 0 {
		maxHold = 5 * time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		maxHold:  maxHold,
		handler:  handler,
		fsw:      fsw,
		pending:  make(map[string]*pendingEvent),
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers root and all subdirectories with fsnotify.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		// Heavy churn directories are never worth watching.
		name := d.Name()
		if name == ".git" || name == "node_modules" || name == "__pycache__" {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Start runs the watch loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.record(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		case <-ticker.C:
			w.flushDue(ctx, time.Now())
		}
	}
}

// record buffers an fsnotify event, the latest kind winning.
func (w *Watcher) record(ev fsnotify.Event) {
	kind, ok := classify(ev)
	if !ok {
		return
	}

	// New directories must join the watch so nested changes surface.
	if kind == EventCreated {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[ev.Name]; exists {
		p.kind = kind
		p.last = now
		return
	}
	w.pending[ev.Name] = &pendingEvent{kind: kind, first: now, last: now}
}

// flushDue hands quiet or overheld entries to the handler, one file at
// a time.
func (w *Watcher) flushDue(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var due []Event
	for path, p := range w.pending {
		if now.Sub(p.last) >= w.debounce || now.Sub(p.first) >= w.maxHold {
			due = append(due, Event{Path: path, Kind: p.kind})
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, ev := range due {
		w.handler(ctx, ev)
	}
}

// Pending returns the number of buffered events, for tests and status.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Close stops the watch loop and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}

func classify(ev fsnotify.Event) (EventKind, bool) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		return EventCreated, true
	case ev.Op.Has(fsnotify.Write):
		return EventModified, true
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		return EventDeleted, true
	default:
		return 0, false
	}
}
