package watcher

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
)

// SpoolWatcher ingests state-change documents dropped into a spool
// directory by the host platform. Each document is a JSON Change; files
// are consumed (deleted) once parsed. Writes are debounced so a file
// still being written is not read half-finished.
type SpoolWatcher struct {
	dir       string
	debounce  time.Duration
	sink      ChangeSink
	watcher   *fsnotify.Watcher
	stopChan  chan struct{}
	doneChan  chan struct{}
	pending   map[string]time.Time
	pendingMu sync.Mutex
}

// NewSpoolWatcher creates a watcher over the given spool directory
func NewSpoolWatcher(dir string, debounce time.Duration, sink ChangeSink) *SpoolWatcher {
	return &SpoolWatcher{
		dir:      dir,
		debounce: debounce,
		sink:     sink,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		pending:  make(map[string]time.Time),
	}
}

// Start begins watching the spool directory and drains any documents
// already present
func (w *SpoolWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	go w.watch()
	go w.debounceLoop()

	w.drainExisting()
	return nil
}

// Stop stops the watcher
func (w *SpoolWatcher) Stop() {
	close(w.stopChan)
	if w.watcher != nil {
		w.watcher.Close()
	}
	<-w.doneChan
}

// drainExisting consumes documents left over from before startup
func (w *SpoolWatcher) drainExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.consume(filepath.Join(w.dir, name))
	}
}

func (w *SpoolWatcher) watch() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("spool watcher error: %v", err)
		}
	}
}

func (w *SpoolWatcher) debounceLoop() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *SpoolWatcher) flushPending() {
	w.pendingMu.Lock()
	var ready []string
	now := time.Now()
	for path, lastSeen := range w.pending {
		if now.Sub(lastSeen) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.consume(path)
	}
}

// consume parses one spool document and forwards it. Malformed
// documents are logged and discarded, never fatal.
func (w *SpoolWatcher) consume(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	defer os.Remove(path)

	var change Change
	if err := json.Unmarshal(data, &change); err != nil {
		log.Printf("spool: skipping malformed document %s: %v", filepath.Base(path), err)
		return
	}
	if change.SubjectID == "" {
		log.Printf("spool: skipping document %s, missing subject id", filepath.Base(path))
		return
	}
	if change.ID == "" {
		change.ID = ulid.Make().String()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	select {
	case w.sink <- change:
	default:
		log.Printf("spool: change queue full, dropping event for %s", change.SubjectID)
	}
}
