// Package watch notices pages changed outside this process and reports
// their ids, so open editor sessions can reload.
package watch

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called with the id of a page changed on disk.
type ChangeHandler func(pageID string)

// PathMapper maps a file path to a page id; false ignores the file.
type PathMapper func(path string) (string, bool)

// DefaultDebounce collapses the bursts of events one save produces.
const DefaultDebounce = 300 * time.Millisecond

// Dir watches a page directory (the file store) with fsnotify.
type Dir struct {
	watcher  *fsnotify.Watcher
	mapID    PathMapper
	onChange ChangeHandler
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	done   chan struct{}
}

// NewDir starts watching dir. Events for files mapID rejects are dropped.
func NewDir(dir string, mapID PathMapper, onChange ChangeHandler, debounce time.Duration) (*Dir, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	d := &Dir{
		watcher:  watcher,
		mapID:    mapID,
		onChange: onChange,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go d.loop()
	log.Printf("[WATCH] watching %s", abs)
	return d, nil
}

// Close stops the watcher and cancels pending notifications.
func (d *Dir) Close() error {
	err := d.watcher.Close()
	<-d.done
	d.mu.Lock()
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	return err
}

func (d *Dir) loop() {
	defer close(d.done)
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			// Saves land as a rename onto the page file, i.e. a Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			pageID, ok := d.mapID(event.Name)
			if !ok {
				continue
			}
			d.schedule(pageID)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] watcher error: %v", err)
		}
	}
}

func (d *Dir) schedule(pageID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, exists := d.timers[pageID]; exists {
		t.Stop()
	}
	d.timers[pageID] = time.AfterFunc(d.debounce, func() {
		d.mu.Lock()
		delete(d.timers, pageID)
		d.mu.Unlock()
		d.onChange(pageID)
	})
}
