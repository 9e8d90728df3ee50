package app

import (
	"context"
	"log"

	"pagebuilder/internal/watch"
)

// pageWatcher forwards changes made outside this process (another CLI
// run, a hand-edited page file) to the editor, so open sessions reload.
type pageWatcher struct {
	dir    *watch.Dir
	cancel context.CancelFunc
}

// startPageWatcher watches the page directory with fsnotify for the file
// store and polls the open pages otherwise.
func (a *App) startPageWatcher(ctx context.Context) (*pageWatcher, error) {
	onChange := func(pageID string) {
		if err := a.Editor.HandleExternalChange(ctx, pageID); err != nil {
			log.Printf("[WATCH] reload page %s: %v", pageID, err)
		}
	}

	if a.files != nil {
		dir, err := watch.NewDir(a.files.Dir(), a.files.PageIDFromPath, onChange, watch.DefaultDebounce)
		if err != nil {
			return nil, err
		}
		return &pageWatcher{dir: dir}, nil
	}

	// The poller reads the backend directly; a cached copy would hide
	// writes from other processes.
	pollCtx, cancel := context.WithCancel(ctx)
	poller := watch.NewPoller(a.raw, onChange, watch.DefaultInterval)
	poller.Follow(a.Editor.OpenPageIDs)
	go poller.Run(pollCtx)
	log.Printf("[WATCH] polling open pages every %s", watch.DefaultInterval)
	return &pageWatcher{cancel: cancel}, nil
}

func (w *pageWatcher) Stop() {
	if w.dir != nil {
		w.dir.Close()
	}
	if w.cancel != nil {
		w.cancel()
	}
}
