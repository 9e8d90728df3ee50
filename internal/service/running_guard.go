package service

import (
	"context"
	"sync"
)

// ExportedSaveGuard is an exported alias so _test packages can test the guard.
type ExportedSaveGuard = saveGuard

// ─────────────────────────────────────────────────────────────
// saveGuard: one in-flight save per page
// ─────────────────────────────────────────────────────────────

// saveGuard ensures a page is never written by two saves at once. The
// autosave tick skips pages whose previous save has not returned, and
// Shutdown waits for the saves still running.
type saveGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks pageID as saving. It returns false if a save for the
// page is already running.
func (g *saveGuard) TryLock(pageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[pageID]; ok {
		return false
	}
	g.running[pageID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks the save as finished. Must follow a successful TryLock.
func (g *saveGuard) Unlock(pageID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, pageID)
	g.wg.Done()
}

// Saving reports whether a save for pageID is in flight.
func (g *saveGuard) Saving(pageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[pageID]
	return ok
}

// WaitAll blocks until all running saves complete or ctx is cancelled.
func (g *saveGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
