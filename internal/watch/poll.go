package watch

import (
	"context"
	"sync"
	"time"

	"pagebuilder/internal/domain"
)

// DefaultInterval is how often Poller checks open pages.
const DefaultInterval = 2 * time.Second

// Poller detects external changes on stores without file events (SQLite
// written by another process, MongoDB) by comparing each watched page's
// UpdatedAt between ticks.
type Poller struct {
	store    domain.PageStore
	onChange ChangeHandler
	interval time.Duration

	mu     sync.Mutex
	seen   map[string]time.Time // pageID -> last UpdatedAt
	follow func() []string
}

// NewPoller creates a Poller. Call Run to start it.
func NewPoller(store domain.PageStore, onChange ChangeHandler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{store: store, onChange: onChange, interval: interval, seen: make(map[string]time.Time)}
}

// Watch adds pageID to the watched set.
func (p *Poller) Watch(pageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[pageID]; !ok {
		p.seen[pageID] = time.Time{}
	}
}

// Unwatch removes pageID from the watched set.
func (p *Poller) Unwatch(pageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, pageID)
}

// Follow makes every Check replace the watched set with the ids fn
// returns, keeping the fingerprints of pages that stay watched.
func (p *Poller) Follow(fn func() []string) {
	p.mu.Lock()
	p.follow = fn
	p.mu.Unlock()
}

func (p *Poller) sync(ids []string) {
	keep := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		keep[id] = p.seen[id]
	}
	p.seen = keep
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check runs one poll. The first sighting of a page only records its
// fingerprint.
func (p *Poller) Check(ctx context.Context) {
	p.mu.Lock()
	follow := p.follow
	p.mu.Unlock()
	var followed []string
	if follow != nil {
		followed = follow()
	}

	p.mu.Lock()
	if follow != nil {
		p.sync(followed)
	}
	ids := make([]string, 0, len(p.seen))
	for id := range p.seen {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		page, err := p.store.LoadPage(ctx, id)
		if err != nil {
			continue
		}
		p.mu.Lock()
		last, watched := p.seen[id]
		changed := watched && !last.IsZero() && !last.Equal(page.UpdatedAt)
		if watched {
			p.seen[id] = page.UpdatedAt
		}
		p.mu.Unlock()

		if changed {
			p.onChange(id)
		}
	}
}
