// Package cached wraps a page catalog with an in-process LRU of loaded
// pages. Saves write through and refresh the cached copy.
package cached

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

// DefaultSize is the number of pages kept when no size is given.
const DefaultSize = 256

// Store is a read-through cache in front of another catalog.
type Store struct {
	inner domain.PageCatalog
	cache *lru.Cache[string, domain.Page]
}

func New(inner domain.PageCatalog, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, domain.Page](size)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return &Store{inner: inner, cache: c}, nil
}

func (s *Store) LoadPage(ctx context.Context, id string) (*domain.Page, error) {
	if p, ok := s.cache.Get(id); ok {
		return clonePage(p), nil
	}
	p, err := s.inner.LoadPage(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, *clonePage(*p))
	return p, nil
}

func (s *Store) SavePage(ctx context.Context, id string, p *domain.Page) error {
	if err := s.inner.SavePage(ctx, id, p); err != nil {
		s.cache.Remove(id)
		return err
	}
	s.cache.Add(id, *clonePage(*p))
	return nil
}

func (s *Store) CreatePage(ctx context.Context, p *domain.Page) error {
	return s.inner.CreatePage(ctx, p)
}

func (s *Store) ListPages(ctx context.Context, projectID string) ([]domain.Page, error) {
	return s.inner.ListPages(ctx, projectID)
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.inner.DeletePage(ctx, id)
}

// Invalidate drops a cached page, e.g. after its file changed on disk.
func (s *Store) Invalidate(id string) {
	s.cache.Remove(id)
}

// Len reports how many pages are cached.
func (s *Store) Len() int {
	return s.cache.Len()
}

func clonePage(p domain.Page) *domain.Page {
	p.LayoutData.Content = tree.CloneTree(p.LayoutData.Content)
	return &p
}
