// Package filestore keeps each page as a JSON file named <pageID>.json
// in one directory. Files can be edited by hand or checked into git; the
// watch package picks up external changes.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pagebuilder/internal/domain"
)

const ext = ".json"

// Store implements domain.PageCatalog on a directory.
type Store struct {
	dir string
	mu  sync.Mutex // serializes writes
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory pages are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a page id.
func (s *Store) Path(pageID string) string {
	return filepath.Join(s.dir, pageID+ext)
}

// PageIDFromPath maps a file in the store directory back to its page id.
func (s *Store) PageIDFromPath(path string) (string, bool) {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.dir) {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

func (s *Store) CreatePage(_ context.Context, p *domain.Page) error {
	if err := validID(p.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.Path(p.ID)); err == nil {
		return fmt.Errorf("create page: %s already exists", p.ID)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.write(p.ID, p)
}

func (s *Store) LoadPage(_ context.Context, id string) (*domain.Page, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", PageID: id, Err: err}
	}
	p, err := decode(data)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", PageID: id, Err: err}
	}
	p.ID = id
	return p, nil
}

// SavePage rewrites an existing page file. Missing pages are not created.
func (s *Store) SavePage(_ context.Context, id string, p *domain.Page) error {
	if err := validID(id); err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.Path(id)); errors.Is(err, fs.ErrNotExist) {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: domain.ErrPageNotFound}
	}
	p.UpdatedAt = time.Now()
	cp := *p
	cp.ID = id
	if err := s.write(id, &cp); err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	return nil
}

func (s *Store) ListPages(_ context.Context, projectID string) ([]domain.Page, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []domain.Page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := s.PageIDFromPath(filepath.Join(s.dir, e.Name()))
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		p, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		p.ID = id
		if projectID == "" || p.ProjectID == projectID {
			pages = append(pages, *p)
		}
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].IsHomepage != pages[j].IsHomepage {
			return pages[i].IsHomepage
		}
		return pages[i].Slug < pages[j].Slug
	})
	return pages, nil
}

func (s *Store) DeletePage(_ context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return &domain.PersistenceError{Op: "delete", PageID: id, Err: err}
	}
	return nil
}

// ── helpers ────────────────────────────────────────────────

// write replaces the page file atomically via a temp file in the same dir.
func (s *Store) write(id string, p *domain.Page) error {
	if p.LayoutData.Content == nil {
		cp := *p
		cp.LayoutData.Content = domain.Tree{}
		p = &cp
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename page file: %w", err)
	}
	return nil
}

func decode(data []byte) (*domain.Page, error) {
	var p domain.Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.LayoutData.Content == nil {
		p.LayoutData.Content = domain.Tree{}
	}
	return &p, nil
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid page id %q", id)
	}
	return nil
}
