package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// PageStore implements domain.PageCatalog using SQLite. The component
// tree is stored verbatim as JSON in layout_json.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, project_id, slug, title, description, keywords, is_public, is_homepage, layout_json, created_at, updated_at`

func (s *PageStore) CreatePage(ctx context.Context, p *domain.Page) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	layout, err := encodeLayout(p.LayoutData)
	if err != nil {
		return err
	}
	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Slug, p.Title, p.Description, p.Keywords,
		boolInt(p.IsPublic), boolInt(p.IsHomepage), layout, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *PageStore) LoadPage(ctx context.Context, id string) (*domain.Page, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", PageID: id, Err: err}
	}
	return p, nil
}

// SavePage overwrites the page row, tree included. A page that does not
// exist is not created.
func (s *PageStore) SavePage(ctx context.Context, id string, p *domain.Page) error {
	layout, err := encodeLayout(p.LayoutData)
	if err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	p.UpdatedAt = time.Now()
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE pages SET slug = ?, title = ?, description = ?, keywords = ?, is_public = ?, is_homepage = ?, layout_json = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Title, p.Description, p.Keywords, boolInt(p.IsPublic), boolInt(p.IsHomepage), layout, p.UpdatedAt, id,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: domain.ErrPageNotFound}
	}
	return nil
}

func (s *PageStore) ListPages(ctx context.Context, projectID string) ([]domain.Page, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE project_id = ? ORDER BY is_homepage DESC, slug ASC`, projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return &domain.PersistenceError{Op: "delete", PageID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

// ── helpers ────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(r rowScanner) (*domain.Page, error) {
	p := &domain.Page{}
	var public, home int
	var layout string
	err := r.Scan(&p.ID, &p.ProjectID, &p.Slug, &p.Title, &p.Description, &p.Keywords,
		&public, &home, &layout, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.IsPublic = public == 1
	p.IsHomepage = home == 1
	if err := json.Unmarshal([]byte(layout), &p.LayoutData); err != nil {
		return nil, fmt.Errorf("decode layout of page %s: %w", p.ID, err)
	}
	if p.LayoutData.Content == nil {
		p.LayoutData.Content = domain.Tree{}
	}
	return p, nil
}

func encodeLayout(l domain.LayoutData) (string, error) {
	if l.Content == nil {
		l.Content = domain.Tree{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("encode layout: %w", err)
	}
	return string(b), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
