package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// ProjectStore implements domain.ProjectStore using SQLite.
type ProjectStore struct {
	db *DB
}

func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) CreateProject(p *domain.Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO projects (id, name, subdomain, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Subdomain, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *ProjectStore) GetProject(id string) (*domain.Project, error) {
	p := &domain.Project{}
	err := s.db.conn.QueryRow(
		`SELECT id, name, subdomain, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Subdomain, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *ProjectStore) ListProjects() ([]domain.Project, error) {
	rows, err := s.db.conn.Query(`SELECT id, name, subdomain, created_at, updated_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Subdomain, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *ProjectStore) UpdateProject(p *domain.Project) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE projects SET name = ?, subdomain = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Subdomain, p.UpdatedAt, p.ID,
	)
	return err
}

func (s *ProjectStore) DeleteProject(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM projects WHERE id = ?`, id)
	return err
}
