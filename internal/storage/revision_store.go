package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// DefaultRevisionLimit is how many revisions are kept per page.
const DefaultRevisionLimit = 40

// RevisionStore keeps saved page snapshots in SQLite.
type RevisionStore struct {
	db    *DB
	limit int
}

func NewRevisionStore(db *DB) *RevisionStore {
	return &RevisionStore{db: db, limit: DefaultRevisionLimit}
}

// WithLimit changes how many revisions are kept per page.
func (s *RevisionStore) WithLimit(n int) *RevisionStore {
	if n > 0 {
		s.limit = n
	}
	return s
}

// PushRevision records a snapshot and prunes the oldest ones past the limit.
func (s *RevisionStore) PushRevision(pageID, label, snapshotJSON string) (*domain.Revision, error) {
	rev := &domain.Revision{
		ID:           uuid.New().String(),
		PageID:       pageID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO page_revisions (id, page_id, label, snapshot_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		rev.ID, rev.PageID, rev.Label, rev.SnapshotJSON, rev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	if err := s.prune(pageID); err != nil {
		return nil, err
	}
	return rev, nil
}

// ListRevisions returns a page's revisions, oldest first, without snapshots.
func (s *RevisionStore) ListRevisions(pageID string) ([]domain.Revision, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, page_id, label, created_at FROM page_revisions
		 WHERE page_id = ? ORDER BY created_at ASC, rowid ASC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.Revision
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.PageID, &r.Label, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *RevisionStore) GetRevision(id string) (*domain.Revision, error) {
	r := &domain.Revision{}
	err := s.db.Conn().QueryRow(
		`SELECT id, page_id, label, snapshot_json, created_at FROM page_revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.PageID, &r.Label, &r.SnapshotJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// ClearPage removes all revisions for a page.
func (s *RevisionStore) ClearPage(pageID string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM page_revisions WHERE page_id = ?`, pageID)
	return err
}

func (s *RevisionStore) prune(pageID string) error {
	var count int
	if err := s.db.Conn().QueryRow(`SELECT COUNT(*) FROM page_revisions WHERE page_id = ?`, pageID).Scan(&count); err != nil {
		return fmt.Errorf("count revisions: %w", err)
	}
	if count <= s.limit {
		return nil
	}

	// Collect ids first; the single connection cannot write while a cursor is open.
	rows, err := s.db.Conn().Query(
		`SELECT id FROM page_revisions WHERE page_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, pageID, count-s.limit,
	)
	if err != nil {
		return fmt.Errorf("select revisions to prune: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.Conn().Exec(`DELETE FROM page_revisions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("prune revision %s: %w", id, err)
		}
	}
	return nil
}
