package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// QueryResultStore caches the last preview of every bound component.
// A component holds at most one cached preview.
type QueryResultStore struct {
	db *DB
}

func NewQueryResultStore(db *DB) *QueryResultStore {
	return &QueryResultStore{db: db}
}

// UpsertResult replaces the cached preview of r.ComponentID.
func (s *QueryResultStore) UpsertResult(r *domain.QueryResult) error {
	if r.ComponentID == "" {
		return fmt.Errorf("cache preview: component id is required")
	}
	if r.ID == "" {
		r.ID = r.ComponentID
	}
	if r.ExecutedAt.IsZero() {
		r.ExecutedAt = time.Now()
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("cache preview %s: %w", r.ComponentID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM query_results WHERE component_id = ? OR id = ?`, r.ComponentID, r.ID); err != nil {
		return fmt.Errorf("cache preview %s: %w", r.ComponentID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO query_results (id, component_id, table_name, columns_json, rows_json, total_rows, executed_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ComponentID, r.Table, r.ColumnsJSON, r.RowsJSON, r.TotalRows, r.ExecutedAt, r.DurationMs, r.Error,
	); err != nil {
		return fmt.Errorf("cache preview %s: %w", r.ComponentID, err)
	}
	return tx.Commit()
}

// GetResultByComponent returns nil, nil when the component has no
// cached preview.
func (s *QueryResultStore) GetResultByComponent(componentID string) (*domain.QueryResult, error) {
	var r domain.QueryResult
	err := s.db.Conn().QueryRow(
		`SELECT id, component_id, table_name, columns_json, rows_json, total_rows, executed_at, duration_ms, error
		 FROM query_results WHERE component_id = ?`, componentID,
	).Scan(&r.ID, &r.ComponentID, &r.Table, &r.ColumnsJSON, &r.RowsJSON, &r.TotalRows, &r.ExecutedAt, &r.DurationMs, &r.Error)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cached preview %s: %w", componentID, err)
	}
	return &r, nil
}

func (s *QueryResultStore) DeleteResultsByComponent(componentID string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM query_results WHERE component_id = ?`, componentID); err != nil {
		return fmt.Errorf("drop cached preview %s: %w", componentID, err)
	}
	return nil
}
