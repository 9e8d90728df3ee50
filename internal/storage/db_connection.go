package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// ErrConnectionNotFound is returned for an unknown connection id.
var ErrConnectionNotFound = errors.New("database connection not found")

// ErrConnectionNameTaken is returned when a project already has a
// connection with the same name.
var ErrConnectionNameTaken = errors.New("connection name already used in project")

// DBConnectionStore keeps the binding targets of each project. Passwords
// live in a secret store; a row only says where to connect.
type DBConnectionStore struct {
	db *DB
}

func NewDBConnectionStore(db *DB) *DBConnectionStore {
	return &DBConnectionStore{db: db}
}

const connectionColumns = `id, project_id, name, driver, host, port, database_name, username, ssl_mode, created_at, updated_at`

func scanConnection(r rowScanner) (domain.DatabaseConnection, error) {
	var c domain.DatabaseConnection
	err := r.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Driver, &c.Host, &c.Port,
		&c.Database, &c.Username, &c.SSLMode, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// nameTaken reports whether another connection of projectID is called name.
func (s *DBConnectionStore) nameTaken(projectID, name, exceptID string) (bool, error) {
	var n int
	err := s.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM db_connections WHERE project_id = ? AND name = ? AND id <> ?`,
		projectID, name, exceptID,
	).Scan(&n)
	return n > 0, err
}

func (s *DBConnectionStore) CreateConnection(c *domain.DatabaseConnection) error {
	taken, err := s.nameTaken(c.ProjectID, c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("create connection %s: %w", c.Name, err)
	}
	if taken {
		return fmt.Errorf("create connection %s: %w", c.Name, ErrConnectionNameTaken)
	}

	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	_, err = s.db.Conn().Exec(
		`INSERT INTO db_connections (`+connectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create connection %s: %w", c.Name, err)
	}
	return nil
}

func (s *DBConnectionStore) GetConnection(id string) (*domain.DatabaseConnection, error) {
	c, err := scanConnection(s.db.Conn().QueryRow(
		`SELECT `+connectionColumns+` FROM db_connections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}
	return &c, nil
}

// ListConnections returns the connections of a project by name; an
// empty projectID lists every project's.
func (s *DBConnectionStore) ListConnections(projectID string) ([]domain.DatabaseConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM db_connections`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	rows, err := s.db.Conn().Query(query+` ORDER BY project_id, name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.DatabaseConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("list connections: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// UpdateConnection reports ErrConnectionNotFound before any name clash.
func (s *DBConnectionStore) UpdateConnection(c *domain.DatabaseConnection) error {
	if _, err := s.GetConnection(c.ID); err != nil {
		return fmt.Errorf("update connection: %w", err)
	}
	taken, err := s.nameTaken(c.ProjectID, c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("update connection %s: %w", c.ID, err)
	}
	if taken {
		return fmt.Errorf("update connection %s: %w", c.ID, ErrConnectionNameTaken)
	}

	c.UpdatedAt = time.Now()
	res, err := s.db.Conn().Exec(
		`UPDATE db_connections SET project_id=?, name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, updated_at=?
		 WHERE id=?`,
		c.ProjectID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update connection %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// deleted between the lookup and the update
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, c.ID)
	}
	return nil
}

// DeleteConnection is a no-op for an unknown id.
func (s *DBConnectionStore) DeleteConnection(id string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM db_connections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete connection %s: %w", id, err)
	}
	return nil
}
