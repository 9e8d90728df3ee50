// Package dbclient talks to the external databases that data components
// (tables, charts) are bound to. It only reads: schema for the binding
// picker and a bounded preview of one table or collection.
package dbclient

import (
	"context"
	"fmt"
	"regexp"

	"pagebuilder/internal/domain"
)

const (
	DefaultPreviewLimit = 50
	MaxPreviewLimit     = 500
)

// Preview is the first rows of a bound table.
type Preview struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"` // more rows exist past the limit
}

// SchemaInfo lists the tables a connection exposes.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connector abstracts read access to an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Introspect returns the tables and their columns.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Preview reads up to limit rows of table.
	Preview(ctx context.Context, table string, limit int) (*Preview, error)

	// Close releases the connection pool.
	Close() error
}

// NewConnector creates a Connector for the given database connection.
// The password comes from the secret store, never from the record.
func NewConnector(conn *domain.DatabaseConnection, password string) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLConnector("sqlite", buildSQLiteDSN(conn))
	case domain.DatabaseDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password))
	case domain.DatabaseDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password))
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(conn, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidTableName reports whether name is a plain (optionally
// schema-qualified) identifier that can be quoted into a query.
func ValidTableName(name string) bool {
	return identRe.MatchString(name)
}

// ClampLimit applies the default and maximum preview sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPreviewLimit
	}
	if limit > MaxPreviewLimit {
		return MaxPreviewLimit
	}
	return limit
}
