package domain

import "time"

// DatabaseDriver represents the type of database engine a data
// component can be bound to.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to an external database.
// The password is kept in a secret.SecretStore, never in this record.
type DatabaseConnection struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	Name      string         `json:"name"`
	Driver    DatabaseDriver `json:"driver"`
	Host      string         `json:"host"`     // hostname, file path (sqlite) or full mongodb URI
	Port      int            `json:"port"`     // 0 means driver default
	Database  string         `json:"database"` // db name, empty for sqlite
	Username  string         `json:"username"`
	SSLMode   string         `json:"sslMode"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type DatabaseConnectionStore interface {
	CreateConnection(c *DatabaseConnection) error
	GetConnection(id string) (*DatabaseConnection, error)
	ListConnections(projectID string) ([]DatabaseConnection, error)
	UpdateConnection(c *DatabaseConnection) error
	DeleteConnection(id string) error
}

// Binding is the descriptor a data component carries in props["binding"].
type Binding struct {
	ConnectionID string `json:"connectionId"`
	Table        string `json:"table"`
	Limit        int    `json:"limit,omitempty"`
}

// QueryResult is the cached preview of a bound component's table.
type QueryResult struct {
	ID          string    `json:"id"`
	ComponentID string    `json:"componentId"`
	Table       string    `json:"table"`
	ColumnsJSON string    `json:"columnsJson"` // JSON array of column names
	RowsJSON    string    `json:"rowsJson"`    // JSON array of row arrays
	TotalRows   int       `json:"totalRows"`
	ExecutedAt  time.Time `json:"executedAt"`
	DurationMs  int       `json:"durationMs"`
	Error       string    `json:"error"`
}

type QueryResultStore interface {
	UpsertResult(r *QueryResult) error
	GetResultByComponent(componentID string) (*QueryResult, error)
	DeleteResultsByComponent(componentID string) error
}
