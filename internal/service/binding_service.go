package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/dbclient"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/secret"
)

// ErrNoBinding is returned when a component carries no usable binding prop.
var ErrNoBinding = errors.New("component has no data binding")

// BindingProp is the props key data components keep their binding under.
const BindingProp = "binding"

// ─────────────────────────────────────────────────────────────
// Binding Service: data components bound to external databases
// ─────────────────────────────────────────────────────────────

// CreateDBConnInput is the service-layer DTO for creating/updating connections.
type CreateDBConnInput struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	SSLMode   string `json:"sslMode"`
}

// BindingService manages database connections and the row previews that
// DataTable and Chart components render. Live connectors are pooled per
// connection id.
type BindingService struct {
	connStore domain.DatabaseConnectionStore
	results   domain.QueryResultStore
	secrets   secret.SecretStore

	mu               sync.Mutex
	activeConnectors map[string]*connEntry
}

type connEntry struct {
	connector dbclient.Connector
	createdAt time.Time
}

// NewBindingService creates a BindingService. results may be nil, in
// which case previews are not cached.
func NewBindingService(
	connStore domain.DatabaseConnectionStore,
	results domain.QueryResultStore,
	secrets secret.SecretStore,
) *BindingService {
	return &BindingService{
		connStore:        connStore,
		results:          results,
		secrets:          secrets,
		activeConnectors: make(map[string]*connEntry),
	}
}

// ── Connection CRUD ────────────────────────────────────────

func (s *BindingService) ListConnections(projectID string) ([]domain.DatabaseConnection, error) {
	return s.connStore.ListConnections(projectID)
}

func (s *BindingService) GetConnection(id string) (*domain.DatabaseConnection, error) {
	return s.connStore.GetConnection(id)
}

func (s *BindingService) CreateConnection(input CreateDBConnInput) (*domain.DatabaseConnection, error) {
	if err := validDriver(input.Driver); err != nil {
		return nil, err
	}
	conn := &domain.DatabaseConnection{
		ID:        uuid.New().String(),
		ProjectID: input.ProjectID,
		Name:      input.Name,
		Driver:    domain.DatabaseDriver(input.Driver),
		Host:      input.Host,
		Port:      input.Port,
		Database:  input.Database,
		Username:  input.Username,
		SSLMode:   input.SSLMode,
	}
	if err := s.connStore.CreateConnection(conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if err := s.storePassword(conn.ID, input.Password); err != nil {
		return conn, err
	}
	return conn, nil
}

func (s *BindingService) UpdateConnection(id string, input CreateDBConnInput) error {
	if err := validDriver(input.Driver); err != nil {
		return err
	}
	conn, err := s.connStore.GetConnection(id)
	if err != nil {
		return err
	}
	conn.Name = input.Name
	conn.Driver = domain.DatabaseDriver(input.Driver)
	conn.Host = input.Host
	conn.Port = input.Port
	conn.Database = input.Database
	conn.Username = input.Username
	conn.SSLMode = input.SSLMode
	if err := s.connStore.UpdateConnection(conn); err != nil {
		return err
	}
	if err := s.storePassword(id, input.Password); err != nil {
		return err
	}
	// Next preview reconnects with the new config.
	s.dropConnector(id)
	return nil
}

func (s *BindingService) DeleteConnection(id string) error {
	s.dropConnector(id)
	if s.secrets != nil {
		if err := s.secrets.Delete(secret.ConnectionKey(id)); err != nil {
			log.Printf("[DB] delete password for %s: %v", id, err)
		}
	}
	return s.connStore.DeleteConnection(id)
}

func (s *BindingService) storePassword(id, password string) error {
	if password == "" || s.secrets == nil {
		return nil
	}
	if err := s.secrets.Set(secret.ConnectionKey(id), []byte(password)); err != nil {
		return fmt.Errorf("store password for %s: %w", id, err)
	}
	return nil
}

func validDriver(d string) error {
	switch domain.DatabaseDriver(d) {
	case domain.DatabaseDriverSQLite, domain.DatabaseDriverPostgres,
		domain.DatabaseDriverMySQL, domain.DatabaseDriverMongoDB:
		return nil
	}
	return fmt.Errorf("unsupported driver %q", d)
}

// ── Test + Introspect ──────────────────────────────────────

func (s *BindingService) TestConnection(ctx context.Context, id string) error {
	connector, err := s.getOrCreate(id)
	if err != nil {
		return err
	}
	return connector.TestConnection(ctx)
}

func (s *BindingService) Introspect(ctx context.Context, connectionID string) (*dbclient.SchemaInfo, error) {
	connector, err := s.getOrCreate(connectionID)
	if err != nil {
		return nil, err
	}
	return connector.Introspect(ctx)
}

// ── Bindings ───────────────────────────────────────────────

// ResolveBinding reads the binding descriptor from node's props. The prop
// may hold a domain.Binding or its decoded JSON object form.
func ResolveBinding(node domain.ComponentNode) (*domain.Binding, error) {
	raw, ok := node.Props[BindingProp]
	if !ok || raw == nil {
		return nil, fmt.Errorf("component %s: %w", node.ID, ErrNoBinding)
	}

	var b domain.Binding
	switch v := raw.(type) {
	case domain.Binding:
		b = v
	case *domain.Binding:
		b = *v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("component %s: encode binding: %w", node.ID, err)
		}
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("component %s: decode binding: %w", node.ID, err)
		}
	}
	if b.ConnectionID == "" || b.Table == "" {
		return nil, fmt.Errorf("component %s: incomplete binding: %w", node.ID, ErrNoBinding)
	}
	return &b, nil
}

// Preview fetches up to limit rows of table over a pooled connector.
func (s *BindingService) Preview(ctx context.Context, connectionID, table string, limit int) (*dbclient.Preview, error) {
	connector, err := s.getOrCreate(connectionID)
	if err != nil {
		return nil, err
	}
	p, err := connector.Preview(ctx, table, limit)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}
	return p, nil
}

// PreviewComponent resolves node's binding, fetches the rows and caches
// the outcome, error included, against the component id.
func (s *BindingService) PreviewComponent(ctx context.Context, node domain.ComponentNode) (*dbclient.Preview, error) {
	b, err := ResolveBinding(node)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p, err := s.Preview(ctx, b.ConnectionID, b.Table, b.Limit)
	result := &domain.QueryResult{
		ID:          node.ID,
		ComponentID: node.ID,
		Table:       b.Table,
		ColumnsJSON: "[]",
		RowsJSON:    "[]",
		ExecutedAt:  start,
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		result.Error = err.Error()
	} else {
		cols, _ := json.Marshal(p.Columns)
		rows, _ := json.Marshal(p.Rows)
		result.ColumnsJSON = string(cols)
		result.RowsJSON = string(rows)
		result.TotalRows = len(p.Rows)
	}

	if s.results != nil {
		if uerr := s.results.UpsertResult(result); uerr != nil {
			log.Printf("[DB] cache preview for %s: %v", node.ID, uerr)
		}
	}
	return p, err
}

// CachedPreview returns the last cached preview for a component, or nil.
func (s *BindingService) CachedPreview(componentID string) (*domain.QueryResult, error) {
	if s.results == nil {
		return nil, nil
	}
	return s.results.GetResultByComponent(componentID)
}

// ClearPreview removes the cached preview of a component.
func (s *BindingService) ClearPreview(componentID string) error {
	if s.results == nil {
		return nil
	}
	return s.results.DeleteResultsByComponent(componentID)
}

// ── Connector Pool ─────────────────────────────────────────

func (s *BindingService) getOrCreate(id string) (dbclient.Connector, error) {
	s.mu.Lock()
	if e, ok := s.activeConnectors[id]; ok {
		s.mu.Unlock()
		return e.connector, nil
	}
	s.mu.Unlock()

	conn, err := s.connStore.GetConnection(id)
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}

	var password string
	if s.secrets != nil {
		pw, err := s.secrets.Get(secret.ConnectionKey(id))
		if err != nil {
			log.Printf("[DB] password for %s unavailable: %v", id, err)
		}
		password = string(pw)
	}

	connector, err := dbclient.NewConnector(conn, password)
	if err != nil {
		return nil, fmt.Errorf("open db connection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have connected while we were dialing.
	if e, ok := s.activeConnectors[id]; ok {
		_ = connector.Close()
		return e.connector, nil
	}
	s.activeConnectors[id] = &connEntry{connector: connector, createdAt: time.Now()}
	return connector, nil
}

func (s *BindingService) dropConnector(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.activeConnectors[id]; ok {
		_ = e.connector.Close()
		delete(s.activeConnectors, id)
	}
}

// ActiveConnectors reports how many connectors are pooled.
func (s *BindingService) ActiveConnectors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConnectors)
}

// Close tears down all active database connectors.
func (s *BindingService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.activeConnectors {
		_ = entry.connector.Close()
		delete(s.activeConnectors, id)
	}
}
