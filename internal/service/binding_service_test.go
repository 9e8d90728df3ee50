package service_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

func seedShop(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, q := range []string{
		`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price REAL)`,
		`INSERT INTO products (name, price) VALUES ('boots', 80), ('hat', 20), ('scarf', 15)`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func newBindingService(t *testing.T) (*service.BindingService, *secret.MemoryStore) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	secrets := secret.NewMemoryStore()
	svc := service.NewBindingService(storage.NewDBConnectionStore(db), storage.NewQueryResultStore(db), secrets)
	t.Cleanup(svc.Close)
	return svc, secrets
}

func TestResolveBinding(t *testing.T) {
	tests := []struct {
		name    string
		props   domain.Props
		want    string
		wantErr bool
	}{
		{"json object", domain.Props{"binding": map[string]any{"connectionId": "c1", "table": "products", "limit": float64(5)}}, "c1/products", false},
		{"typed", domain.Props{"binding": domain.Binding{ConnectionID: "c2", Table: "orders"}}, "c2/orders", false},
		{"missing", domain.Props{}, "", true},
		{"no table", domain.Props{"binding": map[string]any{"connectionId": "c1"}}, "", true},
		{"wrong shape", domain.Props{"binding": "products"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := service.ResolveBinding(domain.ComponentNode{ID: "n", Props: tt.props})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", b)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := b.ConnectionID + "/" + b.Table; got != tt.want {
				t.Errorf("binding = %s, want %s", got, tt.want)
			}
		})
	}

	_, err := service.ResolveBinding(domain.ComponentNode{ID: "n"})
	if !errors.Is(err, service.ErrNoBinding) {
		t.Errorf("expected ErrNoBinding, got %v", err)
	}
}

func TestBindingService_PreviewComponentCachesResult(t *testing.T) {
	svc, _ := newBindingService(t)
	ctx := context.Background()
	conn, err := svc.CreateConnection(service.CreateDBConnInput{
		ProjectID: "proj", Name: "shop", Driver: "sqlite", Host: seedShop(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.TestConnection(ctx, conn.ID); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	node := domain.ComponentNode{ID: "grid", Type: domain.ComponentDataTable, Props: domain.Props{
		"binding": map[string]any{"connectionId": conn.ID, "table": "products", "limit": 2},
	}}
	p, err := svc.PreviewComponent(ctx, node)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Rows) != 2 || !p.Truncated {
		t.Errorf("rows = %d truncated = %v", len(p.Rows), p.Truncated)
	}

	cached, err := svc.CachedPreview("grid")
	if err != nil || cached == nil {
		t.Fatalf("cached = %v, %v", cached, err)
	}
	if cached.Table != "products" || cached.TotalRows != 2 || cached.Error != "" {
		t.Errorf("cached = %+v", cached)
	}

	if err := svc.ClearPreview("grid"); err != nil {
		t.Fatal(err)
	}
	if cached, _ := svc.CachedPreview("grid"); cached != nil {
		t.Error("preview survived ClearPreview")
	}
}

func TestBindingService_FailedPreviewIsCached(t *testing.T) {
	svc, _ := newBindingService(t)
	ctx := context.Background()
	conn, _ := svc.CreateConnection(service.CreateDBConnInput{Name: "shop", Driver: "sqlite", Host: seedShop(t)})

	node := domain.ComponentNode{ID: "chart", Type: domain.ComponentChart, Props: domain.Props{
		"binding": domain.Binding{ConnectionID: conn.ID, Table: "missing_table"},
	}}
	if _, err := svc.PreviewComponent(ctx, node); err == nil {
		t.Fatal("expected preview error")
	}
	cached, _ := svc.CachedPreview("chart")
	if cached == nil || cached.Error == "" {
		t.Errorf("failed preview should be cached with its error: %+v", cached)
	}
}

func TestBindingService_ConnectionLifecycle(t *testing.T) {
	svc, secrets := newBindingService(t)
	ctx := context.Background()
	path := seedShop(t)

	if _, err := svc.CreateConnection(service.CreateDBConnInput{Name: "x", Driver: "oracle"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}

	conn, err := svc.CreateConnection(service.CreateDBConnInput{ProjectID: "proj", Name: "shop", Driver: "sqlite", Host: path, Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if pw, _ := secrets.Get(secret.ConnectionKey(conn.ID)); string(pw) != "pw" {
		t.Errorf("password not stored, got %q", pw)
	}
	if list, _ := svc.ListConnections("proj"); len(list) != 1 {
		t.Errorf("connections = %d", len(list))
	}

	schema, err := svc.Introspect(ctx, conn.ID)
	if err != nil || len(schema.Tables) != 1 {
		t.Fatalf("schema = %+v, %v", schema, err)
	}
	if svc.ActiveConnectors() != 1 {
		t.Errorf("pool size = %d", svc.ActiveConnectors())
	}

	if err := svc.UpdateConnection(conn.ID, service.CreateDBConnInput{Name: "renamed", Driver: "sqlite", Host: path}); err != nil {
		t.Fatal(err)
	}
	if svc.ActiveConnectors() != 0 {
		t.Error("update should drop the pooled connector")
	}
	got, _ := svc.GetConnection(conn.ID)
	if got.Name != "renamed" {
		t.Errorf("name = %s", got.Name)
	}

	if err := svc.DeleteConnection(conn.ID); err != nil {
		t.Fatal(err)
	}
	if pw, _ := secrets.Get(secret.ConnectionKey(conn.ID)); pw != nil {
		t.Error("password survived delete")
	}
	if _, err := svc.Preview(ctx, conn.ID, "products", 1); err == nil {
		t.Error("preview on deleted connection should fail")
	}
}

func TestDeleteProject_DropsConnectionPasswords(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	secrets := secret.NewMemoryStore()
	bindings := service.NewBindingService(storage.NewDBConnectionStore(db), storage.NewQueryResultStore(db), secrets)
	t.Cleanup(bindings.Close)
	projects := service.NewProjectService(storage.NewProjectStore(db), storage.NewPageStore(db), nil, bindings, nil, nil)

	proj, err := projects.CreateProject("Shop", "")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := bindings.CreateConnection(service.CreateDBConnInput{ProjectID: proj.ID, Name: "shop", Driver: "sqlite", Host: seedShop(t), Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	if err := projects.DeleteProject(context.Background(), proj.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := bindings.ListConnections(proj.ID); len(list) != 0 {
		t.Errorf("connections left: %v", list)
	}
	if pw, _ := secrets.Get(secret.ConnectionKey(conn.ID)); pw != nil {
		t.Error("password survived project delete")
	}
}
