package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// fixture wires the services over a temp SQLite database.
type fixture struct {
	db       *storage.DB
	pages    *storage.PageStore
	revs     *storage.RevisionStore
	registry *service.ComponentRegistry
	emitter  *service.MockEmitter
	editor   *service.EditorService
	projects *service.ProjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		pages:    storage.NewPageStore(db),
		revs:     storage.NewRevisionStore(db),
		registry: service.NewComponentRegistry(),
		emitter:  &service.MockEmitter{},
	}
	f.editor = service.NewEditorService(f.pages, f.revs, f.registry, f.emitter, nil)
	f.projects = service.NewProjectService(
		storage.NewProjectStore(db), f.pages, f.revs, storage.NewDBConnectionStore(db), f.editor, f.emitter,
	)
	return f
}

// page creates a project with one page holding t.
func (f *fixture) page(t *testing.T, content domain.Tree) *domain.Page {
	t.Helper()
	ctx := context.Background()
	proj, err := f.projects.CreateProject("Site", "")
	if err != nil {
		t.Fatal(err)
	}
	p, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "Home"})
	if err != nil {
		t.Fatal(err)
	}
	p.LayoutData.Content = content
	if err := f.pages.SavePage(ctx, p.ID, p); err != nil {
		t.Fatal(err)
	}
	return p
}

// ─────────────────────────────────────────────────────────────
// saveGuard tests
// ─────────────────────────────────────────────────────────────

func TestSaveGuard_TryLock(t *testing.T) {
	var g service.ExportedSaveGuard

	if !g.TryLock("page-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("page-1") {
		t.Fatal("expected second TryLock for same page to fail")
	}
	if !g.Saving("page-1") || g.Saving("page-2") {
		t.Fatal("Saving reports wrong pages")
	}
	if !g.TryLock("page-2") {
		t.Fatal("expected TryLock for different page to succeed")
	}
	g.Unlock("page-1")
	g.Unlock("page-2")

	if !g.TryLock("page-1") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("page-1")
}

func TestSaveGuard_WaitAll(t *testing.T) {
	var g service.ExportedSaveGuard

	if !g.TryLock("page-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("page-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// Emitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "page:saved", map[string]string{"pageId": "p"})
	m.Emit(ctx, "page:dirty", nil)
	m.Emit(ctx, "page:saved", nil)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "page:saved" {
		t.Errorf("expected 'page:saved', got %q", m.Events[0].Event)
	}
	if m.Count("page:saved") != 2 {
		t.Errorf("Count = %d, want 2", m.Count("page:saved"))
	}
}

func TestLogEmitter_AcceptsUnencodableData(t *testing.T) {
	var e service.EventEmitter = service.LogEmitter{}
	e.Emit(context.Background(), "x", func() {})
	e.Emit(context.Background(), "y", map[string]int{"n": 1})
}
