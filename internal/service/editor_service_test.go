package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/tree"
)

func sampleTree() domain.Tree {
	return domain.Tree{
		{ID: "sec", Type: domain.ComponentSection, Children: domain.Tree{
			{ID: "txt", Type: domain.ComponentText, Props: domain.Props{"text": "hello"}},
		}},
	}
}

func registerKinds(r *service.ComponentRegistry) (*recordingPlugin, *recordingPlugin) {
	section := &recordingPlugin{typ: domain.ComponentSection, container: true}
	table := &recordingPlugin{typ: domain.ComponentDataTable, props: domain.Props{"pageSize": 10}}
	r.Register(section)
	r.Register(table)
	r.Register(&recordingPlugin{typ: domain.ComponentText, props: domain.Props{"text": "Text"}})
	return section, table
}

func TestEditorService_OpenReturnsSameSession(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, sampleTree())
	ctx := context.Background()

	a, err := f.editor.Open(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := f.editor.Open(ctx, p.ID)
	if a != b {
		t.Fatal("second Open created a new session")
	}
	if !f.editor.IsOpen(p.ID) || len(f.editor.OpenPageIDs()) != 1 {
		t.Error("page should be listed as open")
	}
	if _, err := f.editor.Open(ctx, "missing"); !errors.Is(err, domain.ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestEditorService_AddComponent(t *testing.T) {
	f := newFixture(t)
	_, table := registerKinds(f.registry)
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(context.Background(), p.ID)

	id, err := f.editor.AddComponent(p.ID, domain.ComponentDataTable, "sec", 0)
	if err != nil {
		t.Fatal(err)
	}
	sec, _ := tree.Find(sess.Tree(), "sec")
	if sec.Children[0].ID != id || sec.Children[0].Props["pageSize"] != 10 {
		t.Fatalf("inserted node = %+v", sec.Children[0])
	}
	if sess.SelectedID() != id {
		t.Error("new component should be selected")
	}
	if len(table.created) != 1 || table.created[0] != id {
		t.Errorf("create hook calls = %v", table.created)
	}

	if _, err := f.editor.AddComponent(p.ID, domain.ComponentDataTable, "txt", 0); !errors.Is(err, service.ErrNotContainer) {
		t.Errorf("expected ErrNotContainer, got %v", err)
	}
	if _, err := f.editor.AddComponent(p.ID, "Carousel", "", 0); !errors.Is(err, service.ErrUnknownComponent) {
		t.Errorf("expected ErrUnknownComponent, got %v", err)
	}
	if _, err := f.editor.AddComponent(p.ID, domain.ComponentText, "ghost", 0); !errors.Is(err, editor.ErrNotFoundInTree) {
		t.Errorf("expected ErrNotFoundInTree, got %v", err)
	}
	if _, err := f.editor.AddComponent("closed", domain.ComponentText, "", 0); !errors.Is(err, service.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
}

func TestEditorService_RemoveRunsDeleteHooks(t *testing.T) {
	f := newFixture(t)
	_, table := registerKinds(f.registry)
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(context.Background(), p.ID)

	id, _ := f.editor.AddComponent(p.ID, domain.ComponentDataTable, "sec", 1)
	if err := f.editor.RemoveComponent(p.ID, "sec"); err != nil {
		t.Fatal(err)
	}
	if len(sess.Tree()) != 0 {
		t.Fatalf("tree = %v", tree.IDs(sess.Tree()))
	}
	if len(table.deleted) != 1 || table.deleted[0] != id {
		t.Errorf("delete hook calls = %v", table.deleted)
	}

	if err := f.editor.DeleteSelected(p.ID); !errors.Is(err, editor.ErrNoSelection) {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}
}

func TestEditorService_SaveRecordsRevisionAndRestore(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, sampleTree())
	ctx := context.Background()
	sess, _ := f.editor.Open(ctx, p.ID)

	rev, err := f.editor.Save(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rev == nil || rev.Label != service.LabelSave {
		t.Fatalf("revision = %+v", rev)
	}

	if err := sess.UpdateText("txt", "text", "changed"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.editor.Save(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.pages.LoadPage(ctx, p.ID)
	txt, _ := tree.Find(stored.LayoutData.Content, "txt")
	if txt.Props["text"] != "changed" {
		t.Fatalf("stored text = %v", txt.Props["text"])
	}

	revs, _ := f.editor.Revisions(p.ID)
	if len(revs) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revs))
	}

	if err := f.editor.RestoreRevision(ctx, p.ID, rev.ID); err != nil {
		t.Fatal(err)
	}
	txt, _ = tree.Find(sess.Tree(), "txt")
	if txt.Props["text"] != "hello" || !sess.Dirty() {
		t.Errorf("restore: text = %v dirty = %v", txt.Props["text"], sess.Dirty())
	}
	if err := sess.Undo(); err != nil {
		t.Fatalf("restore should be undoable: %v", err)
	}

	other := f.page(t, nil)
	if err := f.editor.RestoreRevision(ctx, other.ID, rev.ID); err == nil {
		t.Error("restoring a revision onto another page should fail")
	}
}

func TestEditorService_CloseRefusesDirty(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(context.Background(), p.ID)
	_ = sess.UpdateText("txt", "text", "x")

	if err := f.editor.Close(p.ID, false); !errors.Is(err, service.ErrUnsavedChanges) {
		t.Fatalf("expected ErrUnsavedChanges, got %v", err)
	}
	if err := f.editor.Close(p.ID, true); err != nil {
		t.Fatal(err)
	}
	if f.editor.IsOpen(p.ID) {
		t.Error("page still open after discard")
	}
	if err := f.editor.Close(p.ID, true); !errors.Is(err, service.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
}

func TestEditorService_AutosaveNowSavesDirtyOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clean := f.page(t, sampleTree())
	dirty := f.page(t, sampleTree())
	_, _ = f.editor.Open(ctx, clean.ID)
	sess, _ := f.editor.Open(ctx, dirty.ID)
	_ = sess.UpdateText("txt", "text", "autosaved")

	if n := f.editor.AutosaveNow(ctx); n != 1 {
		t.Fatalf("saved %d pages, want 1", n)
	}
	if sess.Dirty() {
		t.Error("autosaved session still dirty")
	}
	revs, _ := f.editor.Revisions(dirty.ID)
	if len(revs) != 1 || revs[0].Label != service.LabelAutosave {
		t.Errorf("revisions = %+v", revs)
	}
	if n := f.editor.AutosaveNow(ctx); n != 0 {
		t.Errorf("second tick saved %d pages", n)
	}
}

func TestEditorService_ScheduledAutosave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(ctx, p.ID)

	if err := f.editor.StartAutosave(ctx, "every now and then"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := f.editor.StartAutosave(ctx, "@every 1s"); err != nil {
		t.Fatal(err)
	}
	defer f.editor.Shutdown(ctx)

	_ = sess.UpdateText("txt", "text", "tick")
	deadline := time.Now().Add(5 * time.Second)
	for sess.Dirty() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if sess.Dirty() {
		t.Fatal("scheduled autosave never ran")
	}
}

func TestEditorService_HandleExternalChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(ctx, p.ID)

	// Unchanged content is ignored, history survives.
	_ = sess.UpdateText("txt", "text", "mine")
	_, _ = f.editor.Save(ctx, p.ID)
	if err := f.editor.HandleExternalChange(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if !sess.CanUndo() {
		t.Fatal("echo of our own save dropped history")
	}

	outside, _ := f.pages.LoadPage(ctx, p.ID)
	outside.LayoutData.Content = domain.Tree{{ID: "new", Type: domain.ComponentHeading}}
	_ = f.pages.SavePage(ctx, p.ID, outside)

	if err := f.editor.HandleExternalChange(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if ids := tree.IDs(sess.Tree()); len(ids) != 1 || ids[0] != "new" {
		t.Fatalf("clean session not reloaded: %v", ids)
	}

	_ = sess.UpdateText("new", "text", "unsaved")
	outside.LayoutData.Content = domain.Tree{}
	_ = f.pages.SavePage(ctx, p.ID, outside)
	if err := f.editor.HandleExternalChange(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if len(sess.Tree()) != 1 || f.emitter.Count("page:conflict") != 1 {
		t.Errorf("dirty session should be kept and a conflict emitted")
	}

	if err := f.editor.HandleExternalChange(ctx, "not-open"); err != nil {
		t.Errorf("closed page: %v", err)
	}
}

func TestEditorService_SessionEventsReachEmitter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, sampleTree())
	sess, _ := f.editor.Open(ctx, p.ID)

	_ = sess.UpdateText("txt", "text", "x")
	_, _ = f.editor.Save(ctx, p.ID)

	if f.emitter.Count(editor.EventDirty) != 1 || f.emitter.Count(editor.EventSaved) != 1 {
		t.Errorf("events = %+v", f.emitter.Events)
	}
}

// gatedStore holds SavePage until release is closed.
type gatedStore struct {
	domain.PageStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) SavePage(ctx context.Context, id string, p *domain.Page) error {
	close(g.entered)
	<-g.release
	return g.PageStore.SavePage(ctx, id, p)
}

func TestEditorService_RevisionMatchesWrittenPage(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, sampleTree())
	ctx := context.Background()

	gated := &gatedStore{PageStore: f.pages, entered: make(chan struct{}), release: make(chan struct{})}
	svc := service.NewEditorService(gated, f.revs, f.registry, f.emitter, nil)
	sess, err := svc.Open(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.UpdateText("txt", "text", "saved"); err != nil {
		t.Fatal(err)
	}

	type result struct {
		rev *domain.Revision
		err error
	}
	done := make(chan result, 1)
	go func() {
		rev, err := svc.Save(ctx, p.ID)
		done <- result{rev, err}
	}()

	<-gated.entered
	if err := sess.UpdateText("txt", "text", "late"); err != nil {
		t.Fatal(err)
	}
	close(gated.release)

	res := <-done
	if res.err != nil || res.rev == nil {
		t.Fatalf("save = %+v, %v", res.rev, res.err)
	}
	var snap domain.Tree
	if err := json.Unmarshal([]byte(res.rev.SnapshotJSON), &snap); err != nil {
		t.Fatal(err)
	}
	txt, _ := tree.Find(snap, "txt")
	if txt.Props["text"] != "saved" {
		t.Errorf("revision text = %v, want the written %q", txt.Props["text"], "saved")
	}
	if !sess.Dirty() {
		t.Error("edit made during the write should leave the session dirty")
	}
}
