package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/identity"
	"pagebuilder/internal/tree"
)

var (
	ErrSessionNotOpen = errors.New("page is not open")
	ErrUnsavedChanges = errors.New("page has unsaved changes")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrNotContainer   = errors.New("component cannot hold children")
)

// Revision labels.
const (
	LabelSave     = "save"
	LabelAutosave = "autosave"
)

// ─────────────────────────────────────────────────────────────
// Editor Service: open editor sessions and their persistence
// ─────────────────────────────────────────────────────────────

// EditorService keeps one editor.Session per open page. It adds what a
// single session does not know about: component templates and plugin
// hooks, revisions on save, scheduled autosave and reloads after
// external changes.
type EditorService struct {
	pages     domain.PageStore
	revisions domain.RevisionStore
	registry  *ComponentRegistry
	emitter   EventEmitter
	gen       identity.Generator
	opts      []editor.Option

	mu       sync.Mutex
	sessions map[string]*editor.Session

	saving    saveGuard
	cronSched *cron.Cron
}

// NewEditorService creates an EditorService. revisions and registry may
// be nil. sessionOpts are applied to every session it opens.
func NewEditorService(
	pages domain.PageStore,
	revisions domain.RevisionStore,
	registry *ComponentRegistry,
	emitter EventEmitter,
	gen identity.Generator,
	sessionOpts ...editor.Option,
) *EditorService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if registry == nil {
		registry = NewComponentRegistry()
	}
	if gen == nil {
		gen = identity.New("comp")
	}
	return &EditorService{
		pages:     pages,
		revisions: revisions,
		registry:  registry,
		emitter:   emitter,
		gen:       gen,
		opts:      sessionOpts,
		sessions:  make(map[string]*editor.Session),
	}
}

// ── Sessions ───────────────────────────────────────────────

// Open returns the session for pageID, loading the page if it is not
// open yet. extra options only apply when a new session is created.
func (s *EditorService) Open(ctx context.Context, pageID string, extra ...editor.Option) (*editor.Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[pageID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	opts := append([]editor.Option{editor.WithGenerator(s.gen)}, s.opts...)
	opts = append(opts, extra...)
	opts = append(opts, editor.WithListener(func(event string, data any) {
		s.emitter.Emit(context.Background(), event, data)
	}))
	sess, err := editor.Open(ctx, s.pages, pageID, opts...)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", pageID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[pageID]; ok {
		return existing, nil
	}
	s.sessions[pageID] = sess
	log.Printf("[EDITOR] opened page %s", pageID)
	return sess, nil
}

// Session returns the open session for pageID.
func (s *EditorService) Session(pageID string) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[pageID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", pageID, ErrSessionNotOpen)
	}
	return sess, nil
}

// IsOpen implements OpenPages.
func (s *EditorService) IsOpen(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[pageID]
	return ok
}

// OpenPageIDs lists open pages in id order.
func (s *EditorService) OpenPageIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close drops the session for pageID. A dirty session is kept unless
// discard is set.
func (s *EditorService) Close(pageID string, discard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[pageID]
	if !ok {
		return fmt.Errorf("%s: %w", pageID, ErrSessionNotOpen)
	}
	if sess.Dirty() && !discard {
		return fmt.Errorf("close %s: %w", pageID, ErrUnsavedChanges)
	}
	delete(s.sessions, pageID)
	log.Printf("[EDITOR] closed page %s", pageID)
	return nil
}

// ── Component lifecycle ────────────────────────────────────

// AddComponent inserts a fresh instance of componentType under parentID
// ("" for root) at index and selects it. The parent must be a container
// when its type is registered.
func (s *EditorService) AddComponent(pageID string, componentType domain.ComponentType, parentID string, index int) (string, error) {
	sess, err := s.Session(pageID)
	if err != nil {
		return "", err
	}
	if parentID != "" {
		parent, ok := tree.Find(sess.Tree(), parentID)
		if !ok {
			return "", fmt.Errorf("add %s under %s: %w", componentType, parentID, editor.ErrNotFoundInTree)
		}
		if _, known := s.registry.Lookup(parent.Type); known && !s.registry.IsContainer(parent.Type) {
			return "", fmt.Errorf("add %s under %s (%s): %w", componentType, parentID, parent.Type, ErrNotContainer)
		}
	}

	node, err := s.registry.Template(componentType, s.gen)
	if err != nil {
		return "", err
	}
	if err := sess.Move("", node, index, parentID); err != nil {
		return "", err
	}
	sess.Select(node.ID)

	if err := s.registry.OnCreate(pageID, node); err != nil {
		log.Printf("[EDITOR] create hook for %s on page %s: %v", node.ID, pageID, err)
	}
	return node.ID, nil
}

// RemoveComponent deletes id and its subtree and runs the delete hooks
// of every removed node.
func (s *EditorService) RemoveComponent(pageID, id string) error {
	sess, err := s.Session(pageID)
	if err != nil {
		return err
	}
	node, _ := tree.Find(sess.Tree(), id)
	if err := sess.Remove(id); err != nil {
		return err
	}
	s.afterDelete(pageID, node)
	return nil
}

// DeleteSelected deletes the selected component of pageID.
func (s *EditorService) DeleteSelected(pageID string) error {
	sess, err := s.Session(pageID)
	if err != nil {
		return err
	}
	node, _ := sess.Selected()
	if err := sess.DeleteSelected(); err != nil {
		return err
	}
	s.afterDelete(pageID, node)
	return nil
}

func (s *EditorService) afterDelete(pageID string, node domain.ComponentNode) {
	if node.ID == "" {
		return
	}
	if err := s.registry.OnDelete(pageID, node); err != nil {
		log.Printf("[EDITOR] delete hook for %s on page %s: %v", node.ID, pageID, err)
	}
}

// ── Save + revisions ───────────────────────────────────────

// Save writes pageID through the page store and records a revision.
func (s *EditorService) Save(ctx context.Context, pageID string) (*domain.Revision, error) {
	return s.save(ctx, pageID, LabelSave)
}

func (s *EditorService) save(ctx context.Context, pageID, label string) (*domain.Revision, error) {
	sess, err := s.Session(pageID)
	if err != nil {
		return nil, err
	}
	if !s.saving.TryLock(pageID) {
		return nil, fmt.Errorf("save %s: %w", pageID, ErrSaveInProgress)
	}
	defer s.saving.Unlock(pageID)

	saved, err := sess.SaveSnapshot(ctx)
	if err != nil {
		log.Printf("[EDITOR] save page %s failed: %v", pageID, err)
		return nil, err
	}
	if s.revisions == nil {
		return nil, nil
	}

	data, err := json.Marshal(saved.LayoutData.Content)
	if err != nil {
		log.Printf("[EDITOR] encode revision of %s: %v", pageID, err)
		return nil, nil
	}
	rev, err := s.revisions.PushRevision(pageID, label, string(data))
	if err != nil {
		log.Printf("[EDITOR] record revision of %s: %v", pageID, err)
		return nil, nil
	}
	return rev, nil
}

// Revisions lists the revisions of pageID, oldest first.
func (s *EditorService) Revisions(pageID string) ([]domain.Revision, error) {
	if s.revisions == nil {
		return nil, nil
	}
	return s.revisions.ListRevisions(pageID)
}

// RestoreRevision replaces the tree of pageID with a recorded snapshot.
// The restore is an ordinary undoable edit; the page must be saved to
// persist it.
func (s *EditorService) RestoreRevision(ctx context.Context, pageID, revisionID string) error {
	if s.revisions == nil {
		return fmt.Errorf("restore %s: no revision store configured", revisionID)
	}
	rev, err := s.revisions.GetRevision(revisionID)
	if err != nil {
		return err
	}
	if rev.PageID != pageID {
		return fmt.Errorf("restore %s: revision belongs to page %s", revisionID, rev.PageID)
	}
	var t domain.Tree
	if err := json.Unmarshal([]byte(rev.SnapshotJSON), &t); err != nil {
		return fmt.Errorf("restore %s: decode snapshot: %w", revisionID, err)
	}
	sess, err := s.Open(ctx, pageID)
	if err != nil {
		return err
	}
	return sess.ReplaceTree("restore", t)
}

// ── Autosave ───────────────────────────────────────────────

// StartAutosave saves dirty sessions on the given cron schedule
// ("@every 30s", "*/5 * * * *").
func (s *EditorService) StartAutosave(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.AutosaveNow(ctx) }); err != nil {
		return fmt.Errorf("autosave: invalid schedule %q: %w", spec, err)
	}
	s.mu.Lock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	s.cronSched = c
	s.mu.Unlock()
	c.Start()
	log.Printf("[EDITOR] autosave scheduled %q", spec)
	return nil
}

// AutosaveNow saves every dirty session whose previous save has
// finished, and returns how many were saved.
func (s *EditorService) AutosaveNow(ctx context.Context) int {
	saved := 0
	for _, id := range s.OpenPageIDs() {
		sess, err := s.Session(id)
		if err != nil || !sess.Dirty() {
			continue
		}
		if s.saving.Saving(id) {
			log.Printf("[EDITOR] autosave: page %s still saving, skipped", id)
			continue
		}
		if _, err := s.save(ctx, id, LabelAutosave); err != nil {
			if !errors.Is(err, ErrSaveInProgress) {
				s.emitter.Emit(ctx, "page:autosave-failed", map[string]string{"pageId": id, "error": err.Error()})
			}
			continue
		}
		saved++
	}
	return saved
}

// Shutdown stops the autosave schedule and waits for running saves.
func (s *EditorService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	s.saving.WaitAll(ctx)
}

// ── External changes ───────────────────────────────────────

// HandleExternalChange reloads the session of pageID after the page was
// changed outside this process. Dirty sessions keep their state and a
// "page:conflict" event is emitted instead. Changes that match the
// session's tree, such as the echo of our own save, are ignored.
func (s *EditorService) HandleExternalChange(ctx context.Context, pageID string) error {
	if inv, ok := s.pages.(interface{ Invalidate(string) }); ok {
		inv.Invalidate(pageID)
	}
	sess, err := s.Session(pageID)
	if err != nil {
		return nil
	}
	if s.saving.Saving(pageID) {
		return nil
	}

	page, err := s.pages.LoadPage(ctx, pageID)
	if err != nil {
		if errors.Is(err, domain.ErrPageNotFound) {
			s.emitter.Emit(ctx, "page:removed", map[string]string{"pageId": pageID})
			return nil
		}
		return err
	}
	if sameContent(page.LayoutData.Content, sess.Tree()) && page.Title == sess.Page().Title {
		return nil
	}
	if sess.Dirty() {
		log.Printf("[EDITOR] page %s changed on disk while it has unsaved edits", pageID)
		s.emitter.Emit(ctx, "page:conflict", map[string]string{"pageId": pageID})
		return nil
	}
	return sess.Reload(page)
}

// sameContent compares trees in their stored form, so numbers decoded
// as float64 match the ints they were written from.
func sameContent(a, b domain.Tree) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

// Registry exposes the component registry for palette listings.
func (s *EditorService) Registry() *ComponentRegistry {
	return s.registry
}
