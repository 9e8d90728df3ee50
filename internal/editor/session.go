// Package editor owns the state of one open page: its component tree,
// the selection, the drag marker, the one-slot clipboard, the unsaved
// changes flag and the undo history. Every operation either applies
// completely or leaves all of that untouched and returns a sentinel.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/identity"
	"pagebuilder/internal/tree"
)

var (
	ErrNotFoundInTree = errors.New("component not found in tree")
	ErrEmptyClipboard = errors.New("clipboard is empty")
	ErrNoSelection    = errors.New("no component selected")
	ErrInvalidMove    = errors.New("cannot move a component inside itself")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
)

// Events passed to the session Listener.
const (
	EventDirty            = "page:dirty"
	EventSaved            = "page:saved"
	EventReloaded         = "page:reloaded"
	EventComponentDeleted = "component:deleted"
	EventSelectionChanged = "selection:changed"
)

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 40

// Listener receives session events. It is called after the session lock
// is released, so it may call back into the session.
type Listener func(event string, data any)

type event struct {
	name string
	data any
}

type snapshot struct {
	label string
	tree  domain.Tree
}

// Session is the editing state for one page. Trees are never mutated in
// place; a new tree replaces the old one on every change, which keeps
// the history snapshots valid without copying them.
type Session struct {
	mu sync.Mutex

	page       domain.Page // metadata; LayoutData is rebuilt from tree on save
	tree       domain.Tree
	selectedID string
	draggedID  string
	clipboard  *domain.ComponentNode
	dirty      bool
	version    uint64 // bumped on every committed change

	undo         []snapshot
	redo         []snapshot
	historyLimit int

	store    domain.PageStore
	gen      identity.Generator
	listener Listener
	pending  []event
}

// Option configures a Session.
type Option func(*Session)

func WithGenerator(g identity.Generator) Option {
	return func(s *Session) { s.gen = g }
}

func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithClipboard seeds the clipboard, e.g. from a previous CLI invocation.
func WithClipboard(n *domain.ComponentNode) Option {
	return func(s *Session) {
		if n != nil {
			c := tree.Clone(*n)
			s.clipboard = &c
		}
	}
}

// WithSelection restores a selection. The id is not checked against the tree.
func WithSelection(id string) Option {
	return func(s *Session) { s.selectedID = id }
}

// NewSession starts a session on an already loaded page.
func NewSession(page *domain.Page, store domain.PageStore, opts ...Option) *Session {
	s := &Session{
		page:         *page,
		tree:         page.LayoutData.Content,
		store:        store,
		gen:          identity.New("comp"),
		historyLimit: DefaultHistoryLimit,
	}
	s.page.LayoutData = domain.LayoutData{}
	if s.tree == nil {
		s.tree = domain.Tree{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := tree.Validate(s.tree); err != nil {
		log.Printf("[EDITOR] page %s loaded with invalid tree: %v", page.ID, err)
	}
	return s
}

// Open loads pageID through the store and starts a session on it.
func Open(ctx context.Context, store domain.PageStore, pageID string, opts ...Option) (*Session, error) {
	page, err := store.LoadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return NewSession(page, store, opts...), nil
}

// ── accessors ──────────────────────────────────────────────

func (s *Session) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.ID
}

// Page returns the page metadata with the current tree as its content.
func (s *Session) Page() domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked()
}

// Tree returns a deep copy of the current tree.
func (s *Session) Tree() domain.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.CloneTree(s.tree)
}

// Dirty reports whether there are changes not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SelectedID returns the raw selection, which may dangle.
func (s *Session) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Selected resolves the selection against the live tree. A dangling
// selection reads as nothing selected.
func (s *Session) Selected() (domain.ComponentNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return domain.ComponentNode{}, false
	}
	n, ok := tree.Find(s.tree, s.selectedID)
	if !ok {
		return domain.ComponentNode{}, false
	}
	return tree.Clone(n), true
}

func (s *Session) DraggedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draggedID
}

// Clipboard returns a copy of the clipboard content.
func (s *Session) Clipboard() (domain.ComponentNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboard == nil {
		return domain.ComponentNode{}, false
	}
	return tree.Clone(*s.clipboard), true
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// ── selection & drag ───────────────────────────────────────

// Select marks id as the component the property panels edit. The id is
// not checked against the tree.
func (s *Session) Select(id string) {
	_ = s.do(func() error {
		s.setSelectionLocked(id)
		return nil
	})
}

func (s *Session) ClearSelection() {
	s.Select("")
}

// BeginDrag records id as being dragged; EndDrag clears it on drop or cancel.
func (s *Session) BeginDrag(id string) {
	s.mu.Lock()
	s.draggedID = id
	s.mu.Unlock()
}

func (s *Session) EndDrag() {
	s.BeginDrag("")
}

// ── history ────────────────────────────────────────────────

// Undo restores the tree before the last change. The selection is left
// alone and may dangle afterwards.
func (s *Session) Undo() error {
	return s.do(func() error {
		if len(s.undo) == 0 {
			return ErrNothingToUndo
		}
		last := s.undo[len(s.undo)-1]
		s.undo = s.undo[:len(s.undo)-1]
		s.redo = append(s.redo, snapshot{label: last.label, tree: s.tree})
		s.tree = last.tree
		s.touchLocked()
		return nil
	})
}

func (s *Session) Redo() error {
	return s.do(func() error {
		if len(s.redo) == 0 {
			return ErrNothingToRedo
		}
		next := s.redo[len(s.redo)-1]
		s.redo = s.redo[:len(s.redo)-1]
		s.undo = append(s.undo, snapshot{label: next.label, tree: s.tree})
		s.tree = next.tree
		s.touchLocked()
		return nil
	})
}

// ── persistence ────────────────────────────────────────────

// Save writes the current tree through the page store. The dirty flag is
// cleared only if the save succeeds and no edit landed while it ran. On
// failure the in-memory state is left exactly as it was.
func (s *Session) Save(ctx context.Context) error {
	_, err := s.SaveSnapshot(ctx)
	return err
}

// SaveSnapshot is Save, returning the page exactly as it was written.
// Edits made while the write runs are not part of it.
func (s *Session) SaveSnapshot(ctx context.Context) (domain.Page, error) {
	s.mu.Lock()
	page := s.pageLocked()
	version := s.version
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return domain.Page{}, &domain.PersistenceError{Op: "save", PageID: page.ID, Err: errors.New("no page store configured")}
	}
	if err := store.SavePage(ctx, page.ID, &page); err != nil {
		var perr *domain.PersistenceError
		if errors.As(err, &perr) {
			return domain.Page{}, err
		}
		return domain.Page{}, &domain.PersistenceError{Op: "save", PageID: page.ID, Err: err}
	}

	err := s.do(func() error {
		s.page.UpdatedAt = page.UpdatedAt
		if s.version == version {
			s.dirty = false
		}
		s.queueLocked(EventSaved, map[string]any{"pageId": page.ID, "stillDirty": s.dirty})
		return nil
	})
	return page, err
}

// Reload replaces the tree with a freshly loaded page and drops history.
// It refuses to discard unsaved work.
func (s *Session) Reload(page *domain.Page) error {
	return s.do(func() error {
		if s.dirty {
			return fmt.Errorf("reload page %s: session has unsaved changes", s.page.ID)
		}
		content := page.LayoutData.Content
		if content == nil {
			content = domain.Tree{}
		}
		s.page = *page
		s.page.LayoutData = domain.LayoutData{}
		s.tree = content
		s.undo, s.redo = nil, nil
		s.version++
		s.queueLocked(EventReloaded, map[string]string{"pageId": page.ID})
		return nil
	})
}

// ── internals ──────────────────────────────────────────────

// do runs fn under the lock and dispatches queued events after unlocking.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		for _, e := range events {
			listener(e.name, e.data)
		}
	}
	return err
}

func (s *Session) queueLocked(name string, data any) {
	s.pending = append(s.pending, event{name: name, data: data})
}

// commitLocked records the current tree in history and installs next.
func (s *Session) commitLocked(label string, next domain.Tree) {
	s.undo = append(s.undo, snapshot{label: label, tree: s.tree})
	if over := len(s.undo) - s.historyLimit; over > 0 {
		s.undo = append([]snapshot(nil), s.undo[over:]...)
	}
	s.redo = nil
	s.tree = next
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.version++
	if !s.dirty {
		s.dirty = true
		s.queueLocked(EventDirty, map[string]string{"pageId": s.page.ID})
	}
}

func (s *Session) setSelectionLocked(id string) {
	if s.selectedID == id {
		return
	}
	s.selectedID = id
	s.queueLocked(EventSelectionChanged, map[string]string{"pageId": s.page.ID, "componentId": id})
}

func (s *Session) pageLocked() domain.Page {
	p := s.page
	p.LayoutData = domain.LayoutData{Content: tree.CloneTree(s.tree)}
	return p
}
