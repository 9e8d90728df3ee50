package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPageNotFound is returned by a PageStore when the page id does not exist.
var ErrPageNotFound = errors.New("page not found")

// ErrProjectNotFound is returned when the project id does not exist.
var ErrProjectNotFound = errors.New("project not found")

// PersistenceError wraps a failed save or load against a page store.
type PersistenceError struct {
	Op     string // "load" | "save" | "delete"
	PageID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s page %s: %v", e.Op, e.PageID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LayoutData holds the page tree as stored.
type LayoutData struct {
	Content Tree `json:"content"`
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Page struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"` // SEO
	Keywords    string     `json:"keywords"`    // SEO, comma separated
	IsPublic    bool       `json:"isPublic"`
	IsHomepage  bool       `json:"isHomepage"`
	LayoutData  LayoutData `json:"layoutData"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Revision is a snapshot of a page tree recorded on save.
type Revision struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PageStore is the persistence bridge used by editor sessions.
// LoadPage fails with ErrPageNotFound; SavePage failures are *PersistenceError.
type PageStore interface {
	LoadPage(ctx context.Context, pageID string) (*Page, error)
	SavePage(ctx context.Context, pageID string, p *Page) error
}

// PageCatalog extends PageStore with the listing and lifecycle calls
// used by project management.
type PageCatalog interface {
	PageStore
	CreatePage(ctx context.Context, p *Page) error
	ListPages(ctx context.Context, projectID string) ([]Page, error)
	DeletePage(ctx context.Context, pageID string) error
}

type ProjectStore interface {
	CreateProject(p *Project) error
	GetProject(id string) (*Project, error)
	ListProjects() ([]Project, error)
	UpdateProject(p *Project) error
	DeleteProject(id string) error
}

type RevisionStore interface {
	PushRevision(pageID, label, snapshotJSON string) (*Revision, error)
	ListRevisions(pageID string) ([]Revision, error)
	GetRevision(id string) (*Revision, error)
	ClearPage(pageID string) error
}
