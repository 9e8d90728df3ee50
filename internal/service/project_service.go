package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

var (
	// ErrPageOpen is returned when page metadata is changed while an
	// editor session holds the page.
	ErrPageOpen = errors.New("page is open in an editor session")
	// ErrSlugTaken is returned when a slug is already used in the project.
	ErrSlugTaken = errors.New("slug already used in project")
	// ErrInvalidSlug is returned for a slug with characters a URL path
	// segment should not carry.
	ErrInvalidSlug = errors.New("invalid slug")
)

// ─────────────────────────────────────────────────────────────
// Project Service: business logic for projects and pages
// ─────────────────────────────────────────────────────────────

// OpenPages tells the project service which pages an editor holds.
type OpenPages interface {
	IsOpen(pageID string) bool
}

// ProjectConnections removes the database connections of a deleted
// project. BindingService satisfies it and also drops the passwords.
type ProjectConnections interface {
	ListConnections(projectID string) ([]domain.DatabaseConnection, error)
	DeleteConnection(id string) error
}

// ProjectService manages projects and the metadata of their pages.
type ProjectService struct {
	projects  domain.ProjectStore
	pages     domain.PageCatalog
	revisions domain.RevisionStore
	conns     ProjectConnections
	open      OpenPages
	emitter   EventEmitter
}

// NewProjectService creates a ProjectService. revisions, conns and open
// may be nil.
func NewProjectService(
	projects domain.ProjectStore,
	pages domain.PageCatalog,
	revisions domain.RevisionStore,
	conns ProjectConnections,
	open OpenPages,
	emitter EventEmitter,
) *ProjectService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &ProjectService{
		projects:  projects,
		pages:     pages,
		revisions: revisions,
		conns:     conns,
		open:      open,
		emitter:   emitter,
	}
}

// ── Projects ───────────────────────────────────────────────

func (s *ProjectService) ListProjects() ([]domain.Project, error) {
	return s.projects.ListProjects()
}

func (s *ProjectService) GetProject(id string) (*domain.Project, error) {
	return s.projects.GetProject(id)
}

// CreateProject creates a project. The subdomain defaults to the slug of
// the name.
func (s *ProjectService) CreateProject(name, subdomain string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("create project: name is required")
	}
	if subdomain == "" {
		subdomain = Slugify(name)
	} else if err := checkSlug(subdomain); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	p := &domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Subdomain: subdomain,
	}
	if err := s.projects.CreateProject(p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *ProjectService) RenameProject(id, name string) error {
	p, err := s.projects.GetProject(id)
	if err != nil {
		return err
	}
	p.Name = name
	return s.projects.UpdateProject(p)
}

// DeleteProject removes the project with its pages, their revisions and
// the project's database connections.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.projects.GetProject(id); err != nil {
		return err
	}
	pages, err := s.pages.ListPages(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	for _, p := range pages {
		if s.isOpen(p.ID) {
			return fmt.Errorf("delete project %s: page %s: %w", id, p.ID, ErrPageOpen)
		}
	}
	for _, p := range pages {
		if err := s.removePage(ctx, p.ID); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
	}
	if s.conns != nil {
		conns, err := s.conns.ListConnections(id)
		if err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		for _, c := range conns {
			if err := s.conns.DeleteConnection(c.ID); err != nil {
				return fmt.Errorf("delete project %s: %w", id, err)
			}
		}
	}
	return s.projects.DeleteProject(id)
}

// ── Pages ──────────────────────────────────────────────────

// CreatePageInput carries the fields of a new page. Slug defaults to the
// slug of Title.
type CreatePageInput struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	IsPublic    bool   `json:"isPublic"`
}

func (s *ProjectService) ListPages(ctx context.Context, projectID string) ([]domain.Page, error) {
	return s.pages.ListPages(ctx, projectID)
}

func (s *ProjectService) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	return s.pages.LoadPage(ctx, id)
}

// CreatePage creates an empty page. The first page of a project becomes
// its homepage.
func (s *ProjectService) CreatePage(ctx context.Context, in CreatePageInput) (*domain.Page, error) {
	if _, err := s.projects.GetProject(in.ProjectID); err != nil {
		return nil, err
	}
	existing, err := s.pages.ListPages(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	pageSlug := in.Slug
	if pageSlug == "" {
		pageSlug = uniqueSlug(Slugify(in.Title), existing)
	} else if err := checkSlug(pageSlug); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	} else if slugUsed(pageSlug, "", existing) {
		return nil, fmt.Errorf("create page %q: %w", pageSlug, ErrSlugTaken)
	}

	p := &domain.Page{
		ID:          uuid.New().String(),
		ProjectID:   in.ProjectID,
		Slug:        pageSlug,
		Title:       in.Title,
		Description: in.Description,
		Keywords:    in.Keywords,
		IsPublic:    in.IsPublic,
		IsHomepage:  len(existing) == 0,
		LayoutData:  domain.LayoutData{Content: domain.Tree{}},
	}
	if err := s.pages.CreatePage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PageMetaInput lists the metadata fields to change; nil leaves a field alone.
type PageMetaInput struct {
	Title       *string `json:"title,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// UpdatePageMeta changes page metadata. The page tree is not touched.
func (s *ProjectService) UpdatePageMeta(ctx context.Context, id string, in PageMetaInput) (*domain.Page, error) {
	if s.isOpen(id) {
		return nil, fmt.Errorf("update page %s: %w", id, ErrPageOpen)
	}
	p, err := s.pages.LoadPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != nil && *in.Slug != p.Slug {
		if err := checkSlug(*in.Slug); err != nil {
			return nil, fmt.Errorf("update page %s: %w", id, err)
		}
		siblings, err := s.pages.ListPages(ctx, p.ProjectID)
		if err != nil {
			return nil, err
		}
		if slugUsed(*in.Slug, id, siblings) {
			return nil, fmt.Errorf("update page %s: %w", id, ErrSlugTaken)
		}
		p.Slug = *in.Slug
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Keywords != nil {
		p.Keywords = *in.Keywords
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if err := s.pages.SavePage(ctx, id, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetHomepage makes id the only homepage of its project.
func (s *ProjectService) SetHomepage(ctx context.Context, id string) error {
	target, err := s.pages.LoadPage(ctx, id)
	if err != nil {
		return err
	}
	siblings, err := s.pages.ListPages(ctx, target.ProjectID)
	if err != nil {
		return err
	}
	for _, p := range siblings {
		if p.IsHomepage != (p.ID == id) && s.isOpen(p.ID) {
			return fmt.Errorf("set homepage: page %s: %w", p.ID, ErrPageOpen)
		}
	}
	for _, p := range siblings {
		want := p.ID == id
		if p.IsHomepage == want {
			continue
		}
		full, err := s.pages.LoadPage(ctx, p.ID)
		if err != nil {
			return err
		}
		full.IsHomepage = want
		if err := s.pages.SavePage(ctx, p.ID, full); err != nil {
			return err
		}
	}
	s.emitter.Emit(ctx, "page:homepage", map[string]string{"projectId": target.ProjectID, "pageId": id})
	return nil
}

// DeletePage removes a page and its revisions.
func (s *ProjectService) DeletePage(ctx context.Context, id string) error {
	if s.isOpen(id) {
		return fmt.Errorf("delete page %s: %w", id, ErrPageOpen)
	}
	return s.removePage(ctx, id)
}

func (s *ProjectService) removePage(ctx context.Context, id string) error {
	if s.revisions != nil {
		if err := s.revisions.ClearPage(id); err != nil {
			return fmt.Errorf("clear revisions of %s: %w", id, err)
		}
	}
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, "page:deleted", map[string]string{"pageId": id})
	return nil
}

func (s *ProjectService) isOpen(id string) bool {
	return s.open != nil && s.open.IsOpen(id)
}

// ── Slugs ──────────────────────────────────────────────────

// Slugify normalizes s with the default go-slug rules, so accented
// letters are transliterated. An empty result becomes "page".
func Slugify(s string) string {
	normalized, err := slug.Normalize(s)
	if err != nil || normalized == "" || !slug.IsValid(normalized) {
		return "page"
	}
	return normalized
}

// checkSlug rejects a caller-supplied slug that the default rules would
// not produce.
func checkSlug(value string) error {
	if !slug.IsValid(value) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, value)
	}
	return nil
}

func uniqueSlug(base string, pages []domain.Page) string {
	candidate := base
	for n := 2; slugUsed(candidate, "", pages); n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return candidate
}

func slugUsed(value, exceptID string, pages []domain.Page) bool {
	for _, p := range pages {
		if p.Slug == value && p.ID != exceptID {
			return true
		}
	}
	return false
}

