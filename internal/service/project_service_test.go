package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-slug"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Home":               "home",
		"About Us!":          "about-us",
		"  pricing -- 2024 ": "pricing-2024",
		"!!!":                "page",
		"":                   "page",
	}
	for in, want := range tests {
		if got := service.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify_Transliterates(t *testing.T) {
	tests := []struct {
		in    string
		words []string
	}{
		{"Café Menü", []string{"cafe", "menu"}},
		{"Über uns", []string{"uber", "uns"}},
	}
	for _, tt := range tests {
		got := service.Slugify(tt.in)
		if !slug.IsValid(got) {
			t.Errorf("Slugify(%q) = %q, not a valid slug", tt.in, got)
		}
		for _, w := range tt.words {
			if !strings.Contains(got, w) {
				t.Errorf("Slugify(%q) = %q, want it to contain %q", tt.in, got, w)
			}
		}
	}
	if got := service.Slugify("日本語"); got == "" || !slug.IsValid(got) {
		t.Errorf("Slugify(日本語) = %q", got)
	}
}

func TestProjectService_RejectsInvalidSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.projects.CreateProject("Shop", "My Shop!"); !errors.Is(err, service.ErrInvalidSlug) {
		t.Errorf("subdomain err = %v", err)
	}
	proj, err := f.projects.CreateProject("Shop", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "x", Slug: "Über uns"}); !errors.Is(err, service.ErrInvalidSlug) {
		t.Errorf("page slug err = %v", err)
	}
	p, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "Café Menü"})
	if err != nil {
		t.Fatal(err)
	}
	bad := "a/b"
	if _, err := f.projects.UpdatePageMeta(ctx, p.ID, service.PageMetaInput{Slug: &bad}); !errors.Is(err, service.ErrInvalidSlug) {
		t.Errorf("meta slug err = %v", err)
	}
}

func TestProjectService_CreatePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	proj, err := f.projects.CreateProject("My Shop", "")
	if err != nil {
		t.Fatal(err)
	}
	if proj.Subdomain != "my-shop" {
		t.Errorf("subdomain = %q", proj.Subdomain)
	}

	first, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "About"})
	if err != nil {
		t.Fatal(err)
	}
	second, _ := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "About"})
	if !first.IsHomepage || second.IsHomepage {
		t.Errorf("homepage flags = %v %v, only the first page is the homepage", first.IsHomepage, second.IsHomepage)
	}
	if first.Slug != "about" || second.Slug != "about-2" {
		t.Errorf("slugs = %s %s", first.Slug, second.Slug)
	}

	if _, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "x", Slug: "about"}); !errors.Is(err, service.ErrSlugTaken) {
		t.Errorf("expected ErrSlugTaken, got %v", err)
	}
	if _, err := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: "nope", Title: "x"}); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := f.projects.CreateProject(" ", ""); err == nil {
		t.Error("expected error for blank project name")
	}
}

func TestProjectService_SetHomepage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	proj, _ := f.projects.CreateProject("Site", "")
	home, _ := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "Home"})
	blog, _ := f.projects.CreatePage(ctx, service.CreatePageInput{ProjectID: proj.ID, Title: "Blog"})

	if err := f.projects.SetHomepage(ctx, blog.ID); err != nil {
		t.Fatal(err)
	}
	pages, _ := f.projects.ListPages(ctx, proj.ID)
	homepages := 0
	for _, p := range pages {
		if p.IsHomepage {
			homepages++
			if p.ID != blog.ID {
				t.Errorf("homepage is %s, want %s", p.ID, blog.ID)
			}
		}
	}
	if homepages != 1 {
		t.Fatalf("project has %d homepages", homepages)
	}

	// The page losing the flag is open: refuse rather than clobber the session.
	_, _ = f.editor.Open(ctx, blog.ID)
	if err := f.projects.SetHomepage(ctx, home.ID); !errors.Is(err, service.ErrPageOpen) {
		t.Errorf("expected ErrPageOpen, got %v", err)
	}
}

func TestProjectService_UpdatePageMeta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, sampleTree())

	title, kw, public := "Welcome", "shop,shoes", true
	got, err := f.projects.UpdatePageMeta(ctx, p.ID, service.PageMetaInput{Title: &title, Keywords: &kw, IsPublic: &public})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Welcome" || got.Keywords != "shop,shoes" || !got.IsPublic || got.Slug != p.Slug {
		t.Errorf("page = %+v", got)
	}
	stored, _ := f.pages.LoadPage(ctx, p.ID)
	if len(stored.LayoutData.Content) != 1 {
		t.Error("metadata update lost the tree")
	}

	_, _ = f.editor.Open(ctx, p.ID)
	if _, err := f.projects.UpdatePageMeta(ctx, p.ID, service.PageMetaInput{Title: &title}); !errors.Is(err, service.ErrPageOpen) {
		t.Errorf("expected ErrPageOpen, got %v", err)
	}
}

func TestProjectService_DeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, sampleTree())
	if _, err := f.revs.PushRevision(p.ID, "save", "[]"); err != nil {
		t.Fatal(err)
	}

	if err := f.projects.DeleteProject(ctx, p.ProjectID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pages.LoadPage(ctx, p.ID); !errors.Is(err, domain.ErrPageNotFound) {
		t.Errorf("page survived project delete: %v", err)
	}
	if revs, _ := f.revs.ListRevisions(p.ID); len(revs) != 0 {
		t.Errorf("revisions survived: %d", len(revs))
	}
	if _, err := f.projects.GetProject(p.ProjectID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("project survived: %v", err)
	}
	if f.emitter.Count("page:deleted") != 1 {
		t.Errorf("page:deleted events = %d", f.emitter.Count("page:deleted"))
	}
}
