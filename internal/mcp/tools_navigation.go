package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/service"
)

func (s *Server) registerNavigationTools() {
	// ── list_projects ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects"),
	), s.handleListProjects)

	// ── create_project ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project"),
		mcp.WithString("name", mcp.Description("Project name"), mcp.Required()),
		mcp.WithString("subdomain", mcp.Description("Subdomain (optional, derived from the name)")),
	), s.handleCreateProject)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages in a project"),
		mcp.WithString("projectId",
			mcp.Description("ID of the project"),
			mcp.Required(),
		),
	), s.handleListPages)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new empty page in a project and make it active"),
		mcp.WithString("projectId", mcp.Description("ID of the project"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
		mcp.WithString("slug", mcp.Description("URL slug (optional, derived from the title)")),
	), s.handleCreatePage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Open a page and make it active. Tools that accept pageId default to it."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)
}

func (s *Server) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.projects.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return jsonResult(projects)
}

func (s *Server) handleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.projects.CreateProject(req.GetString("name", ""), req.GetString("subdomain", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("projectId", "")
	if projectID == "" {
		return nil, fmt.Errorf("projectId is required")
	}
	pages, err := s.projects.ListPages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	type pageSummary struct {
		ID         string `json:"id"`
		Slug       string `json:"slug"`
		Title      string `json:"title"`
		IsHomepage bool   `json:"isHomepage"`
		Components int    `json:"rootComponents"`
	}
	out := make([]pageSummary, len(pages))
	for i, p := range pages {
		out[i] = pageSummary{ID: p.ID, Slug: p.Slug, Title: p.Title, IsHomepage: p.IsHomepage, Components: len(p.LayoutData.Content)}
	}
	return jsonResult(out)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("projectId", "")
	title := req.GetString("title", "")
	if projectID == "" || title == "" {
		return nil, fmt.Errorf("projectId and title are required")
	}
	page, err := s.projects.CreatePage(ctx, service.CreatePageInput{
		ProjectID: projectID,
		Title:     title,
		Slug:      req.GetString("slug", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if _, err := s.editor.Open(ctx, page.ID); err != nil {
		return nil, err
	}
	s.setActivePage(page.ID)
	return jsonResult(page)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if _, err := s.editor.Open(ctx, pageID); err != nil {
		return nil, err
	}
	s.setActivePage(pageID)
	return textResult(fmt.Sprintf("Active page set to %s", pageID)), nil
}
