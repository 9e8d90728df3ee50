package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	projectsURI    = "pagebuilder://projects"
	pageTreePrefix = "pagebuilder://page/"
	pageTreeSuffix = "/tree"
)

func (s *Server) registerResources() {
	// ── pagebuilder://projects ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		projectsURI,
		"All Projects",
		mcp.WithMIMEType("application/json"),
	), s.handleProjectsResource)

	// ── pagebuilder://page/{pageId}/tree ───────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageTreePrefix+"{pageId}"+pageTreeSuffix,
			"Component Tree of a Page",
		),
		s.handlePageTreeResource,
	)
}

func (s *Server) handleProjectsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projects, err := s.projects.ListProjects()
	if err != nil {
		return nil, err
	}

	type projectSummary struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Subdomain string `json:"subdomain"`
	}

	summaries := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, projectSummary{ID: p.ID, Name: p.Name, Subdomain: p.Subdomain})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      projectsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handlePageTreeResource serves the open session's tree when the page is
// being edited, so agents see unsaved changes, and the stored tree
// otherwise.
func (s *Server) handlePageTreeResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := pageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	var view treeView
	if sess, err := s.editor.Session(pageID); err == nil {
		view = treeView{PageID: pageID, Dirty: sess.Dirty(), SelectedID: sess.SelectedID(), Tree: sess.Tree()}
	} else {
		page, err := s.projects.GetPage(ctx, pageID)
		if err != nil {
			return nil, err
		}
		view = treeView{PageID: pageID, Tree: page.LayoutData.Content}
	}

	data, _ := json.MarshalIndent(view, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// pageIDFromURI extracts the page id from "pagebuilder://page/{id}/tree".
func pageIDFromURI(uri string) string {
	if !strings.HasPrefix(uri, pageTreePrefix) || !strings.HasSuffix(uri, pageTreeSuffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, pageTreePrefix), pageTreeSuffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
