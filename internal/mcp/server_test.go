package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/plugins"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *service.MockEmitter) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pages := storage.NewPageStore(db)
	revs := storage.NewRevisionStore(db)
	registry := service.NewComponentRegistry()
	plugins.RegisterBuiltins(registry, nil)

	emitter := &service.MockEmitter{}
	editor := service.NewEditorService(pages, revs, registry, emitter, nil)
	projects := service.NewProjectService(storage.NewProjectStore(db), pages, revs, storage.NewDBConnectionStore(db), editor, emitter)

	return New(Deps{Emitter: emitter, Editor: editor, Projects: projects}), emitter
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) string {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("tool call %v: %v", args, err)
	}
	return res.Content[0].(mcp.TextContent).Text
}

func decode[T any](t *testing.T, text string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return v
}

// createPage runs create_project and create_page, leaving the page active.
func createPage(t *testing.T, s *Server) string {
	t.Helper()
	proj := decode[domain.Project](t, call(t, s.handleCreateProject, map[string]any{"name": "Shop"}))
	page := decode[domain.Page](t, call(t, s.handleCreatePage, map[string]any{"projectId": proj.ID, "title": "Home"}))
	return page.ID
}

func TestToolsEditActivePage(t *testing.T) {
	s, emitter := newTestServer(t)
	pageID := createPage(t, s)

	sec := decode[map[string]string](t, call(t, s.handleAddComponent, map[string]any{"type": "Section"}))["componentId"]
	btn := decode[map[string]string](t, call(t, s.handleAddComponent, map[string]any{
		"type": "Button", "parentId": sec, "index": float64(0),
	}))["componentId"]

	call(t, s.handleUpdateText, map[string]any{"componentId": btn, "text": "Buy"})
	call(t, s.handleUpdateProps, map[string]any{"componentId": btn, "props": `{"href":"/buy"}`})
	call(t, s.handleUpdateStyle, map[string]any{"componentId": btn, "property": "color", "value": "red"})

	view := decode[treeView](t, call(t, s.handleGetTree, nil))
	if view.PageID != pageID || !view.Dirty {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Tree) != 1 || len(view.Tree[0].Children) != 1 {
		t.Fatalf("tree = %+v", view.Tree)
	}
	got := view.Tree[0].Children[0]
	if got.Props["text"] != "Buy" || got.Props["href"] != "/buy" || got.Styles == nil || got.Styles.Base["color"] != "red" {
		t.Errorf("button = %+v", got)
	}
	if view.SelectedID != btn {
		t.Errorf("selected = %s, want the added button %s", view.SelectedID, btn)
	}

	if n := emitter.Count("mcp:tree-changed"); n != 5 {
		t.Errorf("tree-changed events = %d, want 5", n)
	}

	call(t, s.handleUndo, nil)
	view = decode[treeView](t, call(t, s.handleGetTree, nil))
	if st := view.Tree[0].Children[0].Styles; st != nil && st.Base["color"] != "" {
		t.Error("undo should revert the style change")
	}

	out := decode[map[string]string](t, call(t, s.handleSavePage, nil))
	if out["revisionId"] == "" {
		t.Errorf("save result = %v", out)
	}
	if decode[treeView](t, call(t, s.handleGetTree, nil)).Dirty {
		t.Error("page should be clean after save_page")
	}
}

func TestToolsCopyPasteDuplicate(t *testing.T) {
	s, _ := newTestServer(t)
	createPage(t, s)

	txt := decode[map[string]string](t, call(t, s.handleAddComponent, map[string]any{"type": "Text"}))["componentId"]
	dup := decode[map[string]string](t, call(t, s.handleDuplicateComponent, map[string]any{"componentId": txt}))["componentId"]
	if dup == "" || dup == txt {
		t.Fatalf("duplicate id = %q", dup)
	}

	call(t, s.handleCopyComponent, map[string]any{"componentId": txt})
	call(t, s.handleSelectComponent, map[string]any{})
	pasted := decode[map[string]string](t, call(t, s.handlePasteComponent, nil))["componentId"]

	view := decode[treeView](t, call(t, s.handleGetTree, nil))
	ids := []string{view.Tree[0].ID, view.Tree[1].ID, view.Tree[2].ID}
	if ids[0] != txt || ids[1] != dup || ids[2] != pasted {
		t.Errorf("order = %v, want [%s %s %s]", ids, txt, dup, pasted)
	}

	call(t, s.handleRemoveComponent, map[string]any{"componentId": dup})
	if n := len(decode[treeView](t, call(t, s.handleGetTree, nil)).Tree); n != 2 {
		t.Errorf("root components = %d after remove, want 2", n)
	}
}

func TestTools_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.CallToolRequest
	if _, err := s.handleGetTree(context.Background(), req); err == nil {
		t.Error("expected error without an active page")
	}

	createPage(t, s)
	txt := decode[map[string]string](t, call(t, s.handleAddComponent, map[string]any{"type": "Text"}))["componentId"]

	cases := []struct {
		name string
		h    func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
	}{
		{"unknown type", s.handleAddComponent, map[string]any{"type": "Marquee"}},
		{"non-container parent", s.handleAddComponent, map[string]any{"type": "Text", "parentId": txt}},
		{"missing node", s.handleRemoveComponent, map[string]any{"componentId": "nope"}},
		{"props not an object", s.handleUpdateProps, map[string]any{"componentId": txt, "props": float64(1)}},
		{"move into itself", s.handleMoveComponent, map[string]any{"componentId": txt, "parentId": txt}},
		{"paste empty clipboard", s.handlePasteComponent, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req mcp.CallToolRequest
			req.Params.Arguments = tc.args
			if _, err := tc.h(context.Background(), req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestToolsDeleteSelected(t *testing.T) {
	s, _ := newTestServer(t)
	createPage(t, s)
	id := decode[map[string]string](t, call(t, s.handleAddComponent, map[string]any{"type": "Button"}))["componentId"]

	call(t, s.handleSelectComponent, nil)
	var req mcp.CallToolRequest
	if _, err := s.handleDeleteSelected(context.Background(), req); err == nil {
		t.Fatal("expected error with nothing selected")
	}

	call(t, s.handleSelectComponent, map[string]any{"componentId": id})
	call(t, s.handleDeleteSelected, nil)
	view := decode[treeView](t, call(t, s.handleGetTree, nil))
	if len(view.Tree) != 0 || view.SelectedID != "" {
		t.Errorf("after delete: %+v", view)
	}
}

func TestPageTreeResource(t *testing.T) {
	s, _ := newTestServer(t)
	pageID := createPage(t, s)
	call(t, s.handleAddComponent, map[string]any{"type": "Heading"})

	var req mcp.ReadResourceRequest
	req.Params.URI = pageTreePrefix + pageID + pageTreeSuffix
	contents, err := s.handlePageTreeResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	view := decode[treeView](t, contents[0].(mcp.TextResourceContents).Text)
	if len(view.Tree) != 1 || view.Tree[0].Type != domain.ComponentHeading || !view.Dirty {
		t.Errorf("resource view = %+v", view)
	}

	req.Params.URI = "pagebuilder://page/"
	if _, err := s.handlePageTreeResource(context.Background(), req); err == nil {
		t.Error("expected error for a URI without page id")
	}
}

func TestPageIDFromURI(t *testing.T) {
	tests := map[string]string{
		"pagebuilder://page/abc/tree":   "abc",
		"pagebuilder://page/a/b/tree":   "",
		"pagebuilder://projects":        "",
		"notes://page/abc/tree":         "",
		"pagebuilder://page/abc/blocks": "",
	}
	for uri, want := range tests {
		if got := pageIDFromURI(uri); got != want {
			t.Errorf("pageIDFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestPrompts(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"connectionId": "c1"}
	res, err := s.handleDataDashboardPrompt(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := res.Messages[0].Content.(mcp.TextContent).Text
	if !strings.Contains(text, `connectionId "c1"`) || !strings.Contains(text, "bind_component") {
		t.Errorf("prompt text = %s", text)
	}
}
