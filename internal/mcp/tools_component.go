package mcpserver

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/tree"
)

// appendIndex places a node after every existing sibling.
const appendIndex = math.MaxInt32

func (s *Server) registerComponentTools() {
	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the component tree of a page with its selection and unsaved-changes flag"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetTree)

	s.mcp.AddTool(mcp.NewTool("list_component_types",
		mcp.WithDescription("List the component types that can be added, with their default props"),
	), s.handleListComponentTypes)

	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Insert a new component from the palette and select it"),
		mcp.WithString("type", mcp.Description("Component type (see list_component_types)"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Container to insert into (optional, root if omitted)")),
		mcp.WithNumber("index", mcp.Description("Position among the siblings (optional, appends if omitted)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleAddComponent)

	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move a component to another position or parent"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("New parent (optional, root if omitted)")),
		mcp.WithNumber("index", mcp.Description("Position among the new siblings (optional, appends if omitted)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleMoveComponent)

	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("Delete a component and all of its children"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveComponent)

	s.mcp.AddTool(mcp.NewTool("delete_selected",
		mcp.WithDescription("Delete the selected component and all of its children"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSelected)

	s.mcp.AddTool(mcp.NewTool("update_props",
		mcp.WithDescription("Merge props into a component. Keys not in the patch are kept."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithObject("props", mcp.Description("Props to set"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateProps)

	s.mcp.AddTool(mcp.NewTool("update_text",
		mcp.WithDescription("Set the text of a component"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New text"), mcp.Required()),
		mcp.WithString("prop", mcp.Description("Prop holding the text (default \"text\")")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateText)

	s.mcp.AddTool(mcp.NewTool("update_style",
		mcp.WithDescription("Set a style property of a component. The value \"default\" or an empty value removes it."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("property", mcp.Description("CSS property, e.g. color"), mcp.Required()),
		mcp.WithString("value", mcp.Description("Property value")),
		mcp.WithString("viewport", mcp.Description("Viewport override, e.g. mobile (optional, base styles if omitted)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateStyle)

	s.mcp.AddTool(mcp.NewTool("select_component",
		mcp.WithDescription("Select a component; omit componentId to clear the selection"),
		mcp.WithString("componentId", mcp.Description("Component ID")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSelectComponent)

	s.mcp.AddTool(mcp.NewTool("duplicate_component",
		mcp.WithDescription("Insert a copy with fresh ids right after the component"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleDuplicateComponent)

	s.mcp.AddTool(mcp.NewTool("copy_component",
		mcp.WithDescription("Copy a component to the clipboard"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleCopyComponent)

	s.mcp.AddTool(mcp.NewTool("paste_component",
		mcp.WithDescription("Paste the clipboard after the selected component, or at the end of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handlePasteComponent)

	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Save the page and record a revision"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSavePage)
}

type treeView struct {
	PageID     string      `json:"pageId"`
	Dirty      bool        `json:"dirty"`
	SelectedID string      `json:"selectedId,omitempty"`
	Tree       domain.Tree `json:"tree"`
}

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(treeView{PageID: pageID, Dirty: sess.Dirty(), SelectedID: sess.SelectedID(), Tree: sess.Tree()})
}

func (s *Server) handleListComponentTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type kind struct {
		Type         domain.ComponentType `json:"type"`
		Container    bool                 `json:"container"`
		DefaultProps domain.Props         `json:"defaultProps"`
	}
	var kinds []kind
	for _, t := range s.registry.Types() {
		p, _ := s.registry.Lookup(t)
		kinds = append(kinds, kind{Type: t, Container: p.IsContainer(), DefaultProps: p.DefaultProps()})
	}
	return jsonResult(kinds)
}

func (s *Server) handleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, _, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	typ := req.GetString("type", "")
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	id, err := s.editor.AddComponent(pageID, domain.ComponentType(typ), req.GetString("parentId", ""), intArg(args, "index", appendIndex))
	if err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return jsonResult(map[string]string{"componentId": id})
}

func (s *Server) handleMoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	node, ok := tree.Find(sess.Tree(), id)
	if !ok {
		return nil, fmt.Errorf("move %s: %w", id, editor.ErrNotFoundInTree)
	}
	if err := sess.Move(id, node, intArg(args, "index", appendIndex), req.GetString("parentId", "")); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Component %s moved", id)), nil
}

func (s *Server) handleRemoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, _, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	if err := s.editor.RemoveComponent(pageID, id); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Component %s removed", id)), nil
}

func (s *Server) handleDeleteSelected(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := sess.SelectedID()
	if err := s.editor.DeleteSelected(pageID); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Component %s removed", id)), nil
}

func (s *Server) handleUpdateProps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	patch, err := propsArg(args, "props")
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	if err := sess.UpdateProps(id, patch); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Component %s updated", id)), nil
}

func (s *Server) handleUpdateText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	if err := sess.UpdateText(id, req.GetString("prop", "text"), req.GetString("text", "")); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Component %s updated", id)), nil
}

func (s *Server) handleUpdateStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	prop := req.GetString("property", "")
	if prop == "" {
		return nil, fmt.Errorf("property is required")
	}
	if err := sess.UpdateStyle(id, req.GetString("viewport", ""), prop, req.GetString("value", "")); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Style %s of %s updated", prop, id)), nil
}

func (s *Server) handleSelectComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	if id == "" {
		sess.ClearSelection()
		return textResult("Selection cleared"), nil
	}
	n, ok := tree.Find(sess.Tree(), id)
	if !ok {
		return nil, fmt.Errorf("select %s: %w", id, editor.ErrNotFoundInTree)
	}
	sess.Select(id)
	return jsonResult(n)
}

func (s *Server) handleDuplicateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	newID, err := sess.Duplicate(req.GetString("componentId", ""))
	if err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return jsonResult(map[string]string{"componentId": newID})
}

func (s *Server) handleCopyComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	if err := sess.Copy(id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Component %s copied", id)), nil
}

func (s *Server) handlePasteComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	newID, err := sess.Paste()
	if err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return jsonResult(map[string]string{"componentId": newID})
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, _, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	rev, err := s.editor.Save(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if rev == nil {
		return textResult(fmt.Sprintf("Page %s saved", pageID)), nil
	}
	return jsonResult(map[string]string{"pageId": pageID, "revisionId": rev.ID})
}
