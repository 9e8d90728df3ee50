package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List the saved revisions of a page, oldest first"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleListRevisions)

	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("Replace the page tree with a saved revision. The restore can be undone and must be saved."),
		mcp.WithString("revisionId", mcp.Description("Revision ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreRevision)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := sess.Undo(); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult("Undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := sess.Redo(); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult("Redone"), nil
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revs, err := s.editor.Revisions(pageID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return jsonResult(revs)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revID := req.GetString("revisionId", "")
	if err := s.editor.RestoreRevision(ctx, pageID, revID); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Revision %s restored on page %s (unsaved)", revID, pageID)), nil
}
