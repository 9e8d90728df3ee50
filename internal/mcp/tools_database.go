package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/tree"
)

func (s *Server) registerDatabaseTools() {
	s.mcp.AddTool(mcp.NewTool("list_db_connections",
		mcp.WithDescription("List the database connections of a project"),
		mcp.WithString("projectId", mcp.Description("Project ID (optional, all connections if omitted)")),
	), s.handleListDBConnections)

	s.mcp.AddTool(mcp.NewTool("introspect_database",
		mcp.WithDescription("Get schema information (tables and columns) of a database connection"),
		mcp.WithString("connectionId", mcp.Description("Database connection ID"), mcp.Required()),
	), s.handleIntrospectDatabase)

	s.mcp.AddTool(mcp.NewTool("bind_component",
		mcp.WithDescription("Bind a DataTable or Chart to a table and fetch its preview"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("connectionId", mcp.Description("Database connection ID"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table or collection name"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum preview rows (default 50)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleBindComponent)

	s.mcp.AddTool(mcp.NewTool("preview_component",
		mcp.WithDescription("Refresh and return the rows a bound component shows"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handlePreviewComponent)
}

func (s *Server) handleListDBConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.bindings.ListConnections(req.GetString("projectId", ""))
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return jsonResult(conns)
}

func (s *Server) handleIntrospectDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}
	schema, err := s.bindings.Introspect(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	return jsonResult(schema)
}

func (s *Server) handleBindComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	binding := domain.Binding{
		ConnectionID: req.GetString("connectionId", ""),
		Table:        req.GetString("table", ""),
		Limit:        intArg(args, "limit", 0),
	}
	if binding.ConnectionID == "" || binding.Table == "" {
		return nil, fmt.Errorf("connectionId and table are required")
	}
	if err := sess.UpdateProps(id, domain.Props{service.BindingProp: map[string]any{
		"connectionId": binding.ConnectionID,
		"table":        binding.Table,
		"limit":        binding.Limit,
	}}); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, pageID)

	node, _ := tree.Find(sess.Tree(), id)
	preview, err := s.bindings.PreviewComponent(ctx, node)
	if err != nil {
		return textResult(fmt.Sprintf("Component %s bound, but the preview failed: %v", id, err)), nil
	}
	return jsonResult(preview)
}

func (s *Server) handlePreviewComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id := req.GetString("componentId", "")
	node, ok := tree.Find(sess.Tree(), id)
	if !ok {
		return nil, fmt.Errorf("preview %s: %w", id, editor.ErrNotFoundInTree)
	}
	preview, err := s.bindings.PreviewComponent(ctx, node)
	if err != nil {
		return nil, err
	}
	return jsonResult(preview)
}
