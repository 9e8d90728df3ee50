// Package mcpserver exposes the page editor to AI agents over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
)

// Server is the MCP server for the page builder. It exposes the editing
// operations as tools, page trees as resources and a few authoring
// prompts.
type Server struct {
	mcp     *server.MCPServer
	emitter service.EventEmitter

	editor   *service.EditorService
	projects *service.ProjectService
	bindings *service.BindingService
	registry *service.ComponentRegistry

	mu           sync.Mutex
	activePageID string // set by set_active_page
}

// Deps holds the services the MCP server drives.
type Deps struct {
	Emitter  service.EventEmitter
	Editor   *service.EditorService
	Projects *service.ProjectService
	Bindings *service.BindingService // optional
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	s := &Server{
		emitter:  emitter,
		editor:   deps.Editor,
		projects: deps.Projects,
		bindings: deps.Bindings,
		registry: deps.Editor.Registry(),
	}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerNavigationTools()
	s.registerComponentTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	if s.bindings != nil {
		s.registerDatabaseTools()
	}
	s.registerPluginTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

// emitTreeChanged notifies listeners that an agent edited a page.
func (s *Server) emitTreeChanged(ctx context.Context, pageID string) {
	s.emitter.Emit(ctx, "mcp:tree-changed", map[string]string{"pageId": pageID})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(b bool) *bool { return &b }

// resolvePageID returns the pageId argument or falls back to the active page.
func (s *Server) resolvePageID(args map[string]any) (string, error) {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != "" {
		return s.activePageID, nil
	}
	return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

// session resolves the page of a tool call and opens its editor session.
func (s *Server) session(ctx context.Context, args map[string]any) (string, *editor.Session, error) {
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return "", nil, err
	}
	sess, err := s.editor.Open(ctx, pageID)
	if err != nil {
		return "", nil, err
	}
	return pageID, sess, nil
}

func (s *Server) setActivePage(pageID string) {
	s.mu.Lock()
	s.activePageID = pageID
	s.mu.Unlock()
}
