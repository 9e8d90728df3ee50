package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/service"
)

// registerPluginTools registers the tools declared by plugins that
// implement service.MCPCapablePlugin.
func (s *Server) registerPluginTools() {
	if s.registry == nil {
		return
	}

	s.registry.ForEach(func(p service.ComponentPlugin) {
		mcpPlugin, ok := p.(service.MCPCapablePlugin)
		if !ok {
			return
		}
		for _, toolDef := range mcpPlugin.MCPTools() {
			def := toolDef
			tool := mcp.NewToolWithRawSchema(def.Name, def.Description, schemaJSON(def.InputSchema))
			s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				result, err := def.Handler(req.GetArguments())
				if err != nil {
					return nil, err
				}
				return jsonResult(result)
			})
		}
	})
}
