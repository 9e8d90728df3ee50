package plugins

import (
	"context"
	"fmt"
	"strings"

	"pagebuilder/internal/dbclient"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Data kinds (DataTable, Chart)
// ─────────────────────────────────────────────────────────────

// dataPlugin handles components bound to an external table. Deleting an
// instance drops its cached preview, and the kind exposes a preview tool
// to agents.
type dataPlugin struct {
	typ      domain.ComponentType
	defaults domain.Props
	bindings *service.BindingService
}

// NewDataPlugin creates the plugin of a bound data kind. Every instance
// starts with an empty binding next to the given defaults.
func NewDataPlugin(t domain.ComponentType, defaults domain.Props, bindings *service.BindingService) service.MCPCapablePlugin {
	props := domain.Props{service.BindingProp: map[string]any{
		"connectionId": "",
		"table":        "",
		"limit":        dbclient.DefaultPreviewLimit,
	}}
	for k, v := range defaults {
		props[k] = v
	}
	return &dataPlugin{typ: t, defaults: props, bindings: bindings}
}

func (p *dataPlugin) Type() domain.ComponentType { return p.typ }
func (p *dataPlugin) IsContainer() bool          { return false }
func (p *dataPlugin) DefaultProps() domain.Props { return p.defaults }

// OnCreate has nothing to prepare; a fresh instance is not bound yet.
func (p *dataPlugin) OnCreate(string, domain.ComponentNode) error { return nil }

func (p *dataPlugin) OnDelete(_ string, node domain.ComponentNode) error {
	if p.bindings == nil {
		return nil
	}
	if err := p.bindings.ClearPreview(node.ID); err != nil {
		return fmt.Errorf("%s plugin: OnDelete: %w", strings.ToLower(string(p.typ)), err)
	}
	return nil
}

func (p *dataPlugin) MCPTools() []service.MCPToolDef {
	if p.bindings == nil {
		return nil
	}
	name := strings.ToLower(string(p.typ)) + "_preview"
	return []service.MCPToolDef{{
		Name:        name,
		Description: fmt.Sprintf("Preview the rows a %s would show for a connection and table.", p.typ),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"connectionId": map[string]any{"type": "string", "description": "Database connection ID"},
				"table":        map[string]any{"type": "string", "description": "Table or collection name"},
				"limit":        map[string]any{"type": "number", "description": "Maximum rows (default 50)"},
			},
			"required": []string{"connectionId", "table"},
		},
		Handler: func(params map[string]any) (any, error) {
			connID, _ := params["connectionId"].(string)
			table, _ := params["table"].(string)
			limit := 0
			if l, ok := params["limit"].(float64); ok {
				limit = int(l)
			}
			if connID == "" || table == "" {
				return nil, fmt.Errorf("%s: connectionId and table are required", name)
			}
			return p.bindings.Preview(context.Background(), connID, table, limit)
		},
	}}
}
