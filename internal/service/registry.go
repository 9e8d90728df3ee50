package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/identity"
	"pagebuilder/internal/tree"
)

// ErrUnknownComponent is returned when a palette drop names a type no
// plugin is registered for.
var ErrUnknownComponent = errors.New("unknown component type")

// ─────────────────────────────────────────────────────────────
// Component Registry: pluggable component kinds
// ─────────────────────────────────────────────────────────────

// ComponentPlugin describes one kind of component: how a fresh instance
// looks when dropped from the palette and what must happen server-side
// when an instance enters or leaves a page.
type ComponentPlugin interface {
	// Type returns the component type this plugin handles (e.g. "DataTable").
	Type() domain.ComponentType
	// IsContainer reports whether instances may hold children.
	IsContainer() bool
	// DefaultProps returns the props of a freshly inserted instance.
	DefaultProps() domain.Props
	// OnCreate is called after an instance is inserted into a page.
	OnCreate(pageID string, node domain.ComponentNode) error
	// OnDelete is called after an instance is removed from a page.
	OnDelete(pageID string, node domain.ComponentNode) error
}

// MCPToolDef describes a tool that a plugin exposes to the MCP server.
type MCPToolDef struct {
	Name        string                                   // e.g. "datatable_preview"
	Description string                                   // shown to agents
	InputSchema map[string]any                           // JSON Schema for parameters
	Handler     func(params map[string]any) (any, error) // executes the tool
}

// MCPCapablePlugin extends ComponentPlugin with MCP tool declarations.
// The MCP server registers these tools on startup.
type MCPCapablePlugin interface {
	ComponentPlugin
	MCPTools() []MCPToolDef
}

// ComponentRegistry maps component types to their plugins. The tree core
// accepts any type; the registry only matters for palette templates and
// lifecycle hooks.
type ComponentRegistry struct {
	mu      sync.RWMutex
	plugins map[domain.ComponentType]ComponentPlugin
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{plugins: make(map[domain.ComponentType]ComponentPlugin)}
}

// Register adds a plugin to the registry. Panics on duplicate registration.
func (r *ComponentRegistry) Register(p ComponentPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := p.Type()
	if _, exists := r.plugins[t]; exists {
		panic(fmt.Sprintf("component registry: duplicate registration for type %q", t))
	}
	r.plugins[t] = p
}

// Lookup returns the plugin for t.
func (r *ComponentRegistry) Lookup(t domain.ComponentType) (ComponentPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[t]
	return p, ok
}

// Types lists the registered types alphabetically.
func (r *ComponentRegistry) Types() []domain.ComponentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.ComponentType, 0, len(r.plugins))
	for t := range r.plugins {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Template builds a fresh instance of t with a new id and the plugin's
// default props.
func (r *ComponentRegistry) Template(t domain.ComponentType, gen identity.Generator) (domain.ComponentNode, error) {
	p, ok := r.Lookup(t)
	if !ok {
		return domain.ComponentNode{}, fmt.Errorf("template %q: %w", t, ErrUnknownComponent)
	}
	return domain.ComponentNode{
		ID:    gen.NewID(),
		Type:  t,
		Props: tree.CloneProps(p.DefaultProps()),
	}, nil
}

// IsContainer reports whether t may hold children. Unknown types are not
// containers.
func (r *ComponentRegistry) IsContainer(t domain.ComponentType) bool {
	p, ok := r.Lookup(t)
	return ok && p.IsContainer()
}

// OnCreate dispatches a create event for node and every descendant.
func (r *ComponentRegistry) OnCreate(pageID string, node domain.ComponentNode) error {
	return r.dispatch(node, func(p ComponentPlugin, n domain.ComponentNode) error {
		return p.OnCreate(pageID, n)
	})
}

// OnDelete dispatches a delete event for node and every descendant.
func (r *ComponentRegistry) OnDelete(pageID string, node domain.ComponentNode) error {
	return r.dispatch(node, func(p ComponentPlugin, n domain.ComponentNode) error {
		return p.OnDelete(pageID, n)
	})
}

// ForEach iterates all registered plugins. Used by the MCP server to
// register plugin tools.
func (r *ComponentRegistry) ForEach(fn func(ComponentPlugin)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		fn(p)
	}
}

func (r *ComponentRegistry) dispatch(node domain.ComponentNode, fn func(ComponentPlugin, domain.ComponentNode) error) error {
	var errs []error
	tree.Walk(domain.Tree{node}, func(n domain.ComponentNode, _ int) bool {
		if p, ok := r.Lookup(n.Type); ok {
			if err := fn(p, n); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", n.Type, n.ID, err))
			}
		}
		return true
	})
	return errors.Join(errs...)
}
