// Package plugins registers the built-in component kinds.
package plugins

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Static kinds (no server-side state)
// ─────────────────────────────────────────────────────────────

// staticPlugin is a kind whose instances live entirely in the page tree.
type staticPlugin struct {
	typ       domain.ComponentType
	container bool
	defaults  domain.Props
}

func (p *staticPlugin) Type() domain.ComponentType { return p.typ }
func (p *staticPlugin) IsContainer() bool          { return p.container }
func (p *staticPlugin) DefaultProps() domain.Props { return p.defaults }

func (p *staticPlugin) OnCreate(string, domain.ComponentNode) error { return nil }
func (p *staticPlugin) OnDelete(string, domain.ComponentNode) error { return nil }

func static(t domain.ComponentType, defaults domain.Props) service.ComponentPlugin {
	return &staticPlugin{typ: t, defaults: defaults}
}

func container(t domain.ComponentType) service.ComponentPlugin {
	return &staticPlugin{typ: t, container: true, defaults: domain.Props{}}
}

// Builtins returns the plugins of every built-in kind. bindings may be
// nil, in which case data kinds keep no preview cache.
func Builtins(bindings *service.BindingService) []service.ComponentPlugin {
	return []service.ComponentPlugin{
		static(domain.ComponentButton, domain.Props{"text": "Button", "variant": "primary"}),
		static(domain.ComponentText, domain.Props{"text": "Text"}),
		static(domain.ComponentHeading, domain.Props{"text": "Heading", "level": 2}),
		static(domain.ComponentParagraph, domain.Props{"text": "Paragraph"}),
		static(domain.ComponentImage, domain.Props{"src": "", "alt": ""}),
		static(domain.ComponentLink, domain.Props{"text": "Link", "href": "#"}),
		static(domain.ComponentInput, domain.Props{"name": "", "placeholder": "", "inputType": "text"}),
		static(domain.ComponentCheckbox, domain.Props{"label": "Checkbox", "checked": false}),
		static(domain.ComponentSelect, domain.Props{"placeholder": "", "options": []any{}}),
		container(domain.ComponentContainer),
		container(domain.ComponentRow),
		container(domain.ComponentColumn),
		container(domain.ComponentSection),
		container(domain.ComponentForm),
		NewDataPlugin(domain.ComponentDataTable, domain.Props{"pageSize": 10}, bindings),
		NewDataPlugin(domain.ComponentChart, domain.Props{"chartType": "bar", "xKey": "", "yKey": ""}, bindings),
	}
}

// RegisterBuiltins registers every built-in kind with r.
func RegisterBuiltins(r *service.ComponentRegistry, bindings *service.BindingService) {
	for _, p := range Builtins(bindings) {
		r.Register(p)
	}
}
