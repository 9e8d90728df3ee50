package tree

import (
	"reflect"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/identity"
)

// Clone returns a deep copy of node with the same ids. Nothing in the
// copy aliases the original, including nested prop values.
func Clone(node domain.ComponentNode) domain.ComponentNode {
	n := node
	n.Props = CloneProps(node.Props)
	n.Styles = cloneStyles(node.Styles)
	if node.Children != nil {
		n.Children = make(domain.Tree, len(node.Children))
		for i, c := range node.Children {
			n.Children[i] = Clone(c)
		}
	}
	return n
}

// CloneTree deep-copies every root of t.
func CloneTree(t domain.Tree) domain.Tree {
	if t == nil {
		return nil
	}
	out := make(domain.Tree, len(t))
	for i, n := range t {
		out[i] = Clone(n)
	}
	return out
}

// CloneWithFreshIDs deep-copies node, assigning a new id from gen to the
// root and to every descendant.
func CloneWithFreshIDs(node domain.ComponentNode, gen identity.Generator) domain.ComponentNode {
	n := Clone(node)
	reassign(&n, gen)
	return n
}

func reassign(n *domain.ComponentNode, gen identity.Generator) {
	n.ID = gen.NewID()
	for i := range n.Children {
		reassign(&n.Children[i], gen)
	}
}

// Equal reports structural equality, ignoring identity and treating nil
// and empty collections as the same.
func Equal(a, b domain.Tree) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !nodeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b domain.ComponentNode) bool {
	if a.ID != b.ID || a.Type != b.Type {
		return false
	}
	if len(a.Props) != 0 || len(b.Props) != 0 {
		if !reflect.DeepEqual(a.Props, b.Props) {
			return false
		}
	}
	if !stylesEqual(a.Styles, b.Styles) {
		return false
	}
	return Equal(a.Children, b.Children)
}

func stylesEqual(a, b *domain.StylesData) bool {
	if a == nil {
		a = &domain.StylesData{}
	}
	if b == nil {
		b = &domain.StylesData{}
	}
	if a.Mode != b.Mode || len(a.ActiveProperties) != len(b.ActiveProperties) {
		return false
	}
	for i := range a.ActiveProperties {
		if a.ActiveProperties[i] != b.ActiveProperties[i] {
			return false
		}
	}
	if len(a.Base) != 0 || len(b.Base) != 0 {
		if !reflect.DeepEqual(a.Base, b.Base) {
			return false
		}
	}
	if len(a.Viewports) != 0 || len(b.Viewports) != 0 {
		if !reflect.DeepEqual(a.Viewports, b.Viewports) {
			return false
		}
	}
	return true
}

// CloneProps deep-copies a props map.
func CloneProps(p domain.Props) domain.Props {
	if p == nil {
		return nil
	}
	out := make(domain.Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes produced by encoding/json.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case domain.Props:
		return CloneProps(val)
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

func cloneStyles(s *domain.StylesData) *domain.StylesData {
	if s == nil {
		return nil
	}
	out := &domain.StylesData{Mode: s.Mode}
	if s.ActiveProperties != nil {
		out.ActiveProperties = append([]string(nil), s.ActiveProperties...)
	}
	out.Base = cloneStringMap(s.Base)
	if s.Viewports != nil {
		out.Viewports = make(map[string]map[string]string, len(s.Viewports))
		for vp, m := range s.Viewports {
			out.Viewports[vp] = cloneStringMap(m)
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
