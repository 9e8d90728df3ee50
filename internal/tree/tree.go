// Package tree holds the copy-on-write algorithms over a page's component
// forest. No function here mutates its input or panics; every call that
// changes something returns a new tree and leaves the old one intact so
// snapshots held by undo history stay valid.
package tree

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"pagebuilder/internal/domain"
)

// ErrDuplicateID is reported by Validate when an id appears twice.
var ErrDuplicateID = errors.New("duplicate component id")

// missedParents counts InsertAt calls whose parent id did not resolve.
var missedParents atomic.Int64

// MissedParents returns how many inserts were dropped because their
// parent id was not in the tree.
func MissedParents() int64 {
	return missedParents.Load()
}

// Find returns the first node (depth-first, pre-order) with the given id.
// The returned node shares children with the tree and must be treated as
// read-only.
func Find(t domain.Tree, id string) (domain.ComponentNode, bool) {
	for _, n := range t {
		if n.ID == id {
			return n, true
		}
		if found, ok := Find(n.Children, id); ok {
			return found, true
		}
	}
	return domain.ComponentNode{}, false
}

// Locate returns the parent id ("" for root level) and sibling index of id.
func Locate(t domain.Tree, id string) (parentID string, index int, ok bool) {
	return locate(t, "", id)
}

func locate(t domain.Tree, parentID, id string) (string, int, bool) {
	for i, n := range t {
		if n.ID == id {
			return parentID, i, true
		}
		if p, idx, ok := locate(n.Children, n.ID, id); ok {
			return p, idx, true
		}
	}
	return "", 0, false
}

// Remove returns a new tree without the node matching id (and its subtree),
// wherever it occurs. When id is absent the result is structurally equal to t.
func Remove(t domain.Tree, id string) domain.Tree {
	out := make(domain.Tree, 0, len(t))
	for _, n := range t {
		if n.ID == id {
			continue
		}
		if n.Children != nil {
			n.Children = Remove(n.Children, id)
		}
		out = append(out, n)
	}
	return out
}

// InsertAt inserts node as a child of parentID at index, or at root level
// when parentID is empty. The index is clamped to [0, len(siblings)].
// If parentID does not resolve, t is returned unchanged with false; the
// miss is logged and counted so upstream drop-target bugs stay visible.
func InsertAt(t domain.Tree, parentID string, node domain.ComponentNode, index int) (domain.Tree, bool) {
	if parentID == "" {
		return insertSibling(t, node, index), true
	}
	out, ok := insertUnder(t, parentID, node, index)
	if !ok {
		missedParents.Add(1)
		log.Printf("[TREE] insert of %s ignored: parent %s not in tree", node.ID, parentID)
		return t, false
	}
	return out, true
}

func insertUnder(t domain.Tree, parentID string, node domain.ComponentNode, index int) (domain.Tree, bool) {
	for i, n := range t {
		if n.ID == parentID {
			out := copyLevel(t)
			out[i].Children = insertSibling(n.Children, node, index)
			return out, true
		}
		if children, ok := insertUnder(n.Children, parentID, node, index); ok {
			out := copyLevel(t)
			out[i].Children = children
			return out, true
		}
	}
	return t, false
}

func insertSibling(siblings domain.Tree, node domain.ComponentNode, index int) domain.Tree {
	index = clamp(index, 0, len(siblings))
	out := make(domain.Tree, 0, len(siblings)+1)
	out = append(out, siblings[:index]...)
	out = append(out, node)
	out = append(out, siblings[index:]...)
	return out
}

// UpdateByID replaces the node matching id with fn(node). fn receives a
// copy whose props map, styles and children slice are private, so it may
// modify them in place. Ancestors on the path are shallow-copied; all
// other subtrees are shared with t. Returns false when id is absent.
func UpdateByID(t domain.Tree, id string, fn func(domain.ComponentNode) domain.ComponentNode) (domain.Tree, bool) {
	for i, n := range t {
		if n.ID == id {
			out := copyLevel(t)
			out[i] = fn(detach(n))
			return out, true
		}
		if children, ok := UpdateByID(n.Children, id, fn); ok {
			out := copyLevel(t)
			out[i].Children = children
			return out, true
		}
	}
	return t, false
}

// Contains reports whether id is node itself or any of its descendants.
func Contains(node domain.ComponentNode, id string) bool {
	if node.ID == id {
		return true
	}
	for _, c := range node.Children {
		if Contains(c, id) {
			return true
		}
	}
	return false
}

// Walk visits every node pre-order. Returning false from fn skips the
// node's children.
func Walk(t domain.Tree, fn func(n domain.ComponentNode, depth int) bool) {
	walk(t, 0, fn)
}

func walk(t domain.Tree, depth int, fn func(domain.ComponentNode, int) bool) {
	for _, n := range t {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// IDs lists every id in the tree, pre-order.
func IDs(t domain.Tree) []string {
	var ids []string
	Walk(t, func(n domain.ComponentNode, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Validate checks that no id appears twice in t. Structural cycles cannot
// occur with value nodes, so uniqueness is the only thing left to check.
func Validate(t domain.Tree) error {
	seen := make(map[string]struct{})
	var dups []string
	Walk(t, func(n domain.ComponentNode, _ int) bool {
		if _, ok := seen[n.ID]; ok {
			dups = append(dups, n.ID)
		}
		seen[n.ID] = struct{}{}
		return true
	})
	if len(dups) > 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateID, dups)
	}
	return nil
}

// ── helpers ────────────────────────────────────────────────

func copyLevel(t domain.Tree) domain.Tree {
	out := make(domain.Tree, len(t))
	copy(out, t)
	return out
}

// detach gives n its own props map, styles and children slice header.
func detach(n domain.ComponentNode) domain.ComponentNode {
	if n.Props != nil {
		props := make(domain.Props, len(n.Props))
		for k, v := range n.Props {
			props[k] = v
		}
		n.Props = props
	}
	n.Styles = cloneStyles(n.Styles)
	if n.Children != nil {
		n.Children = copyLevel(n.Children)
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
