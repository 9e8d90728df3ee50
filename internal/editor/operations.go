package editor

import (
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

// ── structural edits ───────────────────────────────────────

// Move places node at targetIndex under parentID ("" for root). When
// componentID is set the existing node is removed first, so targetIndex
// addresses the sibling list as it looks after the removal. With an
// empty componentID node is a fresh insert, e.g. a palette drop.
// The drag marker is cleared on success.
func (s *Session) Move(componentID string, node domain.ComponentNode, targetIndex int, parentID string) error {
	return s.do(func() error {
		t := s.tree
		if componentID != "" {
			existing, ok := tree.Find(t, componentID)
			if !ok {
				return fmt.Errorf("move %s: %w", componentID, ErrNotFoundInTree)
			}
			if parentID != "" && tree.Contains(existing, parentID) {
				return fmt.Errorf("move %s under %s: %w", componentID, parentID, ErrInvalidMove)
			}
			t = tree.Remove(t, componentID)
		}
		if parentID != "" && tree.Contains(node, parentID) {
			return fmt.Errorf("move %s under %s: %w", node.ID, parentID, ErrInvalidMove)
		}
		if err := tree.Validate(append(domain.Tree{node}, t...)); err != nil {
			return fmt.Errorf("move %s: %w", node.ID, err)
		}

		next, ok := tree.InsertAt(t, parentID, node, targetIndex)
		if !ok {
			return fmt.Errorf("move %s: parent %s: %w", node.ID, parentID, ErrNotFoundInTree)
		}
		s.commitLocked("move", next)
		s.draggedID = ""
		return nil
	})
}

// Remove deletes id and its subtree. The selection is cleared when it
// pointed into the removed subtree.
func (s *Session) Remove(id string) error {
	return s.do(func() error {
		return s.removeLocked(id)
	})
}

// DeleteSelected removes the selected component and clears the selection.
func (s *Session) DeleteSelected() error {
	return s.do(func() error {
		id := s.selectedID
		if id == "" {
			return ErrNoSelection
		}
		if err := s.removeLocked(id); err != nil {
			return err
		}
		s.queueLocked(EventComponentDeleted, map[string]string{"pageId": s.page.ID, "componentId": id})
		return nil
	})
}

func (s *Session) removeLocked(id string) error {
	node, ok := tree.Find(s.tree, id)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFoundInTree)
	}
	s.commitLocked("remove", tree.Remove(s.tree, id))
	if s.selectedID != "" && tree.Contains(node, s.selectedID) {
		s.setSelectionLocked("")
	}
	return nil
}

// ── props ──────────────────────────────────────────────────

// UpdateProps shallow-merges patch into the component's props.
func (s *Session) UpdateProps(id string, patch domain.Props) error {
	return s.do(func() error {
		next, ok := tree.UpdateByID(s.tree, id, func(n domain.ComponentNode) domain.ComponentNode {
			if n.Props == nil {
				n.Props = make(domain.Props, len(patch))
			}
			for k, v := range tree.CloneProps(patch) {
				n.Props[k] = v
			}
			return n
		})
		if !ok {
			return fmt.Errorf("update props of %s: %w", id, ErrNotFoundInTree)
		}
		s.commitLocked("props", next)
		return nil
	})
}

// UpdateText sets a single text-valued prop.
func (s *Session) UpdateText(id, prop, text string) error {
	return s.do(func() error {
		next, ok := tree.UpdateByID(s.tree, id, func(n domain.ComponentNode) domain.ComponentNode {
			if n.Props == nil {
				n.Props = make(domain.Props, 1)
			}
			n.Props[prop] = text
			return n
		})
		if !ok {
			return fmt.Errorf("update %s of %s: %w", prop, id, ErrNotFoundInTree)
		}
		s.commitLocked("text", next)
		return nil
	})
}

// UpdateStyle sets one style property for the base layer (viewport "") or
// a named viewport. A value of "" or DefaultStyleValue removes it.
func (s *Session) UpdateStyle(id, viewport, prop, value string) error {
	return s.do(func() error {
		next, ok := tree.UpdateByID(s.tree, id, func(n domain.ComponentNode) domain.ComponentNode {
			n.Styles = applyStyle(n.Styles, viewport, prop, value)
			return n
		})
		if !ok {
			return fmt.Errorf("update style %s of %s: %w", prop, id, ErrNotFoundInTree)
		}
		s.commitLocked("style", next)
		return nil
	})
}

// ReplaceTree installs a whole tree, as when restoring a revision. The
// new tree goes through history like any other edit.
func (s *Session) ReplaceTree(label string, t domain.Tree) error {
	if err := tree.Validate(t); err != nil {
		return fmt.Errorf("replace tree: %w", err)
	}
	if t == nil {
		t = domain.Tree{}
	}
	return s.do(func() error {
		s.commitLocked(label, tree.CloneTree(t))
		return nil
	})
}

// ── clipboard ──────────────────────────────────────────────

// Copy snapshots id's subtree into the clipboard. Later edits to the
// original do not reach the snapshot.
func (s *Session) Copy(id string) error {
	return s.do(func() error {
		node, ok := tree.Find(s.tree, id)
		if !ok {
			return fmt.Errorf("copy %s: %w", id, ErrNotFoundInTree)
		}
		snap := tree.Clone(node)
		s.clipboard = &snap
		return nil
	})
}

// Paste inserts a fresh-id clone of the clipboard right after the
// selected component, or at the end of the root level when nothing
// resolvable is selected. The clone becomes the selection. The clipboard
// itself is kept so repeated pastes produce further distinct clones.
func (s *Session) Paste() (string, error) {
	var newID string
	err := s.do(func() error {
		if s.clipboard == nil {
			return ErrEmptyClipboard
		}
		clone := tree.CloneWithFreshIDs(*s.clipboard, s.gen)

		parentID, index := "", len(s.tree)
		if s.selectedID != "" {
			if p, i, ok := tree.Locate(s.tree, s.selectedID); ok {
				parentID, index = p, i+1
			}
		}
		next, ok := tree.InsertAt(s.tree, parentID, clone, index)
		if !ok {
			return fmt.Errorf("paste: %w", ErrNotFoundInTree)
		}
		s.commitLocked("paste", next)
		s.setSelectionLocked(clone.ID)
		newID = clone.ID
		return nil
	})
	return newID, err
}

// Duplicate inserts a fresh-id clone of id right after it and selects it.
func (s *Session) Duplicate(id string) (string, error) {
	var newID string
	err := s.do(func() error {
		node, ok := tree.Find(s.tree, id)
		if !ok {
			return fmt.Errorf("duplicate %s: %w", id, ErrNotFoundInTree)
		}
		parentID, index, _ := tree.Locate(s.tree, id)
		clone := tree.CloneWithFreshIDs(node, s.gen)

		next, ok := tree.InsertAt(s.tree, parentID, clone, index+1)
		if !ok {
			return fmt.Errorf("duplicate %s: %w", id, ErrNotFoundInTree)
		}
		s.commitLocked("duplicate", next)
		s.setSelectionLocked(clone.ID)
		newID = clone.ID
		return nil
	})
	return newID, err
}
