package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pagebuilder/internal/app"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/tree"
)

// appendIndex places a node after every existing sibling.
const appendIndex = math.MaxInt32

// editOp is one editing step. The edit subcommands build a single op
// from their arguments; a script file holds a list of them.
type editOp struct {
	Op       string       `yaml:"op"`
	ID       string       `yaml:"id,omitempty"`
	Type     string       `yaml:"type,omitempty"`
	Parent   string       `yaml:"parent,omitempty"`
	Index    *int         `yaml:"index,omitempty"`
	Props    domain.Props `yaml:"props,omitempty"`
	Prop     string       `yaml:"prop,omitempty"`
	Text     string       `yaml:"text,omitempty"`
	Property string       `yaml:"property,omitempty"`
	Value    string       `yaml:"value,omitempty"`
	Viewport string       `yaml:"viewport,omitempty"`

	// As names the component the op creates so later ops can refer to
	// it as "$name".
	As string `yaml:"as,omitempty"`
}

// editScript is the file format of "edit --script":
//
//	page: <page-id>          # optional, defaults to the current page
//	ops:
//	  - op: add
//	    type: Section
//	    as: hero
//	  - op: add
//	    type: Heading
//	    parent: $hero
//	  - op: text
//	    id: $hero
//	    text: Welcome
type editScript struct {
	Page string   `yaml:"page"`
	Ops  []editOp `yaml:"ops"`
}

func loadScript(path string) (*editScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s editScript
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(s.Ops) == 0 {
		return nil, fmt.Errorf("script %s has no ops", path)
	}
	return &s, nil
}

// opResult reports what an op did. ComponentID is set by ops that create
// or select a component.
type opResult struct {
	Op          string `json:"op"`
	ComponentID string `json:"componentId,omitempty"`
}

// runner applies ops to one open session, resolving "$name" references
// to the ids of components created earlier in the same run.
type runner struct {
	app    *app.App
	pageID string
	sess   *editor.Session
	refs   map[string]string
}

func newRunner(a *app.App, pageID string, sess *editor.Session) *runner {
	return &runner{app: a, pageID: pageID, sess: sess, refs: make(map[string]string)}
}

func (r *runner) ref(s string) (string, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	id, ok := r.refs[s[1:]]
	if !ok {
		return "", fmt.Errorf("unknown reference %s", s)
	}
	return id, nil
}

func (r *runner) runAll(ctx context.Context, ops []editOp) ([]opResult, error) {
	results := make([]opResult, 0, len(ops))
	for i, op := range ops {
		res, err := r.run(ctx, op)
		if err != nil {
			return results, fmt.Errorf("op %d (%s): %w", i+1, op.Op, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *runner) run(ctx context.Context, op editOp) (opResult, error) {
	res := opResult{Op: op.Op}

	id, err := r.ref(op.ID)
	if err != nil {
		return res, err
	}
	parent, err := r.ref(op.Parent)
	if err != nil {
		return res, err
	}
	index := appendIndex
	if op.Index != nil {
		index = *op.Index
	}

	switch op.Op {
	case "add":
		if op.Type == "" {
			return res, fmt.Errorf("type is required")
		}
		newID, err := r.app.Editor.AddComponent(r.pageID, domain.ComponentType(op.Type), parent, index)
		if err != nil {
			return res, err
		}
		if len(op.Props) > 0 {
			if err := r.sess.UpdateProps(newID, op.Props); err != nil {
				return res, err
			}
		}
		res.ComponentID = newID
	case "move":
		node, ok := tree.Find(r.sess.Tree(), id)
		if !ok {
			return res, fmt.Errorf("move %s: %w", id, editor.ErrNotFoundInTree)
		}
		err = r.sess.Move(id, node, index, parent)
		res.ComponentID = id
	case "remove":
		err = r.app.Editor.RemoveComponent(r.pageID, id)
	case "delete-selected":
		err = r.app.Editor.DeleteSelected(r.pageID)
	case "props":
		err = r.sess.UpdateProps(id, op.Props)
	case "text":
		prop := op.Prop
		if prop == "" {
			prop = "text"
		}
		err = r.sess.UpdateText(id, prop, op.Text)
	case "style":
		if op.Property == "" {
			return res, fmt.Errorf("property is required")
		}
		err = r.sess.UpdateStyle(id, op.Viewport, op.Property, op.Value)
	case "select":
		if id == "" {
			r.sess.ClearSelection()
			break
		}
		if _, ok := tree.Find(r.sess.Tree(), id); !ok {
			return res, fmt.Errorf("select %s: %w", id, editor.ErrNotFoundInTree)
		}
		r.sess.Select(id)
		res.ComponentID = id
	case "copy":
		err = r.sess.Copy(id)
	case "paste":
		res.ComponentID, err = r.sess.Paste()
	case "duplicate":
		res.ComponentID, err = r.sess.Duplicate(id)
	case "undo":
		err = r.sess.Undo()
	case "redo":
		err = r.sess.Redo()
	default:
		return res, fmt.Errorf("unknown op %q", op.Op)
	}
	if err != nil {
		return res, err
	}
	if op.As != "" {
		if res.ComponentID == "" {
			return res, fmt.Errorf("op %s creates no component to name %q", op.Op, op.As)
		}
		r.refs[op.As] = res.ComponentID
	}
	return res, nil
}
