package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/domain"
)

type editFlags struct {
	page   string
	dryRun bool
	script string
}

// editOutput is what edit commands print: the ops that ran and the
// resulting tree.
type editOutput struct {
	PageID     string      `json:"pageId"`
	Results    []opResult  `json:"results"`
	SelectedID string      `json:"selectedId,omitempty"`
	RevisionID string      `json:"revisionId,omitempty"`
	Saved      bool        `json:"saved"`
	Tree       domain.Tree `json:"tree"`
}

func newEditCmd(o *options) *cobra.Command {
	ef := &editFlags{}

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the component tree of a page",
		Long: `Edit the component tree of a page. Each subcommand opens the page, applies
one change and saves it, recording a revision. Use --script to apply a
YAML list of ops in one session, where undo and redo work across steps and
"$name" refers to components created earlier in the script.`,
		Example: strings.TrimSpace(`
  pagebuilder edit add Section
  pagebuilder edit add Button --parent <section-id> --index 0
  pagebuilder edit props <id> href=/pricing variant=secondary
  pagebuilder edit style <id> color red --viewport mobile
  pagebuilder edit --script landing.yaml --dry-run
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ef.script == "" {
				return cmd.Help()
			}
			s, err := loadScript(ef.script)
			if err != nil {
				return err
			}
			page := ef.page
			if page == "" {
				page = s.Page
			}
			return o.runEdit(cmd, &editFlags{page: page, dryRun: ef.dryRun}, s.Ops)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&ef.page, "page", "", "Page ID (defaults to the current page)")
	pf.BoolVar(&ef.dryRun, "dry-run", false, "Print the result without saving")
	cmd.Flags().StringVar(&ef.script, "script", "", "YAML file with a list of ops")

	index := func(c *cobra.Command) *int {
		i, _ := c.Flags().GetInt("index")
		if !c.Flags().Changed("index") {
			return nil
		}
		return &i
	}

	add := &cobra.Command{
		Use:   "add <type>",
		Short: "Insert a component from the palette and select it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			return o.runEdit(cmd, ef, []editOp{{Op: "add", Type: args[0], Parent: parent, Index: index(cmd)}})
		},
	}
	add.Flags().String("parent", "", "Container to insert into (root if omitted)")
	add.Flags().Int("index", 0, "Position among the siblings (appends if omitted)")

	move := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a component to another position or parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			return o.runEdit(cmd, ef, []editOp{{Op: "move", ID: args[0], Parent: parent, Index: index(cmd)}})
		},
	}
	move.Flags().String("parent", "", "New parent (root if omitted)")
	move.Flags().Int("index", 0, "Position among the new siblings (appends if omitted)")

	props := &cobra.Command{
		Use:   "props <id> key=value...",
		Short: "Merge props into a component; values are parsed as JSON when they can be",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return o.runEdit(cmd, ef, []editOp{{Op: "props", ID: args[0], Props: patch}})
		},
	}

	text := &cobra.Command{
		Use:   "text <id> <text>",
		Short: "Set the text of a component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prop, _ := cmd.Flags().GetString("prop")
			return o.runEdit(cmd, ef, []editOp{{Op: "text", ID: args[0], Text: args[1], Prop: prop}})
		},
	}
	text.Flags().String("prop", "text", "Prop holding the text")

	style := &cobra.Command{
		Use:   "style <id> <property> [value]",
		Short: "Set a style property; omit the value or pass \"default\" to remove it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewport, _ := cmd.Flags().GetString("viewport")
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			return o.runEdit(cmd, ef, []editOp{{Op: "style", ID: args[0], Property: args[1], Value: value, Viewport: viewport}})
		},
	}
	style.Flags().String("viewport", "", "Viewport override, e.g. mobile")

	cmd.AddCommand(add, move, props, text, style)
	cmd.AddCommand(
		singleIDCmd(o, ef, "remove", "Delete a component and its children", "remove"),
		singleIDCmd(o, ef, "duplicate", "Insert a copy right after a component", "duplicate"),
		singleIDCmd(o, ef, "copy", "Copy a component to the editor clipboard", "copy"),
		noArgCmd(o, ef, "paste", "Paste the clipboard after the selection", "paste"),
		noArgCmd(o, ef, "delete-selected", "Delete the selected component", "delete-selected"),
		&cobra.Command{
			Use:   "select [id]",
			Short: "Select a component; without an id the selection is cleared",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op := editOp{Op: "select"}
				if len(args) == 1 {
					op.ID = args[0]
				}
				return o.runEdit(cmd, ef, []editOp{op})
			},
		},
	)
	return cmd
}

func singleIDCmd(o *options, ef *editFlags, use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runEdit(cmd, ef, []editOp{{Op: op, ID: args[0]}})
		},
	}
}

func noArgCmd(o *options, ef *editFlags, use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runEdit(cmd, ef, []editOp{{Op: op}})
		},
	}
}

// runEdit applies ops in one session, saves unless it is a dry run and
// remembers the clipboard and selection for the next command.
func (o *options) runEdit(cmd *cobra.Command, ef *editFlags, ops []editOp) error {
	return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
		pageID, err := pageArg(a, ef.page)
		if err != nil {
			return err
		}
		sess, err := a.OpenPage(ctx, pageID)
		if err != nil {
			return err
		}

		r := newRunner(a, pageID, sess)
		results, err := r.runAll(ctx, ops)
		if err != nil {
			return err
		}

		out := editOutput{PageID: pageID, Results: results}
		if !ef.dryRun && sess.Dirty() {
			rev, err := a.Editor.Save(ctx, pageID)
			if err != nil {
				return err
			}
			out.Saved = true
			if rev != nil {
				out.RevisionID = rev.ID
			}
		}
		if !ef.dryRun {
			a.Remember(sess)
		}
		out.SelectedID = sess.SelectedID()
		out.Tree = sess.Tree()

		return writeOut(cmd, o, out, func(w io.Writer) {
			for _, res := range results {
				if res.ComponentID != "" {
					fmt.Fprintf(w, "%s: %s\n", res.Op, res.ComponentID)
				}
			}
			renderTree(w, out.Tree, out.SelectedID)
			switch {
			case ef.dryRun:
				fmt.Fprintln(w, "(dry run, not saved)")
			case out.Saved:
				fmt.Fprintln(w, "Saved.")
			}
		})
	})
}

// parseAssignments turns key=value arguments into a props patch. Values
// that parse as JSON (numbers, booleans, objects) keep their type.
func parseAssignments(args []string) (domain.Props, error) {
	patch := make(domain.Props, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			patch[key] = v
			continue
		}
		patch[key] = raw
	}
	return patch, nil
}
