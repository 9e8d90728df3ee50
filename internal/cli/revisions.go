package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
)

func newRevisionsCmd(o *options) *cobra.Command {
	var pageID string

	cmd := &cobra.Command{
		Use:     "revisions",
		Aliases: []string{"revs"},
		Short:   "List or restore saved revisions of a page",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				revs, err := a.Editor.Revisions(id)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, revs, func(w io.Writer) {
					if len(revs) == 0 {
						fmt.Fprintln(w, "No revisions.")
					}
					for _, r := range revs {
						fmt.Fprintf(w, "%s  %s  %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Label)
					}
				})
			})
		},
	}
	cmd.PersistentFlags().StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <revision-id>",
		Short: "Restore a revision and save it as a new one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				if _, err := a.OpenPage(ctx, id); err != nil {
					return err
				}
				if err := a.Editor.RestoreRevision(ctx, id, args[0]); err != nil {
					return err
				}
				rev, err := a.Editor.Save(ctx, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, rev, func(w io.Writer) {
					fmt.Fprintf(w, "Restored revision %s on page %s\n", args[0], id)
				})
			})
		},
	})
	return cmd
}
