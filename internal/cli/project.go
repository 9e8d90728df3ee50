package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
)

func newProjectCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Project commands",
	}
	cmd.AddCommand(newProjectListCmd(o))
	cmd.AddCommand(newProjectCreateCmd(o))
	cmd.AddCommand(newProjectRenameCmd(o))
	cmd.AddCommand(newProjectDeleteCmd(o))
	return cmd
}

func newProjectListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				projects, err := a.Projects.ListProjects()
				if err != nil {
					return err
				}
				return writeOut(cmd, o, projects, func(w io.Writer) {
					if len(projects) == 0 {
						fmt.Fprintln(w, "No projects.")
					}
					for _, p := range projects {
						fmt.Fprintf(w, "%s  %-24s %s\n", p.ID, p.Name, p.Subdomain)
					}
				})
			})
		},
	}
}

func newProjectCreateCmd(o *options) *cobra.Command {
	var name, subdomain string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.CreateProject(name, subdomain)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, p, func(w io.Writer) {
					fmt.Fprintf(w, "Created project %s (%s)\n", p.Name, p.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&subdomain, "subdomain", "", "Subdomain (derived from the name if omitted)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectRenameCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <project-id> <name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Projects.RenameProject(args[0], args[1]); err != nil {
					return err
				}
				p, err := a.Projects.GetProject(args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, o, p, func(w io.Writer) {
					fmt.Fprintf(w, "Renamed project %s to %s\n", p.ID, p.Name)
				})
			})
		},
	}
}

func newProjectDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its pages, revisions and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Projects.DeleteProject(ctx, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, o, map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted project %s\n", args[0])
				})
			})
		},
	}
}
