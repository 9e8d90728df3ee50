package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/dbclient"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/tree"
)

func newDBCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database connections and component bindings",
	}
	cmd.AddCommand(newDBListCmd(o))
	cmd.AddCommand(newDBAddCmd(o))
	cmd.AddCommand(newDBRemoveCmd(o))
	cmd.AddCommand(newDBTestCmd(o))
	cmd.AddCommand(newDBIntrospectCmd(o))
	cmd.AddCommand(newDBPreviewCmd(o))
	cmd.AddCommand(newDBBindCmd(o))
	return cmd
}

func newDBListCmd(o *options) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the connections of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				conns, err := a.Bindings.ListConnections(projectID)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, conns, func(w io.Writer) {
					if len(conns) == 0 {
						fmt.Fprintln(w, "No connections.")
					}
					for _, c := range conns {
						fmt.Fprintf(w, "%s  %-20s %-8s %s\n", c.ID, c.Name, c.Driver, c.Host)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newDBAddCmd(o *options) *cobra.Command {
	var in service.CreateDBConnInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a database connection to a project",
		Long: `Add a database connection. For sqlite, --host is the database file. For
mongodb, --host may be a full mongodb:// or mongodb+srv:// URI. The
password goes to the configured secret store, never to the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, err := a.Bindings.CreateConnection(in)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, c, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s connection %s (%s)\n", c.Driver, c.Name, c.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ProjectID, "project", "", "Project ID")
	f.StringVar(&in.Name, "name", "", "Connection name")
	f.StringVar(&in.Driver, "driver", "", "sqlite, mysql, postgres or mongodb")
	f.StringVar(&in.Host, "host", "", "Host, file path (sqlite) or URI (mongodb)")
	f.IntVar(&in.Port, "port", 0, "Port (driver default if omitted)")
	f.StringVar(&in.Database, "database", "", "Database name")
	f.StringVar(&in.Username, "user", "", "User name")
	f.StringVar(&in.Password, "password", "", "Password")
	f.StringVar(&in.SSLMode, "ssl-mode", "", "SSL mode (postgres sslmode, \"require\" enables TLS for mysql)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}

func newDBRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <connection-id>",
		Short: "Remove a connection and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Bindings.DeleteConnection(args[0]); err != nil {
					return err
				}
				return writeOut(cmd, o, map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed connection %s\n", args[0])
				})
			})
		},
	}
}

func newDBTestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "test <connection-id>",
		Short: "Check that a connection can reach its database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Bindings.TestConnection(ctx, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, o, map[string]any{"connectionId": args[0], "ok": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Connection OK")
				})
			})
		},
	}
}

func newDBIntrospectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "introspect <connection-id>",
		Short: "List the tables and columns of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				schema, err := a.Bindings.Introspect(ctx, args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, o, schema, func(w io.Writer) {
					for _, t := range schema.Tables {
						cols := make([]string, len(t.Columns))
						for i, c := range t.Columns {
							cols[i] = c.Name + " " + c.Type
						}
						fmt.Fprintf(w, "%s (%s)\n", t.Name, strings.Join(cols, ", "))
					}
				})
			})
		},
	}
}

func newDBPreviewCmd(o *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "preview <connection-id> <table>",
		Short: "Show the first rows of a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Bindings.Preview(ctx, args[0], args[1], limit)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, p, func(w io.Writer) { renderPreview(w, p) })
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", dbclient.DefaultPreviewLimit, "Maximum rows")
	return cmd
}

func newDBBindCmd(o *options) *cobra.Command {
	var pageID string
	var b domain.Binding

	cmd := &cobra.Command{
		Use:   "bind <component-id>",
		Short: "Bind a data component to a table, save the page and preview the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				sess, err := a.OpenPage(ctx, id)
				if err != nil {
					return err
				}
				if err := sess.UpdateProps(args[0], domain.Props{service.BindingProp: map[string]any{
					"connectionId": b.ConnectionID,
					"table":        b.Table,
					"limit":        b.Limit,
				}}); err != nil {
					return err
				}
				if _, err := a.Editor.Save(ctx, id); err != nil {
					return err
				}

				node, _ := tree.Find(sess.Tree(), args[0])
				p, err := a.Bindings.PreviewComponent(ctx, node)
				if err != nil {
					return fmt.Errorf("bound, but the preview failed: %w", err)
				}
				return writeOut(cmd, o, p, func(w io.Writer) { renderPreview(w, p) })
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")
	f.StringVar(&b.ConnectionID, "conn", "", "Connection ID")
	f.StringVar(&b.Table, "table", "", "Table or collection")
	f.IntVar(&b.Limit, "limit", dbclient.DefaultPreviewLimit, "Rows shown in the editor")
	_ = cmd.MarkFlagRequired("conn")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func renderPreview(w io.Writer, p *dbclient.Preview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Columns, "\t"))
	for _, row := range p.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	if p.Truncated {
		fmt.Fprintln(w, "(more rows not shown)")
	}
}
