package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

func newPageCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "page",
		Aliases: []string{"pages"},
		Short:   "Page commands",
	}
	cmd.AddCommand(newPageListCmd(o))
	cmd.AddCommand(newPageCreateCmd(o))
	cmd.AddCommand(newPageUseCmd(o))
	cmd.AddCommand(newPageShowCmd(o))
	cmd.AddCommand(newPageMetaCmd(o))
	cmd.AddCommand(newPageHomepageCmd(o))
	cmd.AddCommand(newPageDeleteCmd(o))
	cmd.AddCommand(newPageExportCmd(o))
	cmd.AddCommand(newPageImportCmd(o))
	return cmd
}

func newPageListCmd(o *options) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pages of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				pages, err := a.Projects.ListPages(ctx, projectID)
				if err != nil {
					return err
				}
				current := a.Settings.CurrentPage()
				return writeOut(cmd, o, pages, func(w io.Writer) {
					if len(pages) == 0 {
						fmt.Fprintln(w, "No pages.")
					}
					for _, p := range pages {
						flags := ""
						if p.IsHomepage {
							flags += " [home]"
						}
						if p.ID == current {
							flags += " [current]"
						}
						fmt.Fprintf(w, "%s  /%-20s %s%s\n", p.ID, p.Slug, p.Title, flags)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newPageCreateCmd(o *options) *cobra.Command {
	var in service.CreatePageInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty page and make it current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.CreatePage(ctx, in)
				if err != nil {
					return err
				}
				if err := a.Settings.SetCurrentPage(p.ID); err != nil {
					return err
				}
				return writeOut(cmd, o, p, func(w io.Writer) {
					fmt.Fprintf(w, "Created page /%s (%s)\n", p.Slug, p.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ProjectID, "project", "", "Project ID")
	f.StringVar(&in.Title, "title", "", "Page title")
	f.StringVar(&in.Slug, "slug", "", "URL slug (derived from the title if omitted)")
	f.StringVar(&in.Description, "description", "", "SEO description")
	f.StringVar(&in.Keywords, "keywords", "", "SEO keywords, comma separated")
	f.BoolVar(&in.IsPublic, "public", false, "Publish the page")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newPageUseCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "use <page-id>",
		Short: "Make a page the current page for edit commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.GetPage(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.Settings.SetCurrentPage(p.ID); err != nil {
					return err
				}
				return writeOut(cmd, o, map[string]string{"currentPage": p.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Current page is now /%s (%s)\n", p.Slug, p.ID)
				})
			})
		},
	}
}

func newPageShowCmd(o *options) *cobra.Command {
	var pageID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a page and its component tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				p, err := a.Projects.GetPage(ctx, id)
				if err != nil {
					return err
				}
				selected := a.Settings.Selection(id)
				return writeOut(cmd, o, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s  /%s  %s\n\n", p.ID, p.Slug, p.Title)
					renderTree(w, p.LayoutData.Content, selected)
				})
			})
		},
	}

	cmd.Flags().StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")
	return cmd
}

func newPageMetaCmd(o *options) *cobra.Command {
	var pageID string
	var title, slug, description, keywords string
	var public bool

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Change page metadata (title, slug, SEO fields, visibility)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in service.PageMetaInput
			f := cmd.Flags()
			if f.Changed("title") {
				in.Title = &title
			}
			if f.Changed("slug") {
				in.Slug = &slug
			}
			if f.Changed("description") {
				in.Description = &description
			}
			if f.Changed("keywords") {
				in.Keywords = &keywords
			}
			if f.Changed("public") {
				in.IsPublic = &public
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				p, err := a.Projects.UpdatePageMeta(ctx, id, in)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, p, func(w io.Writer) {
					fmt.Fprintf(w, "Updated page /%s (%s)\n", p.Slug, p.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")
	f.StringVar(&title, "title", "", "Page title")
	f.StringVar(&slug, "slug", "", "URL slug")
	f.StringVar(&description, "description", "", "SEO description")
	f.StringVar(&keywords, "keywords", "", "SEO keywords")
	f.BoolVar(&public, "public", false, "Published")
	return cmd
}

func newPageHomepageCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "homepage <page-id>",
		Short: "Make a page the homepage of its project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Projects.SetHomepage(ctx, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, o, map[string]string{"homepage": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Page %s is now the homepage\n", args[0])
				})
			})
		},
	}
}

func newPageDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page-id>",
		Short: "Delete a page and its revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Projects.DeletePage(ctx, args[0]); err != nil {
					return err
				}
				if a.Settings.CurrentPage() == args[0] {
					_ = a.Settings.SetCurrentPage("")
				}
				return writeOut(cmd, o, map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted page %s\n", args[0])
				})
			})
		},
	}
}

func newPageExportCmd(o *options) *cobra.Command {
	var pageID, out string
	var toClipboard bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a page's component tree as JSON",
		Long: `Write the component tree of a page as JSON to stdout, a file or the
system clipboard. The output can be loaded back with "page import".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				p, err := a.Projects.GetPage(ctx, id)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(p.LayoutData.Content, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal tree: %w", err)
				}

				switch {
				case toClipboard:
					if err := clipboard.WriteAll(string(data)); err != nil {
						return fmt.Errorf("failed to copy to clipboard: %w", err)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Copied the tree of /%s to the clipboard\n", p.Slug)
				case out != "":
					if err := os.WriteFile(out, append(data, '\n'), 0644); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")
	f.StringVar(&out, "out", "", "Write to this file")
	f.BoolVar(&toClipboard, "clipboard", false, "Copy to the system clipboard")
	return cmd
}

func newPageImportCmd(o *options) *cobra.Command {
	var pageID string
	var fromClipboard bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace a page's component tree with exported JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch {
			case fromClipboard:
				s, err := clipboard.ReadAll()
				if err != nil {
					return fmt.Errorf("failed to read clipboard: %w", err)
				}
				data = []byte(s)
			case len(args) == 1:
				b, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				data = b
			default:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				data = b
			}

			var t domain.Tree
			if err := json.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("parse tree: %w", err)
			}

			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := pageArg(a, pageID)
				if err != nil {
					return err
				}
				sess, err := a.OpenPage(ctx, id)
				if err != nil {
					return err
				}
				if err := sess.ReplaceTree("import", t); err != nil {
					return err
				}
				rev, err := a.Editor.Save(ctx, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, o, rev, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d root component(s) into %s\n", len(t), id)
				})
			})
		},
	}

	cmd.Flags().StringVar(&pageID, "page", "", "Page ID (defaults to the current page)")
	cmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "Read from the system clipboard")
	return cmd
}
