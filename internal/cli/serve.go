package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/service"
)

func newServeMCPCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the editor to an MCP client on stdin/stdout",
		Long: `Run a Model Context Protocol server on stdin/stdout. Pages opened by the
client stay open until it disconnects; dirty pages are autosaved on the
configured schedule and once more on exit. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, o.cfg, service.LogEmitter{})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return a.ServeMCP(ctx)
		},
	}
}
