package app

import (
	"context"
	"log"

	mcpserver "pagebuilder/internal/mcp"
)

// ServeMCP runs the MCP server on stdin/stdout until the client
// disconnects. Dirty pages are autosaved on the configured schedule and
// saved once more before it returns.
func (a *App) ServeMCP(ctx context.Context) error {
	if a.Config.AutosaveEnabled() {
		if err := a.Editor.StartAutosave(ctx, a.Config.Autosave); err != nil {
			return err
		}
	}

	w, err := a.startPageWatcher(ctx)
	if err != nil {
		log.Printf("[WATCH] disabled: %v", err)
	} else {
		defer w.Stop()
	}

	srv := mcpserver.New(mcpserver.Deps{
		Emitter:  a.Emitter,
		Editor:   a.Editor,
		Projects: a.Projects,
		Bindings: a.Bindings,
	})
	serveErr := srv.ServeStdio()

	if n := a.Editor.AutosaveNow(context.Background()); n > 0 {
		log.Printf("[MCP] saved %d page(s) on exit", n)
	}
	return serveErr
}
