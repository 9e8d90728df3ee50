// Package cli is the pagebuilder command line. Every command builds an
// app.App from the configuration, runs against it and closes it again.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
)

type options struct {
	EnvFile      string
	DataDir      string
	Store        string
	MongoURI     string
	MongoDB      string
	Autosave     string
	CacheSize    int
	HistoryLimit int
	Secrets      string
	Format       string
	Verbose      bool

	cfg *config.Config
}

var version = "dev"

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "pagebuilder",
		Short:        "Edit no-code page component trees from the terminal or an AI agent",
		SilenceUsage: true,
		Version:      version,
		Example: strings.TrimSpace(`
  # Create a project and a page
  pagebuilder project create --name "Acme"
  pagebuilder page create --project <project-id> --title "Home"

  # Edit the current page
  pagebuilder edit add Section
  pagebuilder edit add Heading --parent <section-id>
  pagebuilder edit text <heading-id> "Welcome"

  # Run several edits in one session
  pagebuilder edit --script landing.yaml

  # Serve the editor to an MCP client
  pagebuilder serve-mcp
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !opts.Verbose && cmd.Name() != "serve-mcp" {
			log.SetOutput(io.Discard)
		}
		return opts.load(cmd)
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.EnvFile, "env-file", "", "Read settings from this file instead of ./.env")
	f.StringVar(&opts.DataDir, "data-dir", "", "Data directory (env PAGEBUILDER_DATA_DIR)")
	f.StringVar(&opts.Store, "store", "", "Page store: sqlite, mongo or file (env PAGEBUILDER_STORE)")
	f.StringVar(&opts.MongoURI, "mongo-uri", "", "MongoDB URI for the mongo store (env PAGEBUILDER_MONGO_URI)")
	f.StringVar(&opts.MongoDB, "mongo-db", "", "MongoDB database (env PAGEBUILDER_MONGO_DB)")
	f.StringVar(&opts.Autosave, "autosave", "", "Autosave cron schedule or \"off\" (env PAGEBUILDER_AUTOSAVE)")
	f.IntVar(&opts.CacheSize, "cache-size", 0, "Pages kept in the LRU cache, 0 disables it (env PAGEBUILDER_CACHE_SIZE)")
	f.IntVar(&opts.HistoryLimit, "history-limit", 0, "Undo steps kept per page (env PAGEBUILDER_HISTORY_LIMIT)")
	f.StringVar(&opts.Secrets, "secrets", "", "Password store: env, keychain or memory (env PAGEBUILDER_SECRETS)")
	f.StringVarP(&opts.Format, "output", "o", "text", "Output format (text|json|yaml)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(newProjectCmd(opts))
	cmd.AddCommand(newPageCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newRevisionsCmd(opts))
	cmd.AddCommand(newDBCmd(opts))
	cmd.AddCommand(newServeMCPCmd(opts))

	return cmd
}

// load resolves the configuration: .env and environment first, then any
// flag given on the command line.
func (o *options) load(cmd *cobra.Command) error {
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("store") {
		cfg.Store = strings.ToLower(o.Store)
	}
	if flags.Changed("mongo-uri") {
		cfg.MongoURI = o.MongoURI
	}
	if flags.Changed("mongo-db") {
		cfg.MongoDB = o.MongoDB
	}
	if flags.Changed("autosave") {
		cfg.Autosave = o.Autosave
	}
	if flags.Changed("cache-size") {
		cfg.CacheSize = o.CacheSize
	}
	if flags.Changed("history-limit") {
		cfg.HistoryLimit = o.HistoryLimit
	}
	if flags.Changed("secrets") {
		cfg.Secrets = o.Secrets
	}

	switch o.Format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", o.Format)
	}
	o.cfg = cfg
	return nil
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var emitter service.EventEmitter = service.NopEmitter{}
	if o.Verbose {
		emitter = service.LogEmitter{}
	}
	a, err := app.New(ctx, o.cfg, emitter)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

// pageArg returns the page flag or the page the last command worked on.
func pageArg(a *app.App, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if id := a.Settings.CurrentPage(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no page given and no current page (use --page or page create/use)")
}
