package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/identity"
	"pagebuilder/internal/plugins"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/storage/cached"
	"pagebuilder/internal/storage/filestore"
	"pagebuilder/internal/storage/mongostore"
)

// App owns the stores and services of one process. The CLI builds one per
// command; serve-mcp keeps it for the lifetime of the server.
type App struct {
	Config  *config.Config
	Emitter service.EventEmitter

	db    *storage.DB
	pages domain.PageCatalog // what services use, possibly cached
	raw   domain.PageCatalog // the backend itself
	files *filestore.Store   // set for the file store
	mongo *mongostore.Store  // set for the mongo store

	Registry *service.ComponentRegistry
	Editor   *service.EditorService
	Projects *service.ProjectService
	Bindings *service.BindingService
	Settings *service.SettingsService
}

// New opens the stores selected by cfg and wires the services. The SQLite
// database is always opened: projects, revisions, connections and
// settings live there whatever the page store is.
func New(ctx context.Context, cfg *config.Config, emitter service.EventEmitter) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = service.LogEmitter{}
	}

	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, Emitter: emitter, db: db}

	if err := a.openPages(ctx); err != nil {
		db.Close()
		return nil, err
	}

	secrets, err := secret.New(cfg.Secrets, cfg.SecretPrefix)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	revisions := storage.NewRevisionStore(db)
	a.Bindings = service.NewBindingService(storage.NewDBConnectionStore(db), storage.NewQueryResultStore(db), secrets)
	a.Registry = service.NewComponentRegistry()
	plugins.RegisterBuiltins(a.Registry, a.Bindings)

	a.Editor = service.NewEditorService(
		a.pages, revisions, a.Registry, emitter, identity.New("comp"),
		editor.WithHistoryLimit(cfg.HistoryLimit),
	)
	a.Projects = service.NewProjectService(storage.NewProjectStore(db), a.pages, revisions, a.Bindings, a.Editor, emitter)
	a.Settings = service.NewSettingsService(storage.NewSettingsStore(db))
	return a, nil
}

func (a *App) openPages(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Store {
	case config.StoreFile:
		fs, err := filestore.New(cfg.PagesDir())
		if err != nil {
			return err
		}
		a.files = fs
		a.raw = fs
	case config.StoreMongo:
		ms, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("open mongo page store: %w", err)
		}
		a.mongo = ms
		a.raw = ms
	default:
		a.raw = storage.NewPageStore(a.db)
	}

	a.pages = a.raw
	if cfg.CacheSize > 0 {
		c, err := cached.New(a.raw, cfg.CacheSize)
		if err != nil {
			return err
		}
		a.pages = c
	}
	log.Printf("[APP] page store %s (cache %d) in %s", cfg.Store, cfg.CacheSize, cfg.DataDir)
	return nil
}

// OpenPage opens an editing session with the clipboard and selection
// left by the previous run.
func (a *App) OpenPage(ctx context.Context, pageID string) (*editor.Session, error) {
	return a.Editor.Open(ctx, pageID,
		editor.WithClipboard(a.Settings.Clipboard()),
		editor.WithSelection(a.Settings.Selection(pageID)),
	)
}

// Remember stores the session's clipboard and selection, and marks the
// page as current, for the next run.
func (a *App) Remember(sess *editor.Session) {
	pageID := sess.PageID()
	if err := a.Settings.SetCurrentPage(pageID); err != nil {
		log.Printf("[APP] remember current page: %v", err)
	}
	if err := a.Settings.SetSelection(pageID, sess.SelectedID()); err != nil {
		log.Printf("[APP] remember selection: %v", err)
	}
	if n, ok := sess.Clipboard(); ok {
		if err := a.Settings.SetClipboard(&n); err != nil {
			log.Printf("[APP] remember clipboard: %v", err)
		}
	}
}

// Close waits for running saves and releases every store.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.Editor != nil {
		a.Editor.Shutdown(ctx)
	}
	if a.Bindings != nil {
		a.Bindings.Close()
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			log.Printf("[APP] close mongo: %v", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
