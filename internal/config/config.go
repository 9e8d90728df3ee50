// Package config resolves runtime settings from a .env file and the
// process environment. Command-line flags take precedence and are applied
// by the cli package on top of Load's result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"pagebuilder/internal/editor"
	"pagebuilder/internal/storage/cached"
)

// Page catalog backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreFile   = "file"
)

const (
	DefaultAutosave     = "@every 30s"
	DefaultMongoDB      = "pagebuilder"
	DefaultSecretPrefix = "PAGEBUILDER_SECRET_"
)

type Config struct {
	DataDir string
	Store   string

	MongoURI string
	MongoDB  string

	// Autosave is a cron spec; "off" disables the scheduler.
	Autosave string

	// CacheSize is the LRU size in pages; 0 disables the cache.
	CacheSize    int
	HistoryLimit int

	Secrets      string // env, keychain or memory
	SecretPrefix string
}

// Load reads .env (if present) and then the environment. Values already
// set in the environment win over the file, as godotenv does not
// overwrite them.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		DataDir:      firstNonEmpty(env("PAGEBUILDER_DATA_DIR"), defaultDataDir()),
		Store:        strings.ToLower(firstNonEmpty(env("PAGEBUILDER_STORE"), StoreSQLite)),
		MongoURI:     env("PAGEBUILDER_MONGO_URI"),
		MongoDB:      firstNonEmpty(env("PAGEBUILDER_MONGO_DB"), DefaultMongoDB),
		Autosave:     firstNonEmpty(env("PAGEBUILDER_AUTOSAVE"), DefaultAutosave),
		Secrets:      firstNonEmpty(env("PAGEBUILDER_SECRETS"), "env"),
		SecretPrefix: firstNonEmpty(env("PAGEBUILDER_SECRET_PREFIX"), DefaultSecretPrefix),
	}

	var err error
	if cfg.CacheSize, err = intEnv("PAGEBUILDER_CACHE_SIZE", cached.DefaultSize); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = intEnv("PAGEBUILDER_HISTORY_LIMIT", editor.DefaultHistoryLimit); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combination of settings. It is called after flags
// are applied.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("store %q needs PAGEBUILDER_MONGO_URI", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want sqlite, mongo or file)", c.Store)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir is empty")
	}
	if c.CacheSize < 0 || c.HistoryLimit < 0 {
		return fmt.Errorf("cache size and history limit must not be negative")
	}
	if c.AutosaveEnabled() {
		if _, err := cron.ParseStandard(c.Autosave); err != nil {
			return fmt.Errorf("invalid autosave schedule %q: %w", c.Autosave, err)
		}
	}
	return nil
}

// AutosaveEnabled reports whether a schedule is configured.
func (c *Config) AutosaveEnabled() bool {
	s := strings.ToLower(strings.TrimSpace(c.Autosave))
	return s != "" && s != "off"
}

// DBPath is the SQLite file that holds projects, revisions and settings,
// and pages when the sqlite store is selected.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pagebuilder.db")
}

// PagesDir is the directory used by the file store.
func (c *Config) PagesDir() string {
	return filepath.Join(c.DataDir, "pages")
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pagebuilder"
	}
	return filepath.Join(homeDir, ".local", "share", "pagebuilder")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnv(key string, def int) (int, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
