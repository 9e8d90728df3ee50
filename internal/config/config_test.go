package config

import (
	"os"
	"path/filepath"
	"testing"

	"pagebuilder/internal/editor"
	"pagebuilder/internal/storage/cached"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PAGEBUILDER_DATA_DIR", "PAGEBUILDER_STORE", "PAGEBUILDER_MONGO_URI", "PAGEBUILDER_MONGO_DB",
		"PAGEBUILDER_AUTOSAVE", "PAGEBUILDER_CACHE_SIZE", "PAGEBUILDER_HISTORY_LIMIT",
		"PAGEBUILDER_SECRETS", "PAGEBUILDER_SECRET_PREFIX",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != StoreSQLite || cfg.Autosave != DefaultAutosave || cfg.MongoDB != DefaultMongoDB {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheSize != cached.DefaultSize || cfg.HistoryLimit != editor.DefaultHistoryLimit {
		t.Errorf("cache = %d history = %d", cfg.CacheSize, cfg.HistoryLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	data := "PAGEBUILDER_DATA_DIR=" + dir + "\nPAGEBUILDER_STORE=FILE\nPAGEBUILDER_HISTORY_LIMIT=5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAGEBUILDER_HISTORY_LIMIT", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != dir || cfg.Store != StoreFile {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HistoryLimit != 7 {
		t.Errorf("history = %d, the environment should win over .env", cfg.HistoryLimit)
	}
	if cfg.PagesDir() != filepath.Join(dir, "pages") || cfg.DBPath() != filepath.Join(dir, "pagebuilder.db") {
		t.Errorf("paths = %s %s", cfg.PagesDir(), cfg.DBPath())
	}
}

func TestLoadBadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGEBUILDER_CACHE_SIZE", "lots")
	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("expected error for non-numeric cache size")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DataDir: "/tmp/pb", Store: StoreSQLite, Autosave: DefaultAutosave}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown store", func(c *Config) { c.Store = "redis" }, false},
		{"mongo without uri", func(c *Config) { c.Store = StoreMongo }, false},
		{"mongo with uri", func(c *Config) { c.Store = StoreMongo; c.MongoURI = "mongodb://localhost" }, true},
		{"bad schedule", func(c *Config) { c.Autosave = "every minute" }, false},
		{"autosave off", func(c *Config) { c.Autosave = "off" }, true},
		{"cron expression", func(c *Config) { c.Autosave = "*/5 * * * *" }, true},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
