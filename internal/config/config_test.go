package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != currentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, currentVersion)
	}
	if cfg.Query.Scores.Exact != 100 || cfg.Query.Scores.Prefix != 75 {
		t.Errorf("Scores = %+v, want exact=100 prefix=75", cfg.Query.Scores)
	}
	if cfg.Query.Scores.FTSMin != 50 || cfg.Query.Scores.FTSMax != 100 {
		t.Errorf("FTS range = %v..%v, want 50..100", cfg.Query.Scores.FTSMin, cfg.Query.Scores.FTSMax)
	}
	if cfg.Query.UseLegacy {
		t.Error("legacy fallback should be off by default")
	}
	if !cfg.Index.DetectRenames {
		t.Error("rename detection should be on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Query.DefaultLimit != 20 {
		t.Errorf("DefaultLimit = %d, want 20", cfg.Query.DefaultLimit)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".cix")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"version": 1, "query": {"useLegacy": true, "scores": {"prefix": 80}}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Query.UseLegacy {
		t.Error("useLegacy should be read from file")
	}
	if cfg.Query.Scores.Prefix != 80 {
		t.Errorf("Prefix = %v, want 80", cfg.Query.Scores.Prefix)
	}
	if cfg.Query.Scores.Exact != 100 {
		t.Errorf("Exact = %v, want default 100", cfg.Query.Scores.Exact)
	}
	if cfg.Query.MaxDepth != 10 {
		t.Errorf("MaxDepth = %d, want default 10", cfg.Query.MaxDepth)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CIX_QUERY_USELEGACY", "true")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Query.UseLegacy {
		t.Error("CIX_QUERY_USELEGACY should enable the legacy fallback")
	}
}

func TestSaveAndReload(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Project = "demo"
	cfg.Index.Workers = 2

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Project != "demo" || got.Index.Workers != 2 {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 9 }, "version"},
		{"zero workers", func(c *Config) { c.Index.Workers = 0 }, "index.workers"},
		{"limit above max", func(c *Config) { c.Query.DefaultLimit = 1000 }, "query.defaultLimit"},
		{"inverted fts range", func(c *Config) { c.Query.Scores.FTSMin = 120 }, "query.scores.ftsMin"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}
