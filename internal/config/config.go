package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete cix configuration stored in .cix/config.json
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Project string `json:"project,omitempty" mapstructure:"project"`

	Index     IndexConfig     `json:"index" mapstructure:"index"`
	Query     QueryConfig     `json:"query" mapstructure:"query"`
	Migration MigrationConfig `json:"migration" mapstructure:"migration"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
}

// IndexConfig controls file discovery and extraction
type IndexConfig struct {
	Workers         int      `json:"workers" mapstructure:"workers"`
	Exclude         []string `json:"exclude" mapstructure:"exclude"`
	MaxFileBytes    int64    `json:"maxFileBytes" mapstructure:"maxFileBytes"`
	FollowGitignore bool     `json:"followGitignore" mapstructure:"followGitignore"`
	DetectRenames   bool     `json:"detectRenames" mapstructure:"detectRenames"`
	IndexDocs       bool     `json:"indexDocs" mapstructure:"indexDocs"`
	ScipPath        string   `json:"scipPath" mapstructure:"scipPath"`
	WatchDebounceMs int      `json:"watchDebounceMs" mapstructure:"watchDebounceMs"`
}

// ScoreConfig holds the search tier weights
type ScoreConfig struct {
	Exact     float64 `json:"exact" mapstructure:"exact"`
	Prefix    float64 `json:"prefix" mapstructure:"prefix"`
	Qualified float64 `json:"qualified" mapstructure:"qualified"`
	FTSMin    float64 `json:"ftsMin" mapstructure:"ftsMin"`
	FTSMax    float64 `json:"ftsMax" mapstructure:"ftsMax"`
}

// QueryConfig controls the query engine
type QueryConfig struct {
	DefaultLimit int         `json:"defaultLimit" mapstructure:"defaultLimit"`
	MaxLimit     int         `json:"maxLimit" mapstructure:"maxLimit"`
	MaxDepth     int         `json:"maxDepth" mapstructure:"maxDepth"`
	MaxNodes     int         `json:"maxNodes" mapstructure:"maxNodes"`
	UseLegacy    bool        `json:"useLegacy" mapstructure:"useLegacy"`
	LegacyPath   string      `json:"legacyPath" mapstructure:"legacyPath"`
	Scores       ScoreConfig `json:"scores" mapstructure:"scores"`
}

// MigrationConfig controls legacy migration
type MigrationConfig struct {
	SampleSize  int  `json:"sampleSize" mapstructure:"sampleSize"`
	KeepBackups int  `json:"keepBackups" mapstructure:"keepBackups"`
	Backup      bool `json:"backup" mapstructure:"backup"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// MetricsConfig controls the prometheus textfile written after index runs
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// ServerConfig controls `cix serve`
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

const currentVersion = 1

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Index: IndexConfig{
			Workers:         runtime.NumCPU(),
			Exclude:         []string{"**/*.min.js", "**/*.lock", "**/dist/**", "**/build/**"},
			MaxFileBytes:    1 << 20,
			FollowGitignore: true,
			DetectRenames:   true,
			IndexDocs:       true,
			ScipPath:        "index.scip",
			WatchDebounceMs: 500,
		},
		Query: QueryConfig{
			DefaultLimit: 20,
			MaxLimit:     500,
			MaxDepth:     10,
			MaxNodes:     2000,
			LegacyPath:   ".cix/legacy",
			Scores: ScoreConfig{
				Exact:     100,
				Prefix:    75,
				Qualified: 60,
				FTSMin:    50,
				FTSMax:    100,
			},
		},
		Migration: MigrationConfig{
			SampleSize:  0,
			KeepBackups: 3,
			Backup:      true,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// LoadConfig loads configuration from .cix/config.json.
// Keys absent from the file keep their defaults; CIX_* environment variables
// override both (e.g. CIX_QUERY_USELEGACY=true).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".cix"))
	v.SetEnvPrefix("CIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults registers every leaf key so AutomaticEnv can see it.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)
	v.SetDefault("project", cfg.Project)
	v.SetDefault("index.workers", cfg.Index.Workers)
	v.SetDefault("index.exclude", cfg.Index.Exclude)
	v.SetDefault("index.maxFileBytes", cfg.Index.MaxFileBytes)
	v.SetDefault("index.followGitignore", cfg.Index.FollowGitignore)
	v.SetDefault("index.detectRenames", cfg.Index.DetectRenames)
	v.SetDefault("index.indexDocs", cfg.Index.IndexDocs)
	v.SetDefault("index.scipPath", cfg.Index.ScipPath)
	v.SetDefault("index.watchDebounceMs", cfg.Index.WatchDebounceMs)
	v.SetDefault("query.defaultLimit", cfg.Query.DefaultLimit)
	v.SetDefault("query.maxLimit", cfg.Query.MaxLimit)
	v.SetDefault("query.maxDepth", cfg.Query.MaxDepth)
	v.SetDefault("query.maxNodes", cfg.Query.MaxNodes)
	v.SetDefault("query.useLegacy", cfg.Query.UseLegacy)
	v.SetDefault("query.legacyPath", cfg.Query.LegacyPath)
	v.SetDefault("query.scores.exact", cfg.Query.Scores.Exact)
	v.SetDefault("query.scores.prefix", cfg.Query.Scores.Prefix)
	v.SetDefault("query.scores.qualified", cfg.Query.Scores.Qualified)
	v.SetDefault("query.scores.ftsMin", cfg.Query.Scores.FTSMin)
	v.SetDefault("query.scores.ftsMax", cfg.Query.Scores.FTSMax)
	v.SetDefault("migration.sampleSize", cfg.Migration.SampleSize)
	v.SetDefault("migration.keepBackups", cfg.Migration.KeepBackups)
	v.SetDefault("migration.backup", cfg.Migration.Backup)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.maxSize", cfg.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", cfg.Logging.MaxBackups)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// Save writes the configuration to .cix/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".cix")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Index.Workers < 1 {
		return &ConfigError{Field: "index.workers", Message: "must be at least 1"}
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return &ConfigError{Field: "query.defaultLimit", Message: "must be between 1 and query.maxLimit"}
	}
	if c.Query.MaxDepth < 0 {
		return &ConfigError{Field: "query.maxDepth", Message: "must not be negative"}
	}
	s := c.Query.Scores
	if s.FTSMin > s.FTSMax {
		return &ConfigError{Field: "query.scores.ftsMin", Message: "must not exceed ftsMax"}
	}
	if s.Exact < s.Prefix {
		return &ConfigError{Field: "query.scores.exact", Message: "exact tier must score at least the prefix tier"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
