// Package config handles configuration loading and validation for loupe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/search"
)

// Source kinds.
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// Config holds the application configuration.
type Config struct {
	Source  SourceConfig `yaml:"source"`
	Module  ModuleConfig `yaml:"module"`
	Search  SearchConfig `yaml:"search"`
	Grid    GridConfig   `yaml:"grid"`
	TUI     TUIConfig    `yaml:"tui"`
	DataDir string       `yaml:"-"` // set by caller, not from config file
}

// SourceConfig selects where log rows come from.
type SourceConfig struct {
	Kind string     `yaml:"kind"` // http or file
	HTTP HTTPConfig `yaml:"http"`
	File FileConfig `yaml:"file"`
}

// HTTPConfig configures the log-search backend.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// FileConfig configures the local NDJSON source.
type FileConfig struct {
	Paths []string `yaml:"paths"` // doublestar globs
	Watch bool     `yaml:"watch"`
}

// ModuleConfig describes the log module being searched.
type ModuleConfig struct {
	Name         string `yaml:"name"`
	DatasourceID int64  `yaml:"datasource_id"`
	TimeField    string `yaml:"time_field"`
}

// SearchConfig holds the initial search parameters.
type SearchConfig struct {
	PageSize    int           `yaml:"page_size"`
	TimeRange   string        `yaml:"time_range"`
	Keywords    []string      `yaml:"keywords"`
	Where       []string      `yaml:"where"`
	Fields      []string      `yaml:"fields"`
	AutoRefresh time.Duration `yaml:"auto_refresh"` // 0 disables
}

// GridConfig tunes the result grid engine.
type GridConfig struct {
	ItemHeight        int           `yaml:"item_height"`
	LoadMoreThreshold int           `yaml:"load_more_threshold"`
	ReconcileDelay    time.Duration `yaml:"reconcile_delay"`
	FrameInterval     time.Duration `yaml:"frame_interval"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind: SourceHTTP,
			HTTP: HTTPConfig{
				BaseURL: "http://localhost:8080",
				Timeout: 30 * time.Second,
			},
		},
		Module: ModuleConfig{
			TimeField: record.DefaultTimeField,
		},
		Search: SearchConfig{
			PageSize:  search.DefaultPageSize,
			TimeRange: search.DefaultTimeRange,
		},
		Grid: GridConfig{
			ItemHeight:        1,
			LoadMoreThreshold: 20,
			ReconcileDelay:    100 * time.Millisecond,
			FrameInterval:     16 * time.Millisecond,
			SettleDelay:       100 * time.Millisecond,
		},
		TUI: TUIConfig{
			Theme: "tokyo-night",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Source.Kind == "" {
		c.Source.Kind = defaults.Source.Kind
	}
	if c.Source.HTTP.Timeout == 0 {
		c.Source.HTTP.Timeout = defaults.Source.HTTP.Timeout
	}
	if c.Module.TimeField == "" {
		c.Module.TimeField = defaults.Module.TimeField
	}
	if c.Search.PageSize == 0 {
		c.Search.PageSize = defaults.Search.PageSize
	}
	if c.Grid.ItemHeight == 0 {
		c.Grid.ItemHeight = defaults.Grid.ItemHeight
	}
	if c.Grid.LoadMoreThreshold == 0 {
		c.Grid.LoadMoreThreshold = defaults.Grid.LoadMoreThreshold
	}
	if c.Grid.ReconcileDelay == 0 {
		c.Grid.ReconcileDelay = defaults.Grid.ReconcileDelay
	}
	if c.Grid.FrameInterval == 0 {
		c.Grid.FrameInterval = defaults.Grid.FrameInterval
	}
	if c.Grid.SettleDelay == 0 {
		c.Grid.SettleDelay = defaults.Grid.SettleDelay
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.HTTP.BaseURL == "" {
			return fmt.Errorf("source.http.base_url cannot be empty")
		}
	case SourceFile:
		if len(c.Source.File.Paths) == 0 {
			return fmt.Errorf("source.file.paths must list at least one glob")
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceHTTP, SourceFile, c.Source.Kind)
	}

	if c.Search.PageSize < 1 {
		return fmt.Errorf("search.page_size must be at least 1")
	}

	if c.Search.TimeRange != "" && !search.ValidTimeRange(c.Search.TimeRange) {
		return fmt.Errorf("search.time_range %q is not one of %v", c.Search.TimeRange, search.TimeRanges)
	}

	if c.Grid.ItemHeight < 1 {
		return fmt.Errorf("grid.item_height must be at least 1")
	}

	return nil
}

// Params returns the initial search parameters described by the config.
func (c *Config) Params() search.Params {
	return search.Params{
		DatasourceID: c.Module.DatasourceID,
		Module:       c.Module.Name,
		Keywords:     slices.Clone(c.Search.Keywords),
		WhereSQLs:    slices.Clone(c.Search.Where),
		TimeRange:    c.Search.TimeRange,
		PageSize:     c.Search.PageSize,
		Fields:       slices.Clone(c.Search.Fields),
	}
}

// HistoryDB returns the path to the search history database.
func (c *Config) HistoryDB() string {
	return filepath.Join(c.DataDir, "loupe.db")
}
