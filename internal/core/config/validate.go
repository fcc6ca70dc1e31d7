package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/loupe/internal/core/styles"
)

// ValidateDeep performs Validate and then checks values that need parsing or
// file access: the backend URL, glob syntax, durations, the theme and the
// config/data paths. Failures are reported as criterio.FieldErrors.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		c.validateSource(),
		c.validateDurations(),
		criterio.Run("tui.theme", c.TUI.Theme, themeExists),
	)
}

func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case SourceHTTP:
		return criterio.Run("source.http.base_url", c.Source.HTTP.BaseURL, isHTTPURL)
	case SourceFile:
		var errs criterio.FieldErrorsBuilder
		for i, p := range c.Source.File.Paths {
			if !doublestar.ValidatePathPattern(p) {
				errs = errs.Append(fmt.Sprintf("source.file.paths[%d]", i), fmt.Errorf("invalid glob %q", p))
			}
		}
		return errs.ToError()
	}
	return nil
}

func (c *Config) validateDurations() error {
	durations := []struct {
		field string
		value time.Duration
	}{
		{"source.http.timeout", c.Source.HTTP.Timeout},
		{"search.auto_refresh", c.Search.AutoRefresh},
		{"grid.reconcile_delay", c.Grid.ReconcileDelay},
		{"grid.frame_interval", c.Grid.FrameInterval},
		{"grid.settle_delay", c.Grid.SettleDelay},
	}

	var errs criterio.FieldErrorsBuilder
	for _, d := range durations {
		if d.value < 0 {
			errs = errs.Append(d.field, fmt.Errorf("must not be negative, got %s", d.value))
		}
	}
	if c.Search.AutoRefresh > 0 && c.Search.AutoRefresh < time.Second {
		errs = errs.Append("search.auto_refresh", fmt.Errorf("must be at least 1s, got %s", c.Search.AutoRefresh))
	}
	if c.Grid.LoadMoreThreshold < 0 {
		errs = errs.Append("grid.load_more_threshold", fmt.Errorf("must not be negative"))
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // defaults are used
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func isHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func themeExists(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q, available: %v", name, styles.ThemeNames())
	}
	return nil
}
