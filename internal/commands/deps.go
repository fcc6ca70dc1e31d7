package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/colonyops/loupe/internal/core/config"
	"github.com/colonyops/loupe/internal/data/db"
	"github.com/colonyops/loupe/internal/data/history"
	"github.com/colonyops/loupe/internal/search"
	"github.com/colonyops/loupe/internal/search/filesource"
	"github.com/colonyops/loupe/internal/search/httpsource"
)

// newSource builds the configured search backend.
func newSource(cfg *config.Config) (search.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		return httpsource.New(httpsource.Options{
			BaseURL: cfg.Source.HTTP.BaseURL,
			Token:   cfg.Source.HTTP.Token,
			Timeout: cfg.Source.HTTP.Timeout,
		}), nil
	case config.SourceFile:
		return filesource.New(filesource.Options{
			Paths:     cfg.Source.File.Paths,
			TimeField: cfg.Module.TimeField,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// openHistory opens the history database, creating the data directory when
// needed. The returned close func is never nil.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, func() {}, fmt.Errorf("create data dir: %w", err)
	}

	database, err := db.OpenPath(ctx, cfg.HistoryDB(), db.DefaultOpenOptions())
	if err != nil {
		return nil, func() {}, fmt.Errorf("open history: %w", err)
	}
	return history.New(database, nil), func() { _ = database.Close() }, nil
}
