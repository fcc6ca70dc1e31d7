package commands

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/loupe/internal/grid"
	"github.com/colonyops/loupe/internal/profiler"
	"github.com/colonyops/loupe/internal/search"
	"github.com/colonyops/loupe/internal/search/filesource"
	"github.com/colonyops/loupe/internal/tui"
)

type TuiCmd struct {
	flags *Flags
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{flags: flags}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "profiler-port",
			Usage:       "enable pprof HTTP endpoint on specified port (e.g., 6060)",
			Sources:     cli.EnvVars("LOUPE_PROFILER_PORT"),
			Destination: &cmd.flags.ProfilerPort,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config

	if cmd.flags.ProfilerPort > 0 {
		profServer := profiler.New(cmd.flags.ProfilerPort)
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler endpoint available")
	}

	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	store, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		// History is a convenience; the console works without it.
		log.Warn().Err(err).Msg("search history disabled")
	}
	defer closeHistory()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var changes <-chan struct{}
	if fs, ok := src.(*filesource.Source); ok && cfg.Source.File.Watch {
		changes, err = fs.Watch(runCtx)
		if err != nil {
			return fmt.Errorf("watch log files: %w", err)
		}
	}

	engine := grid.New(grid.Config{
		ItemHeight:        cfg.Grid.ItemHeight,
		LoadMoreThreshold: cfg.Grid.LoadMoreThreshold,
		ReconcileDelay:    cfg.Grid.ReconcileDelay,
		FrameInterval:     cfg.Grid.FrameInterval,
		SettleDelay:       cfg.Grid.SettleDelay,
	})

	opts := tui.Options{
		Config:  cfg,
		Grid:    engine,
		Fetcher: search.NewFetcher(src, cfg.Module.TimeField, nil),
		Changes: changes,
	}
	if store != nil {
		opts.History = store
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		// Stopping the program stops the engine and the watcher.
		defer cancel()
		p := tea.NewProgram(tui.New(opts))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	})

	return g.Wait()
}
