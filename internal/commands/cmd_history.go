package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/loupe/internal/data/history"
	"github.com/colonyops/loupe/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags

	// flags
	module     string
	limit      int
	jsonOutput bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List recently executed searches",
		UsageText: "loupe history [--module name] [--limit n] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "module",
				Aliases:     []string{"m"},
				Usage:       "only show searches of this module",
				Destination: &cmd.module,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of entries",
				Value:       history.DefaultLimit,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: ModuleCompleter(cmd.flags),
		Action:        cmd.run,
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Delete every history entry",
				Action: cmd.clear,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	store, closeHistory, err := openHistory(ctx, cmd.flags.Config)
	defer closeHistory()
	if err != nil {
		return err
	}

	entries, err := store.List(ctx, cmd.module, cmd.limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, e := range entries {
			if err := iojson.WriteLine(out, e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		return nil
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(errWriter(c), "No searches recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEXECUTED\tSEARCH\tROWS\tTOOK")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%s\n",
			e.ID,
			e.ExecutedAt.Local().Format(time.DateTime),
			e.Params().Summary(),
			e.RowCount, e.TotalCount,
			e.Duration.Round(time.Millisecond),
		)
	}
	return w.Flush()
}

func (cmd *HistoryCmd) clear(ctx context.Context, c *cli.Command) error {
	store, closeHistory, err := openHistory(ctx, cmd.flags.Config)
	defer closeHistory()
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "History cleared")
	return nil
}
