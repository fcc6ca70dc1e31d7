package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/loupe/internal/core/record"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/search"
	"github.com/colonyops/loupe/pkg/iojson"
)

// maxCellWidth bounds a table cell; longer values are cut with an ellipsis.
const maxCellWidth = 60

type QueryCmd struct {
	flags *Flags
	clock clockwork.Clock

	// flags
	keywords   []string
	where      []string
	timeRange  string
	start      string
	end        string
	fields     []string
	limit      int
	offset     int
	jsonOutput bool
	noHistory  bool
	params     *iojson.FileReader[coresearch.Params]
}

// NewQueryCmd creates a new query command
func NewQueryCmd(flags *Flags) *QueryCmd {
	return &QueryCmd{
		flags:  flags,
		clock:  clockwork.NewRealClock(),
		params: iojson.NewFileReader[coresearch.Params]("params-file", "read search params from a JSON file (- for stdin); other flags override it"),
	}
}

// Register adds the query command to the application
func (cmd *QueryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "query",
		Aliases:   []string{"q"},
		Usage:     "Run one search and print the matching rows",
		UsageText: "loupe query [options] [keyword...]",
		Description: `Runs a single search against the configured source and prints one page of rows.

Positional arguments are added to the --keyword list. Without --range, --start
or --end the configured time range is used.

Use --json for JSON lines output of the raw rows.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "keyword",
				Aliases:     []string{"k"},
				Usage:       "keyword every row must contain (repeatable)",
				Destination: &cmd.keywords,
			},
			&cli.StringSliceFlag{
				Name:        "where",
				Aliases:     []string{"w"},
				Usage:       "where clause such as \"level = 'error'\" (repeatable)",
				Destination: &cmd.where,
			},
			&cli.StringFlag{
				Name:        "range",
				Aliases:     []string{"r"},
				Usage:       "relative time range (" + strings.Join(coresearch.TimeRanges, ", ") + ")",
				Destination: &cmd.timeRange,
			},
			&cli.StringFlag{
				Name:        "start",
				Usage:       "absolute start time (2006-01-02 15:04:05.000); replaces the time range",
				Destination: &cmd.start,
			},
			&cli.StringFlag{
				Name:        "end",
				Usage:       "absolute end time; replaces the time range",
				Destination: &cmd.end,
			},
			&cli.StringSliceFlag{
				Name:        "fields",
				Usage:       "fields to request and print",
				Destination: &cmd.fields,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "rows per page (defaults to search.page_size)",
				Destination: &cmd.limit,
			},
			&cli.IntFlag{
				Name:        "offset",
				Usage:       "number of rows to skip",
				Destination: &cmd.offset,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output rows as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "no-history",
				Usage:       "do not record the search in the history",
				Destination: &cmd.noHistory,
			},
			cmd.params.Flag(),
		},
		ShellComplete: TimeRangeCompleter(),
		Action:        cmd.run,
	})

	return app
}

func (cmd *QueryCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	p, err := cmd.buildParams(c.Args().Slice())
	if err != nil {
		return err
	}
	p, err = coresearch.ResolveTimeRange(p, cmd.clock.Now())
	if err != nil {
		return err
	}

	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	page, err := search.NewFetcher(src, cfg.Module.TimeField, cmd.clock).Fetch(ctx, p)
	if err != nil {
		return err
	}

	if !cmd.noHistory {
		cmd.record(ctx, page)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, rec := range page.Dataset.Records() {
			if err := iojson.WriteLine(out, rec.Fields[record.SourceField]); err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
		}
		return nil
	}

	if page.Dataset.Len() == 0 {
		_, _ = fmt.Fprintln(errWriter(c), "No rows found")
		return nil
	}

	if err := writeTable(out, page, cfg.Module.TimeField, terminalWidth(out)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(errWriter(c), "%d of %d rows in %s\n",
		page.Dataset.Len(), page.Total, page.Duration.Round(time.Millisecond))
	return nil
}

// buildParams starts from the configured search, or the params file when one
// is given, and applies the flags on top.
func (cmd *QueryCmd) buildParams(args []string) (coresearch.Params, error) {
	cfg := cmd.flags.Config
	p := cfg.Params()

	if cmd.params.Set() {
		fp, err := cmd.params.Read()
		if err != nil {
			return p, fmt.Errorf("read params: %w", err)
		}
		p = fp
		if p.Module == "" {
			p.Module = cfg.Module.Name
		}
	}

	if kw := append(slices.Clone(cmd.keywords), args...); len(kw) > 0 {
		p.Keywords = kw
	}
	if len(cmd.where) > 0 {
		p.WhereSQLs = cmd.where
	}
	if len(cmd.fields) > 0 {
		p.Fields = cmd.fields
	}
	if cmd.limit > 0 {
		p.PageSize = cmd.limit
	}
	if cmd.offset < 0 {
		return p, fmt.Errorf("--offset must not be negative")
	}
	p.Offset = cmd.offset

	if cmd.timeRange != "" {
		if !coresearch.ValidTimeRange(cmd.timeRange) {
			return p, fmt.Errorf("unknown time range %q, available: %s", cmd.timeRange, strings.Join(coresearch.TimeRanges, ", "))
		}
		p.TimeRange = cmd.timeRange
		p.StartTime, p.EndTime = "", ""
	}

	if cmd.start != "" || cmd.end != "" {
		start, err := normalizeTime("--start", cmd.start)
		if err != nil {
			return p, err
		}
		end, err := normalizeTime("--end", cmd.end)
		if err != nil {
			return p, err
		}
		p.TimeRange = ""
		p.StartTime, p.EndTime = start, end
	}

	return p, nil
}

func (cmd *QueryCmd) record(ctx context.Context, page search.Page) {
	store, closeHistory, err := openHistory(ctx, cmd.flags.Config)
	defer closeHistory()
	if err != nil {
		log.Warn().Err(err).Msg("search history disabled")
		return
	}
	if _, err := store.Record(ctx, page.Params, page.Dataset.Len(), page.Total, page.Duration); err != nil {
		log.Warn().Err(err).Str("fetch_id", page.FetchID).Msg("record search history")
	}
}

func normalizeTime(flag, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	t, ok := record.ParseTime(s)
	if !ok {
		return "", fmt.Errorf("%s: cannot parse %q, expected %s", flag, s, record.TimeLayout)
	}
	return t.Format(record.TimeLayout), nil
}

// tableColumns returns the time field followed by the requested fields, or
// by the columns the source reported when none were requested.
func tableColumns(page search.Page, timeField string) []string {
	fields := page.Params.Fields
	if len(fields) == 0 {
		fields = page.Columns
	}
	if len(fields) == 0 && page.Dataset.Len() > 0 {
		fields = page.Dataset.At(0).Names()
	}

	cols := []string{timeField}
	for _, f := range fields {
		if f == timeField || f == record.SourceField {
			continue
		}
		cols = append(cols, f)
	}
	return cols
}

// writeTable prints the page as aligned columns. A positive width cuts every
// line to the terminal.
func writeTable(out io.Writer, page search.Page, timeField string, width int) error {
	cols := tableColumns(page, timeField)

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = strings.ToUpper(c)
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	cells := make([]string, len(cols))
	for _, rec := range page.Dataset.Records() {
		for i, c := range cols {
			v := strings.Join(strings.Fields(rec.String(c)), " ")
			cells[i] = ansi.Truncate(v, maxCellWidth, "…")
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	for line := range strings.Lines(buf.String()) {
		line = strings.TrimRight(line, "\n")
		if width > 0 {
			line = ansi.Truncate(line, width, "…")
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// terminalWidth returns the width of out when it is a terminal, else 0.
func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
