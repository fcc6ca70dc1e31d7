// Package filesource searches newline-delimited JSON log files on disk.
package filesource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/colonyops/loupe/internal/core/logging"
	"github.com/colonyops/loupe/internal/core/record"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/search"
)

const maxLineSize = 4 << 20

// Options configures a Source.
type Options struct {
	// Paths are doublestar globs such as "logs/**/*.ndjson".
	Paths     []string
	TimeField string
	Clock     clockwork.Clock
}

// Source implements search.Source over local NDJSON files.
type Source struct {
	paths     []string
	timeField string
	clock     clockwork.Clock
	log       zerolog.Logger
}

// New returns a Source reading the files matched by opts.Paths.
func New(opts Options) *Source {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TimeField == "" {
		opts.TimeField = record.DefaultTimeField
	}
	return &Source{
		paths:     slices.Clone(opts.Paths),
		timeField: opts.TimeField,
		clock:     opts.Clock,
		log:       logging.Component("filesource"),
	}
}

type entry struct {
	row  map[string]any
	at   time.Time
	seen bool
}

// Search reads every matched file and returns the page described by p,
// newest first.
func (s *Source) Search(ctx context.Context, p coresearch.Params) (search.Result, error) {
	started := s.clock.Now()

	conds, err := parseWhere(p.WhereSQLs)
	if err != nil {
		return search.Result{}, err
	}

	if p.StartTime == "" && p.EndTime == "" && p.TimeRange != "" {
		if p, err = coresearch.ResolveTimeRange(p, s.clock.Now()); err != nil {
			return search.Result{}, err
		}
	}
	from, hasFrom := parseBound(p.StartTime)
	to, hasTo := parseBound(p.EndTime)

	files, err := s.Files()
	if err != nil {
		return search.Result{}, err
	}

	keywords := make([]string, 0, len(p.Keywords))
	for _, k := range p.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, strings.ToLower(k))
		}
	}

	var matched []entry
	columns := map[string]struct{}{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return search.Result{}, err
		}
		err := s.scan(ctx, file, func(row map[string]any) {
			e := entry{row: row}
			if v, ok := row[s.timeField].(string); ok {
				e.at, e.seen = record.ParseTime(v)
			}
			if (hasFrom || hasTo) && !e.seen {
				return
			}
			if (hasFrom && e.at.Before(from)) || (hasTo && e.at.After(to)) {
				return
			}
			for _, c := range conds {
				if !c.match(row) {
					return
				}
			}
			if !matchKeywords(row, keywords) {
				return
			}
			for name := range row {
				columns[name] = struct{}{}
			}
			matched = append(matched, e)
		})
		if err != nil {
			return search.Result{}, err
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.seen != b.seen {
			return a.seen
		}
		return a.at.After(b.at)
	})

	total := len(matched)
	start := min(p.Offset, total)
	end := min(start+p.Limit(), total)
	rows := make([]map[string]any, 0, end-start)
	for _, e := range matched[start:end] {
		rows = append(rows, e.row)
	}

	return search.Result{
		Columns:       s.columns(p.Fields, columns),
		Rows:          rows,
		TotalCount:    total,
		ExecutionTime: s.clock.Since(started),
	}, nil
}

// Files returns the files currently matched by the configured globs, sorted
// and without duplicates.
func (s *Source) Files() ([]string, error) {
	seen := map[string]struct{}{}
	var files []string
	for _, pattern := range s.paths {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Source) scan(ctx context.Context, path string, fn func(map[string]any)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(b, &row); err != nil {
			s.log.Warn().Ctx(ctx).Str("file", path).Int("line", line).Err(err).Msg("skipping malformed line")
			continue
		}
		fn(row)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (s *Source) columns(fields []string, seen map[string]struct{}) []string {
	if len(fields) > 0 {
		out := []string{s.timeField}
		for _, f := range fields {
			if f != s.timeField {
				out = append(out, f)
			}
		}
		return out
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		if name != s.timeField {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if _, ok := seen[s.timeField]; ok {
		out = append([]string{s.timeField}, out...)
	}
	return out
}

func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	return record.ParseTime(s)
}

func matchKeywords(row map[string]any, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	values := make([]string, 0, len(row))
	for _, v := range row {
		values = append(values, strings.ToLower(record.Stringify(v)))
	}
	for _, k := range keywords {
		if !slices.ContainsFunc(values, func(v string) bool { return strings.Contains(v, k) }) {
			return false
		}
	}
	return true
}

var _ search.Source = (*Source)(nil)
