package filesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coresearch "github.com/colonyops/loupe/internal/core/search"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func newTestSource(t *testing.T) (*Source, string) {
	t.Helper()
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "a.ndjson"),
		`{"log_time":"2025-03-12 10:00:00.000","host":"web-1","level":"INFO","message":"started"}`,
		`{"log_time":"2025-03-12 10:05:00.000","host":"web-1","level":"ERROR","message":"upstream timeout"}`,
		``,
		`not json`,
	)
	writeLines(t, filepath.Join(dir, "nested", "b.ndjson"),
		`{"log_time":"2025-03-12 10:02:00.000","host":"web-2","level":"WARN","message":"slow request"}`,
		`{"log_time":"2025-03-12 09:00:00.000","host":"web-2","level":"ERROR","message":"Timeout talking to db"}`,
	)
	writeLines(t, filepath.Join(dir, "ignored.txt"), `{"log_time":"2025-03-12 10:03:00.000"}`)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 12, 10, 10, 0, 0, time.Local))
	return New(Options{
		Paths: []string{filepath.Join(dir, "**", "*.ndjson")},
		Clock: clock,
	}), dir
}

func messages(rows []map[string]any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["message"].(string)
	}
	return out
}

func TestSource_Search(t *testing.T) {
	src, _ := newTestSource(t)

	tests := []struct {
		name   string
		params coresearch.Params
		want   []string
		total  int
	}{
		{
			name:   "all newest first",
			params: coresearch.Params{},
			want:   []string{"upstream timeout", "slow request", "started", "Timeout talking to db"},
			total:  4,
		},
		{
			name:   "keyword is case insensitive",
			params: coresearch.Params{Keywords: []string{"TIMEOUT"}},
			want:   []string{"upstream timeout", "Timeout talking to db"},
			total:  2,
		},
		{
			name:   "keywords must all match",
			params: coresearch.Params{Keywords: []string{"timeout", "web-2"}},
			want:   []string{"Timeout talking to db"},
			total:  1,
		},
		{
			name:   "where equals",
			params: coresearch.Params{WhereSQLs: []string{"level = 'ERROR'"}},
			want:   []string{"upstream timeout", "Timeout talking to db"},
			total:  2,
		},
		{
			name:   "where not equals",
			params: coresearch.Params{WhereSQLs: []string{"host != 'web-1'"}},
			want:   []string{"slow request", "Timeout talking to db"},
			total:  2,
		},
		{
			name:   "relative time range",
			params: coresearch.Params{TimeRange: "last_15m"},
			want:   []string{"upstream timeout", "slow request", "started"},
			total:  3,
		},
		{
			name: "explicit bounds",
			params: coresearch.Params{
				StartTime: "2025-03-12 10:01:00.000",
				EndTime:   "2025-03-12 10:04:00.000",
			},
			want:  []string{"slow request"},
			total: 1,
		},
		{
			name:   "paging",
			params: coresearch.Params{PageSize: 2, Offset: 2},
			want:   []string{"started", "Timeout talking to db"},
			total:  4,
		},
		{
			name:   "offset past end",
			params: coresearch.Params{PageSize: 2, Offset: 10},
			want:   []string{},
			total:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := src.Search(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, messages(res.Rows))
			assert.Equal(t, tt.total, res.TotalCount)
		})
	}
}

func TestSource_Columns(t *testing.T) {
	src, _ := newTestSource(t)

	res, err := src.Search(context.Background(), coresearch.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log_time", "host", "level", "message"}, res.Columns)

	res, err = src.Search(context.Background(), coresearch.Params{Fields: []string{"message", "log_time"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"log_time", "message"}, res.Columns)
}

func TestSource_UnsupportedWhere(t *testing.T) {
	src, _ := newTestSource(t)

	for _, clause := range []string{"level IN ('ERROR')", "status > 500", "host = web-1"} {
		t.Run(clause, func(t *testing.T) {
			_, err := src.Search(context.Background(), coresearch.Params{WhereSQLs: []string{clause}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedWhere))
		})
	}
}

func TestParseWhere_QuotedValue(t *testing.T) {
	conds, err := parseWhere([]string{"message = 'it''s down'", "  "})
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, "it's down", conds[0].value)
	assert.True(t, conds[0].match(map[string]any{"message": "it's down"}))
	assert.False(t, conds[0].match(map[string]any{}))
}

func TestSource_NoMatches(t *testing.T) {
	src := New(Options{Paths: []string{filepath.Join(t.TempDir(), "*.ndjson")}})

	res, err := src.Search(context.Background(), coresearch.Params{})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.TotalCount)
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.ndjson")
	writeLines(t, path, `{"log_time":"2025-03-12 10:00:00.000","message":"one"}`)

	clock := clockwork.NewFakeClock()
	src := New(Options{Paths: []string{filepath.Join(dir, "*.ndjson")}, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := src.Watch(ctx)
	require.NoError(t, err)

	writeLines(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeLines(t, path, `{"message":"one"}`, `{"message":"two"}`)

	require.Eventually(t, func() bool {
		clock.Advance(DebounceDelay)
		select {
		case _, ok := <-changes:
			return ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
