package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/loupe/internal/core/config"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/search"
)

type fakeSource struct {
	files  []string
	total  int
	err    error
	params coresearch.Params
}

func (f *fakeSource) Search(_ context.Context, p coresearch.Params) (search.Result, error) {
	f.params = p
	if f.err != nil {
		return search.Result{}, f.err
	}
	return search.Result{TotalCount: f.total}, nil
}

type fakeFileSource struct {
	fakeSource
}

func (f *fakeFileSource) Files() ([]string, error) { return f.files, nil }

var fixedNow = func() time.Time { return time.Date(2025, 3, 12, 10, 30, 0, 0, time.Local) }

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	result := NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "defaults", result.Items[0].Label)

	cfg.TUI.Theme = "nope"
	cfg.Search.AutoRefresh = 10 * time.Millisecond
	result = NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 2)
	for _, item := range result.Items {
		assert.Equal(t, StatusFail, item.Status)
	}
}

func TestStorageCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	result := NewStorageCheck(dir, func(context.Context) error { return nil }).Run(context.Background())
	require.Len(t, result.Items, 2)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, StatusPass, result.Items[1].Status)
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	result = NewStorageCheck(dir, func(context.Context) error { return errors.New("locked") }).Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[1].Status)
	assert.Equal(t, "locked", result.Items[1].Detail)
}

func TestStorageCheck_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	result := NewStorageCheck(file, func(context.Context) error { return nil }).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestSourceCheck(t *testing.T) {
	params := coresearch.Params{Module: "nginx", TimeRange: "last_15m", PageSize: 100, Offset: 300}

	t.Run("reachable", func(t *testing.T) {
		src := &fakeSource{total: 42}
		result := NewSourceCheck("http", src, params, fixedNow).Run(context.Background())

		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusPass, result.Items[0].Status)
		assert.Contains(t, result.Items[0].Detail, "42 rows in Last 15 minutes")
		assert.Equal(t, 1, src.params.PageSize)
		assert.Equal(t, 0, src.params.Offset)
		assert.Equal(t, "2025-03-12 10:15:00.000", src.params.StartTime)
	})

	t.Run("backend error", func(t *testing.T) {
		src := &fakeSource{err: &search.BackendError{Code: "2001", Message: "module not found"}}
		result := NewSourceCheck("http", src, params, fixedNow).Run(context.Background())

		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusFail, result.Items[0].Status)
		assert.Contains(t, result.Items[0].Detail, "module not found")
	})

	t.Run("no files", func(t *testing.T) {
		src := &fakeFileSource{}
		result := NewSourceCheck("file", src, params, fixedNow).Run(context.Background())

		require.Len(t, result.Items, 2)
		assert.Equal(t, StatusWarn, result.Items[0].Status)
		assert.Equal(t, StatusPass, result.Items[1].Status)

		passed, warned, failed := Summary([]Result{result})
		assert.Equal(t, [3]int{1, 1, 0}, [3]int{passed, warned, failed})
	})
}

type namedCheck string

func (c namedCheck) Name() string { return string(c) }

func (c namedCheck) Run(context.Context) Result {
	return Result{Name: string(c), Items: []CheckItem{pass(string(c), "")}}
}

func TestRunAll_KeepsOrder(t *testing.T) {
	results := RunAll(context.Background(), []Check{namedCheck("b"), namedCheck("a")})
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Name)
	assert.Equal(t, "a", results[1].Name)
}

func TestErrorCheck(t *testing.T) {
	result := NewErrorCheck("Source", "ftp", errors.New("unsupported source kind")).Run(context.Background())
	assert.Equal(t, "Source", result.Name)
	require.Len(t, result.Items, 1)
	assert.Equal(t, CheckItem{Label: "ftp", Status: StatusFail, Detail: "unsupported source kind"}, result.Items[0])
}
