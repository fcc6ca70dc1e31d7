package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/loupe/internal/core/logging"
	coresearch "github.com/colonyops/loupe/internal/core/search"
)

type fakeSource struct {
	rows     []map[string]any
	err      error
	calls    []coresearch.Params
	fetchIDs []string
}

func (s *fakeSource) Search(ctx context.Context, p coresearch.Params) (Result, error) {
	s.calls = append(s.calls, p)
	s.fetchIDs = append(s.fetchIDs, logging.GetFetchID(ctx))
	if s.err != nil {
		return Result{}, s.err
	}
	end := min(p.Offset+p.Limit(), len(s.rows))
	start := min(p.Offset, end)
	return Result{
		Columns:    []string{"log_time", "host"},
		Rows:       s.rows[start:end],
		TotalCount: len(s.rows),
	}, nil
}

func rows(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"log_time":   "2025-01-01 00:00:00.000",
			"host":       "h",
			"log_offset": float64(i),
		}
	}
	return out
}

func TestFetcher_Fetch(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	src := &fakeSource{rows: rows(5)}
	f := NewFetcher(src, "log_time", clock)

	page, err := f.Fetch(context.Background(), coresearch.Params{Module: "m", PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Dataset.Len())
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.FetchID)
	assert.Equal(t, page.FetchID, src.fetchIDs[0])
	assert.Equal(t, "1700000000000_0", string(page.Dataset.At(0).Key))
}

func TestFetcher_FetchMoreKeepsKeys(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{rows: rows(5)}
	f := NewFetcher(src, "log_time", clock)

	first, err := f.Fetch(context.Background(), coresearch.Params{Module: "m", PageSize: 3})
	require.NoError(t, err)

	clock.Advance(time.Second)
	more, err := f.FetchMore(context.Background(), first)
	require.NoError(t, err)

	require.Equal(t, 5, more.Dataset.Len())
	assert.False(t, more.HasMore)
	assert.Equal(t, 3, more.Params.Offset)
	for i := range first.Dataset.Len() {
		assert.Equal(t, first.Dataset.At(i).Key, more.Dataset.At(i).Key)
	}
	assert.NotEqual(t, src.fetchIDs[0], src.fetchIDs[1])
}

func TestFetcher_RefetchRegeneratesKeys(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := NewFetcher(&fakeSource{rows: rows(2)}, "log_time", clock)

	a, err := f.Fetch(context.Background(), coresearch.Params{Module: "m"})
	require.NoError(t, err)
	clock.Advance(time.Millisecond)
	b, err := f.Fetch(context.Background(), coresearch.Params{Module: "m"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Dataset.At(0).Key, b.Dataset.At(0).Key)
	assert.Equal(t, a.Dataset.At(0).Identity, b.Dataset.At(0).Identity)
}

func TestFetcher_Error(t *testing.T) {
	src := &fakeSource{err: &BackendError{Code: "5000", Message: "boom"}}
	f := NewFetcher(src, "log_time", clockwork.NewFakeClock())

	_, err := f.Fetch(context.Background(), coresearch.Params{Module: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "5000", be.Code)
}
