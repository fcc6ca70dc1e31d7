package history

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/data/db"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	database, err := db.Open(context.Background(), t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_741_773_600_000))
	return New(database, clock), clock
}

func TestStore_RecordAndList(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx, search.Params{
		Module:    "nginx",
		Keywords:  []string{"timeout"},
		WhereSQLs: []string{"level = 'ERROR'"},
		TimeRange: "last_15m",
	}, 100, 420, 35*time.Millisecond)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	clock.Advance(time.Minute)
	_, err = s.Record(ctx, search.Params{Module: "api"}, 3, 3, time.Millisecond)
	require.NoError(t, err)

	entries, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "api", entries[0].Module)
	assert.Equal(t, []string{}, entries[0].Keywords)

	got := entries[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, []string{"timeout"}, got.Keywords)
	assert.Equal(t, []string{"level = 'ERROR'"}, got.WhereSQLs)
	assert.Equal(t, "last_15m", got.TimeRange)
	assert.Equal(t, 100, got.RowCount)
	assert.Equal(t, 420, got.TotalCount)
	assert.Equal(t, 35*time.Millisecond, got.Duration)
	assert.True(t, first.ExecutedAt.Equal(got.ExecutedAt))
	assert.Equal(t, "last_15m", got.Params().TimeRange)
}

func TestStore_ListFilterAndLimit(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for _, module := range []string{"a", "b", "a", "a"} {
		_, err := s.Record(ctx, search.Params{Module: module}, 0, 0, 0)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	entries, err := s.List(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "a", e.Module)
	}
	assert.True(t, entries[0].ExecutedAt.After(entries[1].ExecutedAt))
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, search.Params{Module: "m"}, 1, 1, 0)
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx))

	entries, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
