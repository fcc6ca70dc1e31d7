// Package history records executed searches in the loupe database.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/data/db"
)

// DefaultLimit bounds List when no limit is given.
const DefaultLimit = 50

// Entry is one executed search.
type Entry struct {
	ID         int64         `json:"id"`
	Module     string        `json:"module"`
	Keywords   []string      `json:"keywords"`
	WhereSQLs  []string      `json:"whereSqls"`
	TimeRange  string        `json:"timeRange,omitempty"`
	StartTime  string        `json:"startTime,omitempty"`
	EndTime    string        `json:"endTime,omitempty"`
	RowCount   int           `json:"rowCount"`
	TotalCount int           `json:"totalCount"`
	Duration   time.Duration `json:"duration"`
	ExecutedAt time.Time     `json:"executedAt"`
}

// Params rebuilds the search parameters of the entry.
func (e Entry) Params() search.Params {
	return search.Params{
		Module:    e.Module,
		Keywords:  e.Keywords,
		WhereSQLs: e.WhereSQLs,
		TimeRange: e.TimeRange,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
	}
}

// Store persists entries.
type Store struct {
	db    *db.DB
	clock clockwork.Clock
}

// New returns a Store on database. A nil clock uses the real clock.
func New(database *db.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: database, clock: clock}
}

// Record stores a search that returned rows of total matches.
func (s *Store) Record(ctx context.Context, p search.Params, rows, total int, took time.Duration) (Entry, error) {
	e := Entry{
		Module:     p.Module,
		Keywords:   nonNil(p.Keywords),
		WhereSQLs:  nonNil(p.WhereSQLs),
		TimeRange:  p.TimeRange,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		RowCount:   rows,
		TotalCount: total,
		Duration:   took,
		ExecutedAt: s.clock.Now(),
	}

	keywords, err := json.Marshal(e.Keywords)
	if err != nil {
		return Entry{}, err
	}
	where, err := json.Marshal(e.WhereSQLs)
	if err != nil {
		return Entry{}, err
	}

	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO search_history
			(module, keywords, where_sqls, time_range, start_time, end_time,
			 row_count, total_count, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Module, string(keywords), string(where), e.TimeRange, e.StartTime, e.EndTime,
		e.RowCount, e.TotalCount, e.Duration.Milliseconds(), e.ExecutedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	return e, nil
}

// List returns the most recent entries, newest first. module filters by module
// when not empty.
func (s *Store) List(ctx context.Context, module string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, module, keywords, where_sqls, time_range, start_time, end_time,
		       row_count, total_count, duration_ms, executed_at
		FROM search_history
		WHERE ? = '' OR module = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, module, module, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			keywords, where   string
			durMs, executedMs int64
		)
		if err := rows.Scan(&e.ID, &e.Module, &keywords, &where, &e.TimeRange, &e.StartTime, &e.EndTime,
			&e.RowCount, &e.TotalCount, &durMs, &executedMs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords of entry %d: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(where), &e.WhereSQLs); err != nil {
			return nil, fmt.Errorf("decode where clauses of entry %d: %w", e.ID, err)
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.ExecutedAt = time.UnixMilli(executedMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM search_history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
