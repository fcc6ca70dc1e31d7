// Package search fetches log rows for a set of search parameters and turns
// them into datasets for the result grid.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/colonyops/loupe/internal/core/logging"
	"github.com/colonyops/loupe/internal/core/record"
	coresearch "github.com/colonyops/loupe/internal/core/search"
)

// ErrBackend is wrapped by every error reported by a search backend, as
// opposed to transport or decoding failures.
var ErrBackend = errors.New("search backend error")

// BackendError is a failure reported by the backend itself.
type BackendError struct {
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code == "" {
		return "backend: " + e.Message
	}
	return fmt.Sprintf("backend: %s (code %s)", e.Message, e.Code)
}

func (e *BackendError) Unwrap() error { return ErrBackend }

// Result is the raw response of a source.
type Result struct {
	Columns       []string
	Rows          []map[string]any
	TotalCount    int
	ExecutionTime time.Duration
}

// Source runs a search.
type Source interface {
	Search(ctx context.Context, p coresearch.Params) (Result, error)
}

// Page is one fetched page turned into a dataset.
type Page struct {
	FetchID  string
	Params   coresearch.Params
	Dataset  record.Dataset
	Columns  []string
	Total    int
	HasMore  bool
	Duration time.Duration
}

// Fetcher wraps a Source and builds datasets from its results.
type Fetcher struct {
	source    Source
	timeField string
	clock     clockwork.Clock
	log       zerolog.Logger
}

// NewFetcher returns a Fetcher. A nil clock uses the real clock.
func NewFetcher(source Source, timeField string, clock clockwork.Clock) *Fetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Fetcher{
		source:    source,
		timeField: timeField,
		clock:     clock,
		log:       logging.Component("fetch"),
	}
}

// Fetch runs p and returns a fresh dataset. Every record gets a new key, so
// fetching the same parameters twice yields disjoint key sets.
func (f *Fetcher) Fetch(ctx context.Context, p coresearch.Params) (Page, error) {
	page, res, err := f.run(ctx, p)
	if err != nil {
		return Page{}, err
	}
	page.Dataset = record.NewDataset(res.Rows, f.timeField, f.clock.Now())
	return page, nil
}

// FetchMore runs the page following prev and appends it to prev's dataset.
// Keys of the records already loaded are kept.
func (f *Fetcher) FetchMore(ctx context.Context, prev Page) (Page, error) {
	page, res, err := f.run(ctx, prev.Params.NextPage())
	if err != nil {
		return Page{}, err
	}
	page.Dataset = prev.Dataset.Append(res.Rows)
	return page, nil
}

func (f *Fetcher) run(ctx context.Context, p coresearch.Params) (Page, Result, error) {
	id := uuid.NewString()
	ctx = logging.WithFetchID(ctx, id)
	ctx = logging.WithModule(ctx, p.Module)

	started := f.clock.Now()
	res, err := f.source.Search(ctx, p)
	if err != nil {
		f.log.Error().Ctx(ctx).Err(err).Str("params", p.Summary()).Msg("search failed")
		return Page{}, Result{}, fmt.Errorf("search %s: %w", p.Summary(), err)
	}

	page := Page{
		FetchID:  id,
		Params:   p.Clone(),
		Columns:  res.Columns,
		Total:    res.TotalCount,
		HasMore:  p.Offset+len(res.Rows) < res.TotalCount,
		Duration: f.clock.Since(started),
	}

	f.log.Debug().Ctx(ctx).
		Int("rows", len(res.Rows)).
		Int("total", res.TotalCount).
		Int("offset", p.Offset).
		Dur("took", page.Duration).
		Msg("search complete")
	return page, res, nil
}
