package tui

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/loupe/internal/core/record"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/grid"
	"github.com/colonyops/loupe/internal/search"
)

// snapshotMsg carries the latest grid state.
type snapshotMsg struct {
	snap grid.Snapshot
}

// fetchDoneMsg reports a finished search. seq identifies the request so that
// results of superseded searches are dropped.
type fetchDoneMsg struct {
	seq  uint64
	more bool
	page search.Page
	err  error
}

type toggledMsg struct {
	err error
}

type refreshTickMsg struct{}

type filesChangedMsg struct{}

// listenForSnapshot waits for the next snapshot. It is re-issued after every
// snapshotMsg.
func listenForSnapshot(ch <-chan grid.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{snap: snap}
	}
}

func listenForChanges(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return filesChangedMsg{}
	}
}

func scheduleRefresh(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func fetchCmd(f Fetcher, seq uint64, p coresearch.Params) tea.Cmd {
	return func() tea.Msg {
		page, err := f.Fetch(context.Background(), p)
		return fetchDoneMsg{seq: seq, page: page, err: err}
	}
}

func fetchMoreCmd(f Fetcher, seq uint64, prev search.Page) tea.Cmd {
	return func() tea.Msg {
		page, err := f.FetchMore(context.Background(), prev)
		return fetchDoneMsg{seq: seq, more: true, page: page, err: err}
	}
}

func toggleCmd(g Grid, key record.Key, expand bool) tea.Cmd {
	return func() tea.Msg {
		_, err := g.Toggle(context.Background(), key, expand)
		return toggledMsg{err: err}
	}
}

func recordCmd(r Recorder, page search.Page) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		_, err := r.Record(context.Background(), page.Params, page.Dataset.Len(), page.Total, page.Duration)
		if err != nil {
			log.Warn().Err(err).Str("fetch_id", page.FetchID).Msg("record search history")
		}
		return nil
	}
}
