// Package tui implements the interactive log search console.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/colonyops/loupe/internal/core/config"
	"github.com/colonyops/loupe/internal/core/expansion"
	"github.com/colonyops/loupe/internal/core/logging"
	"github.com/colonyops/loupe/internal/core/record"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/core/styles"
	"github.com/colonyops/loupe/internal/core/viewport"
	"github.com/colonyops/loupe/internal/data/history"
	"github.com/colonyops/loupe/internal/grid"
	"github.com/colonyops/loupe/internal/search"
)

// Rows taken by the search bar, the column header, the status line and help.
const chromeHeight = 6

// maxSummaryColumns bounds the column view when no fields are configured.
const maxSummaryColumns = 4

// Grid is the part of grid.Engine the model drives.
type Grid interface {
	Updates() <-chan grid.Snapshot
	Mount(c viewport.Container)
	Unmount()
	Scroll(scrollTop int)
	Resize(height int)
	Replace(ds record.Dataset, tok expansion.Suppression)
	Append(ds record.Dataset)
	ParamsChanged(prev, next coresearch.Params)
	SetPaging(hasMore, loading bool)
	Toggle(ctx context.Context, key record.Key, expand bool) (expansion.Suppression, error)
}

// Fetcher runs searches.
type Fetcher interface {
	Fetch(ctx context.Context, p coresearch.Params) (search.Page, error)
	FetchMore(ctx context.Context, prev search.Page) (search.Page, error)
}

// Recorder stores executed searches.
type Recorder interface {
	Record(ctx context.Context, p coresearch.Params, rows, total int, took time.Duration) (history.Entry, error)
}

// Options configures a Model.
type Options struct {
	Config  *config.Config
	Grid    Grid
	Fetcher Fetcher
	// History is optional.
	History Recorder
	// Changes, when set, triggers a refresh on every signal.
	Changes <-chan struct{}
	Clock   clockwork.Clock
}

// Model is the root bubbletea model.
type Model struct {
	cfg      *config.Config
	grid     Grid
	fetcher  Fetcher
	recorder Recorder
	changes  <-chan struct{}
	clock    clockwork.Clock
	log      zerolog.Logger

	rows       *pane
	scroller   *pane
	itemHeight int

	width  int
	height int

	snap grid.Snapshot

	// params is what the user asked for; the time range is still relative.
	params coresearch.Params
	// shown holds the resolved params of the displayed dataset.
	shown   coresearch.Params
	page    search.Page
	hasPage bool
	columns []string

	seq         uint64
	loading     bool
	loadingMore bool
	err         error

	top        int
	cursor     int
	columnView bool

	input     textinput.Model
	searching bool
	spinner   spinner.Model
	help      help.Model
	keys      keyMap

	quitting bool
}

// New returns a Model ready to run. The first search starts with Init.
func New(opts Options) Model {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ih := max(1, opts.Config.Grid.ItemHeight)
	rows, scroller := newPanes()

	input := textinput.New()
	input.Prompt = styles.IconSearch + " "
	input.Placeholder = "keywords"
	input.CharLimit = 256
	inputStyles := textinput.DefaultStyles(true)
	inputStyles.Focused.Prompt = styles.SearchPromptStyle
	inputStyles.Blurred.Prompt = styles.TextMutedStyle
	input.SetStyles(inputStyles)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.TextPrimaryStyle

	h := help.New()
	h.ShortSeparator = " • "
	h.Styles.ShortKey = styles.HelpStyle
	h.Styles.ShortDesc = styles.HelpStyle
	h.Styles.ShortSeparator = styles.HelpStyle

	params := opts.Config.Params()
	input.SetValue(strings.Join(params.Keywords, " "))

	m := Model{
		cfg:        opts.Config,
		grid:       opts.Grid,
		fetcher:    opts.Fetcher,
		recorder:   opts.History,
		changes:    opts.Changes,
		clock:      clock,
		log:        logging.Component("tui"),
		rows:       rows,
		scroller:   scroller,
		itemHeight: ih,
		params:     params,
		input:      input,
		spinner:    s,
		help:       h,
		keys:       defaultKeyMap(),
	}
	return m
}

// Init mounts the grid and starts the first search.
func (m Model) Init() tea.Cmd {
	m.grid.Mount(m.rows)

	cmds := []tea.Cmd{
		listenForSnapshot(m.grid.Updates()),
		m.spinner.Tick,
		func() tea.Msg { return refreshTickMsg{} },
	}
	if c := listenForChanges(m.changes); c != nil {
		cmds = append(cmds, c)
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case snapshotMsg:
		return m.handleSnapshot(msg)
	case fetchDoneMsg:
		return m.handleFetchDone(msg)
	case toggledMsg:
		if msg.err != nil && !errors.Is(msg.err, grid.ErrStopped) {
			m.err = msg.err
		}
		return m, nil
	case refreshTickMsg:
		return m.handleRefreshTick()
	case filesChangedMsg:
		m.log.Debug().Msg("files changed, refreshing")
		return m, tea.Batch(m.refresh(), listenForChanges(m.changes))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)
	case tea.KeyPressMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.input.SetWidth(max(10, msg.Width-ansi.StringWidth(m.rangeLabel())-8))

	h := m.gridRows() * m.itemHeight
	m.scroller.setHeight(h)
	m.grid.Resize(h)
	m.clampScroll()
	return m, nil
}

func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	m.snap = msg.snap
	cmds := []tea.Cmd{listenForSnapshot(m.grid.Updates())}

	if msg.snap.ScrollToBottom && m.hasPage && m.page.HasMore && !m.loading && !m.loadingMore {
		m.seq++
		m.loadingMore = true
		m.log.Debug().Int("offset", m.page.Params.Offset).Msg("loading next page")
		cmds = append(cmds, fetchMoreCmd(m.fetcher, m.seq, m.page))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq {
		m.log.Debug().Uint64("seq", msg.seq).Msg("dropping superseded search")
		return m, nil
	}
	m.loading, m.loadingMore = false, false

	if msg.err != nil {
		m.err = msg.err
		m.grid.SetPaging(m.hasPage && m.page.HasMore, false)
		return m, nil
	}
	m.err = nil

	page := msg.page
	if msg.more {
		m.grid.Append(page.Dataset)
		m.grid.SetPaging(page.HasMore, false)
		m.page = page
		return m, nil
	}

	reset := !m.hasPage || coresearch.ShouldResetExpansion(m.shown, page.Params)
	m.grid.ParamsChanged(m.shown, page.Params)
	m.grid.Replace(page.Dataset, 0)
	m.grid.SetPaging(page.HasMore, false)

	m.shown = page.Params
	m.page = page
	m.hasPage = true
	if len(page.Columns) > 0 {
		m.columns = page.Columns
	}

	if reset {
		m.top, m.cursor = 0, 0
		m.grid.Scroll(0)
	} else {
		m.clampScroll()
	}
	return m, recordCmd(m.recorder, page)
}

func (m Model) handleRefreshTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{scheduleRefresh(m.cfg.Search.AutoRefresh)}
	// The first tick is the initial search; later ticks re-resolve the
	// relative time range, which moves the window and clears expansions.
	if !m.loading && !m.loadingMore {
		cmds = append(cmds, m.startSearch())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseWheelDown:
		m.scrollBy(3)
	case tea.MouseWheelUp:
		m.scrollBy(-3)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.searching = false
		m.input.Blur()
		m.params.Keywords = strings.Fields(m.input.Value())
		return m, m.startSearch()
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.input.Blur()
		m.input.SetValue(strings.Join(m.params.Keywords, " "))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.grid.Unmount()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.ClearStatus):
		m.err = nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.gridRows())
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.gridRows())
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.snap.Length)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.snap.Length)
	case key.Matches(msg, m.keys.Toggle):
		rec, ok := m.snap.Row(m.cursor)
		if !ok {
			return m, nil
		}
		return m, toggleCmd(m.grid, rec.Key, !m.snap.IsExpanded(rec.Key))
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.TimeRange):
		m.params.TimeRange = coresearch.NextTimeRange(m.params.TimeRange)
		m.params.StartTime, m.params.EndTime = "", ""
		return m, m.startSearch()
	case key.Matches(msg, m.keys.Columns):
		m.columnView = !m.columnView
		m.params.Fields = m.viewFields()
		return m, m.startSearch()
	}
	return m, nil
}

// startSearch resolves the current params from the first page and fetches
// them.
func (m *Model) startSearch() tea.Cmd {
	p, err := coresearch.ResolveTimeRange(m.params.FirstPage(), m.clock.Now())
	if err != nil {
		m.err = err
		return nil
	}
	return m.fetch(p)
}

// refresh fetches the displayed params again. Keys are regenerated and
// expanded rows are carried over by reconciliation.
func (m *Model) refresh() tea.Cmd {
	if !m.hasPage {
		return m.startSearch()
	}
	return m.fetch(m.shown.FirstPage())
}

func (m *Model) fetch(p coresearch.Params) tea.Cmd {
	m.seq++
	m.loading = true
	m.loadingMore = false
	m.grid.SetPaging(m.hasPage && m.page.HasMore, true)
	m.log.Debug().Str("params", p.Summary()).Uint64("seq", m.seq).Msg("search")
	return fetchCmd(m.fetcher, m.seq, p)
}

// viewFields returns the fields requested in column view. An empty result
// asks the source for every field.
func (m *Model) viewFields() []string {
	if !m.columnView {
		return nil
	}
	if len(m.cfg.Search.Fields) > 0 {
		return m.cfg.Search.Fields
	}
	out := make([]string, 0, maxSummaryColumns)
	for _, c := range m.columns {
		if c == m.timeField() || c == record.SourceField {
			continue
		}
		out = append(out, c)
		if len(out) == maxSummaryColumns {
			break
		}
	}
	return out
}

func (m *Model) moveCursor(delta int) {
	if m.snap.Length == 0 {
		m.cursor = 0
		return
	}
	m.cursor = max(0, min(m.snap.Length-1, m.cursor+delta))
	m.ensureVisible()
}

func (m *Model) scrollBy(delta int) {
	m.top += delta
	m.clampScroll()
	m.cursor = max(m.top, min(m.cursor, m.top+m.gridRows()-1))
	m.cursor = max(0, min(m.cursor, m.snap.Length-1))
}

// ensureVisible scrolls so the cursor row and its expanded detail fit in the
// grid.
func (m *Model) ensureVisible() {
	rows := m.gridRows()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	for m.top < m.cursor {
		used := 0
		for i := m.top; i <= m.cursor; i++ {
			used += m.rowHeight(i)
		}
		if used <= rows {
			break
		}
		m.top++
	}
	m.clampScroll()
}

func (m *Model) clampScroll() {
	maxTop := max(0, m.snap.Length-m.gridRows())
	m.top = max(0, min(m.top, maxTop))
	if m.snap.Length > 0 {
		m.cursor = max(0, min(m.cursor, m.snap.Length-1))
	}
	m.grid.Scroll(m.top * m.itemHeight)
}

func (m Model) rowHeight(i int) int {
	rec, ok := m.snap.Row(i)
	if !ok || !m.snap.IsExpanded(rec.Key) {
		return 1
	}
	return 1 + len(detailLines(rec, max(1, m.width-1)))
}

func (m Model) gridRows() int {
	if m.height == 0 {
		return viewport.DefaultVisibleRows
	}
	return max(1, m.height-chromeHeight)
}

func (m Model) timeField() string {
	return m.cfg.Module.TimeField
}

func (m Model) rangeLabel() string {
	if m.params.TimeRange == "" {
		return "custom range"
	}
	return coresearch.TimeRangeLabel(m.params.TimeRange)
}
