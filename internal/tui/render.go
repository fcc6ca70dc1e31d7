package tui

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/styles"
)

const (
	defaultWidth  = 80
	timeWidth     = len(record.TimeLayout)
	columnWidth   = 24
	markerWidth   = 4
	maxValueLines = 8
)

// summaryFields are shown before any other field in the summary view.
var summaryFields = []string{"level", "host", "source", "message", "msg"}

// View renders the TUI.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderSearchBar(),
		m.renderHeader(),
		m.renderGrid(),
		m.renderStatus(),
		m.renderHelp(),
	)

	v := tea.NewView(content)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (m Model) viewWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) renderSearchBar() string {
	w := m.viewWidth()
	label := styles.TextPrimaryStyle.Render(m.rangeLabel())
	inner := max(1, w-4)

	input := m.input.View()
	gap := max(1, inner-lipgloss.Width(input)-lipgloss.Width(label))
	line := ansi.Truncate(input+strings.Repeat(" ", gap)+label, inner, "")
	return styles.SearchBarStyle.Width(w).Render(line)
}

func (m Model) renderHeader() string {
	w := m.viewWidth() - 1
	cols := []string{padRight("time", timeWidth)}
	if m.columnView {
		for _, f := range m.viewFields() {
			cols = append(cols, padRight(f, columnWidth))
		}
	} else {
		cols = append(cols, record.SourceField)
	}
	line := strings.Repeat(" ", markerWidth) + strings.Join(cols, " ")
	return styles.GridHeaderStyle.Render(padRight(ansi.Truncate(line, w, ""), w))
}

// renderGrid draws the rows from m.top down, expanded rows followed by their
// field list, next to a scrollbar sized from the spacer layout.
func (m Model) renderGrid() string {
	rows := m.gridRows()
	w := max(1, m.viewWidth()-1)

	lines := make([]string, 0, rows)
	for i := m.top; i < m.snap.Length && len(lines) < rows; i++ {
		rec, ok := m.snap.Row(i)
		if !ok {
			lines = append(lines, styles.TextMutedStyle.Render(padRight("  "+styles.IconLoading, w)))
			continue
		}
		expanded := m.snap.IsExpanded(rec.Key)
		lines = append(lines, m.renderRow(rec, i == m.cursor, expanded, w))
		if expanded {
			for _, d := range detailLines(rec, w) {
				if len(lines) == rows {
					break
				}
				lines = append(lines, d)
			}
		}
	}

	if len(lines) == 0 && !m.loading {
		msg := "no results"
		if m.err != nil {
			msg = "search failed"
		}
		lines = append(lines, styles.TextMutedStyle.Render(padRight("  "+msg, w)))
	}
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", w))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(lines, "\n"), m.renderScrollbar(rows))
}

func (m Model) renderRow(rec record.Record, selected, expanded bool, width int) string {
	marker := "  "
	if selected {
		marker = styles.GridCursorStyle.Render("▌ ")
	}
	icon := styles.IconCollapsed
	if expanded {
		icon = styles.IconExpanded
	}

	ts := padRight(rec.String(m.timeField()), timeWidth)
	var body string
	if m.columnView {
		body = m.renderColumns(rec)
	} else {
		body = m.renderSummary(rec)
	}

	line := marker + styles.TextMutedStyle.Render(icon) + " " + styles.TextMutedStyle.Render(ts) + " " + body
	line = padRight(ansi.Truncate(line, width, "…"), width)
	if selected {
		return styles.GridRowSelectedStyle.Render(line)
	}
	return line
}

func (m Model) renderColumns(rec record.Record) string {
	cols := make([]string, 0, len(m.viewFields()))
	for _, f := range m.viewFields() {
		v := ansi.Truncate(singleLine(rec.String(f)), columnWidth, "…")
		cols = append(cols, styles.GridFieldValueStyle.Render(padRight(v, columnWidth)))
	}
	return strings.Join(cols, " ")
}

// renderSummary renders the well known fields first, then every remaining
// field as key=value.
func (m Model) renderSummary(rec record.Record) string {
	seen := map[string]bool{m.timeField(): true}
	parts := make([]string, 0, len(rec.Fields))

	for _, f := range summaryFields {
		v, ok := rec.Get(f)
		if !ok || v == nil {
			continue
		}
		seen[f] = true
		s := singleLine(record.Stringify(v))
		switch f {
		case "level":
			parts = append(parts, styles.LevelStyle(s).Render(strings.ToUpper(s)))
		case "host", "source":
			parts = append(parts, lipgloss.NewStyle().Foreground(styles.ColorForString(s)).Render(s))
		default:
			parts = append(parts, styles.TextForegroundStyle.Render(s))
		}
	}

	for _, name := range rec.Names() {
		if seen[name] {
			continue
		}
		parts = append(parts, styles.GridFieldKeyStyle.Render(name+"=")+
			styles.TextMutedStyle.Render(singleLine(rec.String(name))))
	}
	return strings.Join(parts, " ")
}

// detailLines lists every field of an expanded record, one per line, ending
// with a rule.
func detailLines(rec record.Record, width int) []string {
	names := rec.Names()
	keyWidth := 0
	for _, n := range names {
		keyWidth = max(keyWidth, ansi.StringWidth(n))
	}

	out := make([]string, 0, len(names)+1)
	indent := strings.Repeat(" ", markerWidth)
	for _, n := range names {
		value := rec.String(n)
		valueLines := strings.Split(value, "\n")
		if len(valueLines) > maxValueLines {
			valueLines = append(valueLines[:maxValueLines], styles.IconLoading)
		}
		for i, vl := range valueLines {
			label := strings.Repeat(" ", keyWidth)
			if i == 0 {
				label = padRight(n, keyWidth)
			}
			line := indent + styles.GridFieldKeyStyle.Render(label) + "  " + styles.GridFieldValueStyle.Render(vl)
			out = append(out, padRight(ansi.Truncate(line, width, "…"), width))
		}
	}
	out = append(out, styles.GridDetailRuleStyle.Render(indent+strings.Repeat("─", max(0, width-markerWidth))))
	return out
}

// renderScrollbar draws a track as tall as the grid with a thumb proportional
// to the visible share of the total spacer height.
func (m Model) renderScrollbar(rows int) string {
	total := m.snap.Layout.SpacerHeight
	visible := rows * m.itemHeight

	thumbSize, thumbPos := rows, 0
	if total > visible {
		thumbSize = max(1, rows*visible/total)
		maxTop := total - visible
		thumbPos = (m.top * m.itemHeight) * (rows - thumbSize) / maxTop
		thumbPos = max(0, min(thumbPos, rows-thumbSize))
	}

	var b strings.Builder
	for i := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i >= thumbPos && i < thumbPos+thumbSize {
			b.WriteString(styles.ScrollThumbStyle.Render(styles.GlyphScrollThumb))
		} else {
			b.WriteString(styles.ScrollTrackStyle.Render(styles.GlyphScrollTrack))
		}
	}
	return b.String()
}

func (m Model) renderStatus() string {
	w := m.viewWidth()
	var parts []string

	if m.loading || m.loadingMore {
		parts = append(parts, m.spinner.View()+" searching")
	}

	if m.hasPage {
		parts = append(parts, fmt.Sprintf("%d of %d rows", m.snap.Length, m.page.Total))
		if m.page.Duration > 0 {
			parts = append(parts, "fetched in "+m.page.Duration.Round(time.Millisecond).String())
		}
		if m.snap.Length > 0 {
			parts = append(parts, fmt.Sprintf("row %d", m.cursor+1))
		}
	}
	if n := len(m.snap.Expanded); n > 0 {
		parts = append(parts, fmt.Sprintf("%d expanded", n))
	}
	if m.snap.Reconciling {
		parts = append(parts, "reconciling")
	}

	line := styles.StatusBarStyle.Render(strings.Join(parts, " • "))
	if m.err != nil {
		line = styles.StatusErrorStyle.Render(m.err.Error()) + "  " + line
	}
	return ansi.Truncate(line, w, "…")
}

func (m Model) renderHelp() string {
	bindings := m.keys.ShortHelp()
	if m.searching {
		bindings = m.keys.searchHelp()
	}
	return ansi.Truncate(m.help.ShortHelpView(bindings), m.viewWidth(), "…")
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
