// Package search holds the search parameter snapshot sent to a log backend
// and the rules deciding which parameter changes reset the result grid.
package search

import (
	"slices"
	"strings"
)

// DefaultPageSize is used when Params.PageSize is unset.
const DefaultPageSize = 100

// Params is a snapshot of the search bar state.
type Params struct {
	DatasourceID int64    `json:"datasourceId,omitempty"`
	Module       string   `json:"module"`
	Keywords     []string `json:"keywords,omitempty"`
	WhereSQLs    []string `json:"whereSqls,omitempty"`
	StartTime    string   `json:"startTime,omitempty"`
	EndTime      string   `json:"endTime,omitempty"`
	TimeRange    string   `json:"timeRange,omitempty"`
	PageSize     int      `json:"pageSize,omitempty"`
	Offset       int      `json:"offset"`
	Fields       []string `json:"fields,omitempty"`
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	p.Keywords = slices.Clone(p.Keywords)
	p.WhereSQLs = slices.Clone(p.WhereSQLs)
	p.Fields = slices.Clone(p.Fields)
	return p
}

// Limit returns the effective page size.
func (p Params) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// NextPage returns a copy of p advanced by one page.
func (p Params) NextPage() Params {
	next := p.Clone()
	next.Offset += p.Limit()
	return next
}

// FirstPage returns a copy of p with the offset reset.
func (p Params) FirstPage() Params {
	next := p.Clone()
	next.Offset = 0
	return next
}

// Summary is a short human readable form used by logs and the status line.
func (p Params) Summary() string {
	var b strings.Builder
	b.WriteString(p.Module)
	if p.TimeRange != "" {
		b.WriteString(" [" + p.TimeRange + "]")
	} else if p.StartTime != "" || p.EndTime != "" {
		b.WriteString(" [" + p.StartTime + " - " + p.EndTime + "]")
	}
	for _, k := range p.Keywords {
		b.WriteString(" " + k)
	}
	for _, w := range p.WhereSQLs {
		b.WriteString(" where " + w)
	}
	return strings.TrimSpace(b.String())
}

// ShouldResetExpansion reports whether moving from prev to next invalidates
// expanded rows. Any change to the time window, module, datasource, where
// clauses, keywords or time range resets them, as does a return to the first
// page while the selected fields are unchanged. A change limited to the
// selected fields keeps them.
func ShouldResetExpansion(prev, next Params) bool {
	if prev.StartTime != next.StartTime ||
		prev.EndTime != next.EndTime ||
		prev.Module != next.Module ||
		prev.DatasourceID != next.DatasourceID ||
		!slices.Equal(prev.WhereSQLs, next.WhereSQLs) ||
		!slices.Equal(prev.Keywords, next.Keywords) ||
		prev.TimeRange != next.TimeRange {
		return true
	}

	return prev.Offset != 0 && next.Offset == 0 && slices.Equal(prev.Fields, next.Fields)
}
