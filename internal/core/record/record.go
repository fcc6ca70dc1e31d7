// Package record defines the rows returned by a log search and the content
// based identity used to follow a row across refetches.
package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeField is the module time column used when none is configured.
const DefaultTimeField = "log_time"

// SourceField holds an untouched copy of the row as returned by the backend.
const SourceField = "_originalSource"

// Key is the volatile per-fetch key of a record ("<fetchUnixMilli>_<index>").
// It is regenerated on every fetch and must never be used to follow a row
// across datasets; use Identity for that.
type Key string

// NewKey builds the key for the record at index of a fetch made at fetchedAt.
func NewKey(fetchedAt time.Time, index int) Key {
	return Key(strconv.FormatInt(fetchedAt.UnixMilli(), 10) + "_" + strconv.Itoa(index))
}

// Record is one row of a search result.
type Record struct {
	Key      Key
	Identity Identity
	Fields   map[string]any
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// String returns the display form of a field, or "" when absent.
func (r Record) String(field string) string {
	v, ok := r.Fields[field]
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Names returns the record field names in ascending order, excluding the
// source snapshot.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if k == SourceField {
			continue
		}
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Stringify renders a decoded JSON value the way it is shown and hashed.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
