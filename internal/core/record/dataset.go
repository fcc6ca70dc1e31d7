package record

import (
	"maps"
	"time"
)

// TimeLayout is the display layout of the time field.
const TimeLayout = "2006-01-02 15:04:05.000"

var timeInputLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses a backend timestamp. Values without a zone are read in
// local time.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeInputLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime normalizes a backend timestamp to TimeLayout. Values that do not
// parse are returned unchanged.
func FormatTime(s string) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.Format(TimeLayout)
}

// Dataset is an immutable, ordered set of records from one search. A new
// Dataset is built for every fetch; datasets are never edited in place.
type Dataset struct {
	records   []Record
	index     map[Key]int
	timeField string
	fetchedAt time.Time
}

// NewDataset builds a dataset from raw rows. Every record gets a fresh key for
// fetchedAt, a normalized time field, a copy of the raw row under SourceField
// and its precomputed Identity.
func NewDataset(rows []map[string]any, timeField string, fetchedAt time.Time) Dataset {
	if timeField == "" {
		timeField = DefaultTimeField
	}
	ds := Dataset{
		records:   make([]Record, 0, len(rows)),
		index:     make(map[Key]int, len(rows)),
		timeField: timeField,
		fetchedAt: fetchedAt,
	}
	ds.appendRows(rows)
	return ds
}

// Append returns a new dataset holding the records of d followed by rows.
// Keys continue from the current length so they stay unique.
func (d Dataset) Append(rows []map[string]any) Dataset {
	next := Dataset{
		records:   make([]Record, len(d.records), len(d.records)+len(rows)),
		index:     make(map[Key]int, len(d.records)+len(rows)),
		timeField: d.timeField,
		fetchedAt: d.fetchedAt,
	}
	copy(next.records, d.records)
	maps.Copy(next.index, d.index)
	next.appendRows(rows)
	return next
}

func (d *Dataset) appendRows(rows []map[string]any) {
	for _, row := range rows {
		fields := make(map[string]any, len(row)+1)
		maps.Copy(fields, row)
		if s, ok := fields[d.timeField].(string); ok && s != "" {
			fields[d.timeField] = FormatTime(s)
		}
		source := make(map[string]any, len(fields))
		maps.Copy(source, fields)
		fields[SourceField] = source

		i := len(d.records)
		rec := Record{
			Key:      NewKey(d.fetchedAt, i),
			Identity: Hash(fields, d.timeField),
			Fields:   fields,
		}
		d.records = append(d.records, rec)
		d.index[rec.Key] = i
	}
}

// FromRecords builds a dataset from already keyed records. Records missing an
// Identity get one computed for timeField.
func FromRecords(records []Record, timeField string) Dataset {
	if timeField == "" {
		timeField = DefaultTimeField
	}
	ds := Dataset{
		records:   make([]Record, len(records)),
		index:     make(map[Key]int, len(records)),
		timeField: timeField,
	}
	for i, r := range records {
		if r.Identity == "" {
			r.Identity = Hash(r.Fields, timeField)
		}
		ds.records[i] = r
		ds.index[r.Key] = i
	}
	return ds
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.records) }

// At returns the record at index i.
func (d Dataset) At(i int) Record { return d.records[i] }

// Slice returns records[start:end] clamped to the dataset bounds. The
// returned slice must not be modified.
func (d Dataset) Slice(start, end int) []Record {
	start = max(0, min(start, len(d.records)))
	end = max(start, min(end, len(d.records)))
	return d.records[start:end]
}

// Records returns all records. The returned slice must not be modified.
func (d Dataset) Records() []Record { return d.records }

// Lookup returns the record with key.
func (d Dataset) Lookup(key Key) (Record, bool) {
	i, ok := d.index[key]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// Contains reports whether a record with key exists.
func (d Dataset) Contains(key Key) bool {
	_, ok := d.index[key]
	return ok
}

// IndexOf returns the position of key, or -1.
func (d Dataset) IndexOf(key Key) int {
	i, ok := d.index[key]
	if !ok {
		return -1
	}
	return i
}

// TimeField returns the time field the dataset was built for.
func (d Dataset) TimeField() string { return d.timeField }

// FetchedAt returns the fetch time the keys were derived from.
func (d Dataset) FetchedAt() time.Time { return d.fetchedAt }
