package dataset

import (
	"time"
)

// Table is the canonical incident table. It is built once per pipeline run
// and treated as read-only afterwards; all query methods return copies or
// derived tables.
type Table struct {
	records   []Record
	extraCols []string
}

func NewTable(records []Record, extraCols []string) *Table {
	return &Table{records: records, extraCols: extraCols}
}

func (t *Table) Len() int {
	return len(t.records)
}

// Records exposes the rows for iteration. Callers must not mutate them.
func (t *Table) Records() []Record {
	return t.records
}

// Columns returns the full column set: the canonical typed columns followed
// by the passthrough columns.
func (t *Table) Columns() []string {
	cols := []string{
		ColOccurredOn, ColYear, ColMonth, ColHour,
		ColOffense, ColDistrict, ColShooting, ColLat, ColLong,
	}
	return append(cols, t.extraCols...)
}

// ExtraColumns returns the passthrough column names in first-seen order.
func (t *Table) ExtraColumns() []string {
	return t.extraCols
}

// MaxOccurredAt returns the watermark: the latest timestamp in the table,
// ignoring undated rows. ok is false when every row is undated.
func (t *Table) MaxOccurredAt() (time.Time, bool) {
	var max time.Time
	ok := false
	for i := range t.records {
		ts := t.records[i].OccurredAt
		if ts == nil {
			continue
		}
		if !ok || ts.After(max) {
			max = *ts
			ok = true
		}
	}
	return max, ok
}

// Filter selects rows by membership. An empty slice leaves that dimension
// unconstrained, matching the dashboard's multiselect semantics.
type Filter struct {
	Years     []int
	Offenses  []string
	Districts []string
	Shooting  *int
}

func (f Filter) match(r *Record) bool {
	if len(f.Years) > 0 {
		if r.Year == nil || !containsInt(f.Years, *r.Year) {
			return false
		}
	}
	if len(f.Offenses) > 0 && !containsString(f.Offenses, r.Offense) {
		return false
	}
	if len(f.Districts) > 0 && !containsString(f.Districts, r.District) {
		return false
	}
	if f.Shooting != nil && r.Shooting != *f.Shooting {
		return false
	}
	return true
}

// Select returns a new table holding the matching rows, preserving order.
func (t *Table) Select(f Filter) *Table {
	var out []Record
	for i := range t.records {
		if f.match(&t.records[i]) {
			out = append(out, t.records[i])
		}
	}
	return NewTable(out, t.extraCols)
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
