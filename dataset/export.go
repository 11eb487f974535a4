package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"crimelens/sources"
)

const timestampLayout = "2006-01-02 15:04:05"

// rowStrings renders one record in the table's column order, everything as
// strings and nulls as empty cells.
func (t *Table) rowStrings(r *Record) []string {
	out := make([]string, 0, 9+len(t.extraCols))
	out = append(out,
		formatTime(r.OccurredAt),
		formatInt(r.Year),
		formatInt(r.Month),
		formatInt(r.Hour),
		r.Offense,
		r.District,
		strconv.Itoa(r.Shooting),
		formatFloat(r.Lat),
		formatFloat(r.Long),
	)
	for _, col := range t.extraCols {
		out = append(out, r.Extra[col])
	}
	return out
}

// WriteCSV serializes at most maxRows rows (maxRows <= 0 means all) plus a
// header. Returns the number of data rows written and whether the table was
// truncated to the cap.
func (t *Table) WriteCSV(w io.Writer, maxRows int) (int, bool, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return 0, false, err
	}
	truncated := false
	written := 0
	for i := range t.records {
		if maxRows > 0 && written >= maxRows {
			truncated = true
			break
		}
		if err := cw.Write(t.rowStrings(&t.records[i])); err != nil {
			return written, truncated, err
		}
		written++
	}
	cw.Flush()
	return written, truncated, cw.Error()
}

// ToRaw projects the table back into raw form. Normalize(t.ToRaw(name)) is
// equivalent to t, which is what makes normalization idempotent end to end.
func (t *Table) ToRaw(name string) *sources.RawTable {
	cols := t.Columns()
	raw := &sources.RawTable{Name: name, Columns: cols}
	for i := range t.records {
		strs := t.rowStrings(&t.records[i])
		row := make(map[string]any, len(cols))
		for j, col := range cols {
			row[col] = strs[j]
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(timestampLayout)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
