package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"crimelens/sources"
)

// canonicalNames converges raw header variants onto one canonical column
// name. New source quirks get a new entry here instead of ad hoc handling.
var canonicalNames = map[string]string{
	"LATITUDE":        ColLat,
	"LONGITUDE":       ColLong,
	"OCCURED_ON_DATE": ColOccurredOn,
	"OCCURRED_ON":     ColOccurredOn,
	"OFFENSE_DESC":    ColOffense,
	"DISTRICT_NAME":   ColDistrict,
	"SHOOTING_FLAG":   ColShooting,
}

// CanonicalColumn trims and upper-cases a raw column name, then applies the
// variant mapping. Two sources naming the same field differently collide
// into one canonical column.
func CanonicalColumn(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if mapped, ok := canonicalNames[n]; ok {
		return mapped
	}
	return n
}

// zeroOffset matches a trailing zero UTC offset ("+00" or "+00:00") that
// some extracts append to otherwise naive timestamps.
var zeroOffset = regexp.MustCompile(`\+00(:00)?$`)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ParseTimestamp parses a source timestamp into UTC, truncated to whole
// seconds (the feeds publish second granularity; stray fractions would
// otherwise survive parsing but not re-serialization). Unparsable values
// map to nil; this never fails a row.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(zeroOffset.ReplaceAllString(s, ""))
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		utc := ts.UTC().Truncate(time.Second)
		return &utc
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			ts = ts.Truncate(time.Second)
			return &ts
		}
	}
	return nil
}

// isCanonicalTyped reports whether a canonical column is consumed into a
// typed Record field rather than passed through as a string.
func isCanonicalTyped(col string) bool {
	switch col {
	case ColOccurredOn, ColYear, ColMonth, ColHour, ColOffense, ColDistrict, ColShooting, ColLat, ColLong:
		return true
	}
	return false
}

// Normalize turns one raw source table into canonical records: column names
// trimmed/upper-cased and converged, the timestamp parsed to UTC with
// unparsable values mapped to nil, YEAR/MONTH derived, HOUR numeric-coerced,
// the shooting flag forced to 0/1 whether or not the column exists, and all
// remaining columns coerced to strings. Normalizing an already-normalized
// table is a no-op, and no row is ever dropped.
func Normalize(raw *sources.RawTable) *Table {
	if raw == nil {
		return NewTable(nil, nil)
	}

	// canonical name -> raw header keys, in source column order
	colMap := make(map[string][]string, len(raw.Columns))
	var extraCols []string
	seenExtra := map[string]bool{}
	for _, rawCol := range raw.Columns {
		canon := CanonicalColumn(rawCol)
		colMap[canon] = append(colMap[canon], rawCol)
		if !isCanonicalTyped(canon) && !seenExtra[canon] {
			extraCols = append(extraCols, canon)
			seenExtra[canon] = true
		}
	}
	_, hasHour := colMap[ColHour]
	_, hasShooting := colMap[ColShooting]

	lookup := func(row map[string]any, canon string) (any, bool) {
		for _, key := range colMap[canon] {
			if v, ok := row[key]; ok {
				return v, true
			}
		}
		return nil, false
	}

	records := make([]Record, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		var rec Record

		if v, ok := lookup(row, ColOccurredOn); ok {
			rec.OccurredAt = ParseTimestamp(stringValue(v))
		}
		if rec.OccurredAt != nil {
			y, m := rec.OccurredAt.Year(), int(rec.OccurredAt.Month())
			rec.Year, rec.Month = &y, &m
		}

		// HOUR comes from the source column when the source has one,
		// numeric-coerced; only a source without the column falls back to
		// the parsed timestamp.
		if hasHour {
			v, _ := lookup(row, ColHour)
			rec.Hour = parseIntValue(v)
			// An hour outside 0-23 is source noise, not a bucket.
			if rec.Hour != nil && (*rec.Hour < 0 || *rec.Hour > 23) {
				rec.Hour = nil
			}
		} else if rec.OccurredAt != nil {
			h := rec.OccurredAt.Hour()
			rec.Hour = &h
		}

		if v, ok := lookup(row, ColOffense); ok {
			rec.Offense = strings.TrimSpace(stringValue(v))
		}
		if v, ok := lookup(row, ColDistrict); ok {
			rec.District = strings.TrimSpace(stringValue(v))
		}
		if hasShooting {
			v, _ := lookup(row, ColShooting)
			rec.Shooting = shootingValue(v)
		}
		if v, ok := lookup(row, ColLat); ok {
			rec.Lat = parseFloatValue(v)
		}
		if v, ok := lookup(row, ColLong); ok {
			rec.Long = parseFloatValue(v)
		}

		rec.Extra = make(map[string]string, len(extraCols))
		for _, col := range extraCols {
			if v, ok := lookup(row, col); ok {
				rec.Extra[col] = stringValue(v)
			} else {
				rec.Extra[col] = ""
			}
		}
		records = append(records, rec)
	}
	return NewTable(records, extraCols)
}

// shootingValue is the total 0/1 mapping for the shooting indicator. The
// "1"/"0" entries keep normalization idempotent; anything unmapped is 0.
func shootingValue(v any) int {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	switch strings.ToUpper(strings.TrimSpace(stringValue(v))) {
	case "Y", "1":
		return 1
	default:
		return 0
	}
}

// parseIntValue coerces numeric-looking values to int. Fractional input
// truncates toward zero ("7.5" -> 7); the hour column is integral in
// practice, so no rounding mode is worth carrying here.
func parseIntValue(v any) *int {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n
	case int:
		n := val
		return &n
	case int64:
		n := int(val)
		return &n
	}
	s := strings.TrimSpace(stringValue(v))
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func parseFloatValue(v any) *float64 {
	switch val := v.(type) {
	case float64:
		f := val
		return &f
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	}
	s := strings.TrimSpace(stringValue(v))
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// stringValue renders any source value as a string. JSON numbers drop the
// float64 artifact ("1" rather than "1e+00"); nil becomes "".
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
