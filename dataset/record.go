package dataset

import (
	"strings"
	"time"
)

// Canonical column names shared by the normalizer and the exporters.
const (
	ColOccurredOn = "OCCURRED_ON_DATE"
	ColYear       = "YEAR"
	ColMonth      = "MONTH"
	ColHour       = "HOUR"
	ColOffense    = "OFFENSE_DESCRIPTION"
	ColDistrict   = "DISTRICT"
	ColShooting   = "SHOOTING"
	ColLat        = "LAT"
	ColLong       = "LONG"
)

// Record is one row of the canonical table. Pointer fields are nullable:
// an unparsable source value becomes nil, never a dropped row.
type Record struct {
	OccurredAt *time.Time
	Year       *int
	Month      *int
	Hour       *int
	Offense    string
	District   string
	Shooting   int
	Lat        *float64
	Long       *float64

	// Extra carries every other source column, coerced to string so the
	// row stays serialization-safe.
	Extra map[string]string
}

// DayOfWeek returns the English day name for the record's timestamp, or ""
// for undated rows.
func (r *Record) DayOfWeek() string {
	if r.OccurredAt == nil {
		return ""
	}
	return r.OccurredAt.Weekday().String()
}

// ValidDistrict reports whether a district value names an actual police
// district. The source data uses a few non-geographic sentinels ("External",
// "Outside of Boston") that district-level counts must exclude.
func ValidDistrict(d string) bool {
	d = strings.ToUpper(strings.TrimSpace(d))
	if d == "" || d == "EXTERNAL" {
		return false
	}
	return !strings.HasPrefix(d, "OUTSIDE OF")
}
