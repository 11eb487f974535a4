package dataset

import (
	"sort"
	"time"
)

// Summary is the dashboard's KPI block.
type Summary struct {
	TotalRecords      int `json:"total_records"`
	IncidentsMonth    int `json:"incidents_this_month"`
	ShootingIncidents int `json:"shooting_incidents"`
	UniqueDistricts   int `json:"unique_districts"`
}

// Summarize computes the KPI block. "This month" counts rows whose month
// matches now's calendar month across all years, matching the dashboard.
// District counting excludes non-geographic sentinels.
func (t *Table) Summarize(now time.Time) Summary {
	s := Summary{TotalRecords: t.Len()}
	month := int(now.Month())
	districts := map[string]bool{}
	for i := range t.records {
		r := &t.records[i]
		if r.Month != nil && *r.Month == month {
			s.IncidentsMonth++
		}
		s.ShootingIncidents += r.Shooting
		if ValidDistrict(r.District) {
			districts[r.District] = true
		}
	}
	s.UniqueDistricts = len(districts)
	return s
}

// NameCount is one bar of a categorical count chart.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopOffenses counts rows per offense description, descending, at most n.
// n <= 0 means no cap.
func (t *Table) TopOffenses(n int) []NameCount {
	counts := map[string]int{}
	for i := range t.records {
		if t.records[i].Offense != "" {
			counts[t.records[i].Offense]++
		}
	}
	out := sortedCounts(counts)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DistrictCounts counts rows per valid district, descending.
func (t *Table) DistrictCounts() []NameCount {
	counts := map[string]int{}
	for i := range t.records {
		if d := t.records[i].District; ValidDistrict(d) {
			counts[d]++
		}
	}
	return sortedCounts(counts)
}

func sortedCounts(counts map[string]int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TimeBucket is one point of a time series.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// CountByDay buckets dated rows by UTC calendar day, ascending. Undated
// rows are excluded.
func (t *Table) CountByDay() []TimeBucket {
	return t.countBuckets(func(ts time.Time) time.Time {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	})
}

// CountByWeek buckets dated rows by week starting Monday, ascending.
func (t *Table) CountByWeek() []TimeBucket {
	return t.countBuckets(func(ts time.Time) time.Time {
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	})
}

func (t *Table) countBuckets(bucket func(time.Time) time.Time) []TimeBucket {
	counts := map[time.Time]int{}
	for i := range t.records {
		ts := t.records[i].OccurredAt
		if ts == nil {
			continue
		}
		counts[bucket(ts.UTC())]++
	}
	out := make([]TimeBucket, 0, len(counts))
	for start, count := range counts {
		out = append(out, TimeBucket{Start: start, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// HeatCell is one cell of the day-of-week x hour heatmap.
type HeatCell struct {
	Day   string `json:"day"`
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Heatmap counts rows per day-of-week and hour. Rows without a timestamp or
// without an hour are excluded. Cells come back in weekday-then-hour order.
func (t *Table) Heatmap() []HeatCell {
	type key struct {
		day  string
		hour int
	}
	counts := map[key]int{}
	for i := range t.records {
		r := &t.records[i]
		day := r.DayOfWeek()
		if day == "" || r.Hour == nil {
			continue
		}
		counts[key{day, *r.Hour}]++
	}
	var out []HeatCell
	for _, day := range weekdayOrder {
		for hour := 0; hour < 24; hour++ {
			if c, ok := counts[key{day, hour}]; ok {
				out = append(out, HeatCell{Day: day, Hour: hour, Count: c})
			}
		}
	}
	return out
}
