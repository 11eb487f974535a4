package dataset

// Merge builds the canonical table. Historical tables are concatenated in
// input order without deduplication (the baseline is assumed internally
// consistent). Live rows are appended only when strictly newer than the
// baseline watermark; a baseline with no dated rows accepts every live row.
// This is watermark-only dedup: it trusts the feed to be append-only and
// will not catch silently backfilled corrections.
//
// Returns the merged table and the number of live rows appended.
func Merge(historical []*Table, live *Table) (*Table, int) {
	var records []Record
	var extraCols []string
	seen := map[string]bool{}

	appendCols := func(cols []string) {
		for _, c := range cols {
			if !seen[c] {
				extraCols = append(extraCols, c)
				seen[c] = true
			}
		}
	}

	for _, t := range historical {
		if t == nil {
			continue
		}
		records = append(records, t.records...)
		appendCols(t.extraCols)
	}

	baseline := NewTable(records, extraCols)
	if live == nil || live.Len() == 0 {
		return baseline, 0
	}

	watermark, hasWatermark := baseline.MaxOccurredAt()
	added := 0
	for i := range live.records {
		rec := &live.records[i]
		if rec.OccurredAt == nil {
			continue
		}
		if hasWatermark && !rec.OccurredAt.After(watermark) {
			continue
		}
		records = append(records, *rec)
		added++
	}
	if added > 0 {
		appendCols(live.extraCols)
	}
	return NewTable(records, extraCols), added
}
