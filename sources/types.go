package sources

// RawTable is one source's payload in tabular form, before normalization.
// Values are strings for CSV extracts and arbitrary JSON scalars for the
// live feed; the normalizer owns all type coercion.
type RawTable struct {
	Name    string
	Columns []string
	Rows    []map[string]any
}

func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
