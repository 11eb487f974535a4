package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historicalTable(t *testing.T, dates ...string) *Table {
	t.Helper()
	rows := make([]map[string]any, 0, len(dates))
	for i, d := range dates {
		rows = append(rows, map[string]any{
			"OCCURRED_ON_DATE":    d,
			"OFFENSE_DESCRIPTION": "OFFENSE-" + string(rune('A'+i)),
		})
	}
	return Normalize(rawTable([]string{"OCCURRED_ON_DATE", "OFFENSE_DESCRIPTION"}, rows...))
}

func liveTable(t *testing.T, dates ...string) *Table {
	t.Helper()
	rows := make([]map[string]any, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, map[string]any{
			"OCCURRED_ON_DATE":    d,
			"OFFENSE_DESCRIPTION": "LIVE",
			"SHOOTING":            "Y",
		})
	}
	return Normalize(rawTable([]string{"OCCURRED_ON_DATE", "OFFENSE_DESCRIPTION", "SHOOTING"}, rows...))
}

func TestMergeConcatenatesBaselineInOrder(t *testing.T) {
	a := historicalTable(t, "2020-01-01 00:00:00", "2020-06-01 00:00:00")
	b := historicalTable(t, "2021-01-01 00:00:00")

	merged, added := Merge([]*Table{a, b}, nil)

	assert.Equal(t, 0, added)
	require.Equal(t, 3, merged.Len())
	// Input order preserved, no dedup within the baseline.
	assert.Equal(t, "OFFENSE-A", merged.Records()[0].Offense)
	assert.Equal(t, "OFFENSE-B", merged.Records()[1].Offense)
	assert.Equal(t, "OFFENSE-A", merged.Records()[2].Offense)
}

func TestMergeBaselineRowCountEqualsSumOfSources(t *testing.T) {
	a := historicalTable(t, "2020-01-01 00:00:00", "garbage", "2020-03-01 00:00:00")
	b := historicalTable(t, "2021-01-01 00:00:00", "also garbage")

	merged, _ := Merge([]*Table{a, b}, nil)
	assert.Equal(t, a.Len()+b.Len(), merged.Len())
}

func TestMergeDropsLiveRowsAtOrBeforeWatermark(t *testing.T) {
	baseline := historicalTable(t, "2023-01-01 00:00:00", "2023-06-15 12:00:00")
	live := liveTable(t, "2023-06-15 12:00:00", "2023-06-14 08:00:00")

	merged, added := Merge([]*Table{baseline}, live)

	assert.Equal(t, 0, added)
	assert.Equal(t, baseline.Len(), merged.Len())
}

func TestMergeAppendsStrictlyNewerLiveRows(t *testing.T) {
	baseline := historicalTable(t, "2023-06-15 12:00:00")
	live := liveTable(t, "2023-06-16 12:00:00")

	merged, added := Merge([]*Table{baseline}, live)

	assert.Equal(t, 1, added)
	require.Equal(t, baseline.Len()+1, merged.Len())

	appended := merged.Records()[merged.Len()-1]
	assert.Equal(t, "LIVE", appended.Offense)
	assert.Equal(t, 1, appended.Shooting) // normalized "Y"

	// Live contribution is strictly newer than the pre-merge watermark.
	watermark, ok := baseline.MaxOccurredAt()
	require.True(t, ok)
	require.NotNil(t, appended.OccurredAt)
	assert.True(t, appended.OccurredAt.After(watermark))
}

func TestMergeAllNullBaselineAcceptsAllDatedLiveRows(t *testing.T) {
	baseline := historicalTable(t, "garbage", "also garbage")
	live := liveTable(t, "2023-06-16 12:00:00", "1999-01-01 00:00:00")

	merged, added := Merge([]*Table{baseline}, live)

	assert.Equal(t, 2, added)
	assert.Equal(t, 4, merged.Len())
}

func TestMergeSkipsUndatedLiveRows(t *testing.T) {
	baseline := historicalTable(t, "2023-01-01 00:00:00")
	live := liveTable(t, "not a date")

	merged, added := Merge([]*Table{baseline}, live)

	assert.Equal(t, 0, added)
	assert.Equal(t, baseline.Len(), merged.Len())
}

func TestMergeUnionsExtraColumns(t *testing.T) {
	hist := Normalize(rawTable(
		[]string{"OCCURRED_ON_DATE", "street"},
		map[string]any{"OCCURRED_ON_DATE": "2023-01-01 00:00:00", "street": "MAIN ST"},
	))
	live := Normalize(rawTable(
		[]string{"OCCURRED_ON_DATE", "_id"},
		map[string]any{"OCCURRED_ON_DATE": "2023-02-01 00:00:00", "_id": float64(7)},
	))

	merged, added := Merge([]*Table{hist}, live)

	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"STREET", "_ID"}, merged.ExtraColumns())
}

func TestMaxOccurredAtIgnoresNulls(t *testing.T) {
	table := historicalTable(t, "2020-01-01 00:00:00", "garbage", "2022-01-01 00:00:00")

	max, ok := table.MaxOccurredAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), max)

	empty := historicalTable(t, "garbage")
	_, ok = empty.MaxOccurredAt()
	assert.False(t, ok)
}
