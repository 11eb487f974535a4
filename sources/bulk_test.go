package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "OCCURRED_ON_DATE,OFFENSE_DESCRIPTION,DISTRICT\n" +
	"2023-05-01 07:30:00,LARCENY,B2\n" +
	"2023-05-02 13:00:00,ROBBERY,C11\n"

func TestParseCSV(t *testing.T) {
	table, err := ParseCSV("2023.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "2023.csv", table.Name)
	assert.Equal(t, []string{"OCCURRED_ON_DATE", "OFFENSE_DESCRIPTION", "DISTRICT"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "LARCENY", table.Rows[0]["OFFENSE_DESCRIPTION"])
}

func TestParseCSVStripsBOM(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	table, err := ParseCSV("bom.csv", payload)
	require.NoError(t, err)
	assert.Equal(t, "OCCURRED_ON_DATE", table.Columns[0])
}

func TestParseCSVToleratesRaggedRows(t *testing.T) {
	csvData := "A,B,C\n" +
		"1,2\n" + // short row: C absent
		"1,2,3,4\n" // long row: overflow dropped
	table, err := ParseCSV("ragged.csv", []byte(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	_, ok := table.Rows[0]["C"]
	assert.False(t, ok)
	assert.Equal(t, "3", table.Rows[1]["C"])
}

func TestParseCSVEmptyPayload(t *testing.T) {
	_, err := ParseCSV("empty.csv", nil)
	assert.Error(t, err)
}

func TestFetchExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2023.csv":
			w.Write([]byte(sampleCSV))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewBulkClient(resty.New(), srv.URL)

	table, err := client.FetchExtract(context.Background(), "2023.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = client.FetchExtract(context.Background(), "2024.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
