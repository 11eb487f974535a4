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

const sampleDatastoreJSON = `{
	"success": true,
	"result": {
		"fields": [
			{"id": "_id", "type": "int"},
			{"id": "OCCURRED_ON_DATE", "type": "timestamp"},
			{"id": "OFFENSE_DESCRIPTION", "type": "text"}
		],
		"records": [
			{"_id": 1, "OCCURRED_ON_DATE": "2023-06-16T12:00:00", "OFFENSE_DESCRIPTION": "LARCENY", "SHOOTING": "N"},
			{"_id": 2, "OCCURRED_ON_DATE": "2023-06-16T13:00:00", "OFFENSE_DESCRIPTION": "ROBBERY", "SHOOTING": "Y"}
		]
	}
}`

func liveServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("resource_id"))
		assert.NotEmpty(t, r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestFetchLatest(t *testing.T) {
	srv := liveServer(t, sampleDatastoreJSON, http.StatusOK)
	defer srv.Close()

	client := NewLiveClient(resty.New(), srv.URL, "resource-id", 500000)
	table, err := client.FetchLatest(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	// Field order from the API, record-only keys appended after.
	assert.Equal(t, []string{"_id", "OCCURRED_ON_DATE", "OFFENSE_DESCRIPTION", "SHOOTING"}, table.Columns)
	assert.Equal(t, "ROBBERY", table.Rows[1]["OFFENSE_DESCRIPTION"])
	assert.Equal(t, float64(1), table.Rows[0]["_id"])
}

func TestFetchLatestAPIFailure(t *testing.T) {
	srv := liveServer(t, `{"success": false}`, http.StatusOK)
	defer srv.Close()

	client := NewLiveClient(resty.New(), srv.URL, "resource-id", 100)
	_, err := client.FetchLatest(context.Background())
	assert.Error(t, err)
}

func TestFetchLatestMissingRecords(t *testing.T) {
	srv := liveServer(t, `{"success": true, "result": {}}`, http.StatusOK)
	defer srv.Close()

	client := NewLiveClient(resty.New(), srv.URL, "resource-id", 100)
	_, err := client.FetchLatest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing records")
}

func TestFetchLatestBadStatus(t *testing.T) {
	srv := liveServer(t, `{}`, http.StatusInternalServerError)
	defer srv.Close()

	client := NewLiveClient(resty.New(), srv.URL, "resource-id", 100)
	_, err := client.FetchLatest(context.Background())
	assert.Error(t, err)
}

func TestFetchLatestMalformedJSON(t *testing.T) {
	srv := liveServer(t, `{not json`, http.StatusOK)
	defer srv.Close()

	client := NewLiveClient(resty.New(), srv.URL, "resource-id", 100)
	_, err := client.FetchLatest(context.Background())
	assert.Error(t, err)
}
