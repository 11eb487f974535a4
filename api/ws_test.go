package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crimelens/dataset"
	"crimelens/pipeline"
)

func TestWebSocketRefreshBroadcast(t *testing.T) {
	server, router := setupServer(t)
	server.cache.OnRebuild = func(table *dataset.Table, report *pipeline.Report) {
		server.BroadcastRefresh(RefreshUpdate{
			Added:   report.LiveAdded,
			Total:   table.Len(),
			BuiltAt: report.BuiltAt,
		})
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/updates"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The hello confirms the client is registered before we trigger a rebuild.
	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])

	w := doRequest(t, router, http.MethodPost, "/refresh")
	require.Equal(t, http.StatusOK, w.Code)

	var update RefreshUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "refresh", update.Type)
	assert.Equal(t, 1, update.Added)
	assert.Equal(t, 5, update.Total)
	assert.False(t, update.BuiltAt.IsZero())
}
