package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket connections for refresh notifications.
func (s *Server) WebSocketHandler(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	total := len(s.wsClients)
	s.wsMutex.Unlock()

	s.log.WithField("total", total).Debug("websocket client connected")

	conn.WriteJSON(gin.H{"type": "connected", "message": "subscribed to refresh updates"})

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// RefreshUpdate is the message broadcast after a rebuild that changed the
// table.
type RefreshUpdate struct {
	Type    string    `json:"type"`
	Added   int       `json:"added"`
	Total   int       `json:"total"`
	BuiltAt time.Time `json:"built_at"`
}

// BroadcastRefresh sends a refresh notification to all WebSocket clients.
func (s *Server) BroadcastRefresh(update RefreshUpdate) {
	update.Type = "refresh"
	msg, err := json.Marshal(update)
	if err != nil {
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()
	for client := range s.wsClients {
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.WithError(err).Warn("websocket write failed")
		}
	}
}
