package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader accepts connections from any origin; the server already runs
// with CORS wide open by default (corsOrigin), and /stats/ws carries no
// write capability back into the server.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statsWebSocketPushInterval is how often a connected /stats/ws client
// receives a fresh statistics snapshot.
const statsWebSocketPushInterval = 2 * time.Second

// statsWebSocketHandler implements the supplemental GET /stats/ws route
// (§11 of SPEC_FULL.md): pushes periodic statistics snapshots to
// monitoring clients instead of requiring them to poll GET /stats.
func (s *Server) statsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade /stats/ws connection", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	ticker := time.NewTicker(statsWebSocketPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.stats == nil {
				continue
			}
			if err := conn.WriteJSON(s.stats.Snapshot()); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
