package handlers

import (
	"net/http"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
	"github.com/gorilla/websocket"
)

var profileUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// ProfileWebSocket streams committed profile snapshots to the client.
// Authentication mirrors the REST surface: bearer header or token query
// parameter for browser clients.
func ProfileWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(r)
	if sess.IsZero() {
		http.Error(w, "missing or invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := profileUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	out, unregister := services.RegisterProfileListener(sess.ID, conn)
	defer unregister()

	// Initial snapshot so the client renders without a separate GET.
	c := engine.Attach(r.Context(), sess)
	snap := c.Snapshot()
	if err := out.WriteJSON(services.ProfileEvent{
		Type:      "profile_snapshot",
		UserID:    sess.ID,
		Profile:   &snap,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return
	}

	// Read loop exists only to observe disconnects; clients send nothing
	// meaningful on this socket.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
