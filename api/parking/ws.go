package parking

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open; the push channel follows.
	CheckOrigin: func(*http.Request) bool { return true },
}

// pushActivity upgrades the connection and streams one snapshot per push
// interval for the lifetime of the connection. The client picks the shape
// with ?type=activity (full vehicle detail) or ?type=util (aggregate
// occupancy); anything else gets empty objects.
func (h *Handler) pushActivity(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	mode := r.URL.Query().Get("type")
	if mode == "" {
		mode = "activity"
	}

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		var payload any
		switch mode {
		case "activity":
			payload = h.state.DetailView()
		case "util":
			payload = h.state.UtilView()
		default:
			payload = map[string]any{}
		}
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Debugf("websocket client gone: %v", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
