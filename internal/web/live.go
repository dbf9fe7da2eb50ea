package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sweeney/interlock-panel/internal/status"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLive pushes the JSON snapshot to a websocket client every
// interval. Incoming messages are read and discarded; a read error ends
// the feed.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	s.log.Info("ws client connected", "remote_addr", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, status.FormatStatusEvent(s.tracker.Snapshot(), "", "")); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.log.Info("ws client write failed", "remote_addr", r.RemoteAddr, "err", err)
			}
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			s.log.Info("ws client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(writeWait))
			return
		}
	}
}
