package app

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	statusWriteWait  = 10 * time.Second
	statusPongWait   = 60 * time.Second
	statusPingPeriod = statusPongWait * 9 / 10
)

type statusMessage struct {
	Workspace string `json:"workspace"`
	Status    string `json:"status"`
}

func (s *HTTPServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if s.corsOrigin == "" || s.corsOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.corsOrigin
		},
	}
}

// handleStatusStream pushes the save indicator of a workspace over a
// websocket until the client goes away.
func (s *HTTPServer) handleStatusStream(w http.ResponseWriter, r *http.Request, c call) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace", c.workspaceID).Msg("status stream upgrade")
		return
	}
	defer conn.Close()

	updates, cancel := s.service.SubscribeStatus(c.workspaceID)
	defer cancel()

	// the reader only exists to notice the close and answer pings
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(statusPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(statusPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case status, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(statusWriteWait))
			if err := conn.WriteJSON(statusMessage{Workspace: c.workspaceID, Status: string(status)}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(statusWriteWait)); err != nil {
				return
			}
		}
	}
}
