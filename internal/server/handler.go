package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/soar/padview/internal/hub"
)

// Clients can drive the motors, so only pages served by this server (or
// clients that send no Origin) may connect. That is gorilla's default check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(s.hub, conn)
	s.hub.Register(client)
	s.broadcaster.SendInitialState(client)

	go client.WritePump()
	go client.ReadPump(s.sink)
}
