package main

import (
	"encoding/json"
	"log"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"chatroom/pkg/protocol"
)

// handleVOIP serves the /voip signaling namespace. The socket is bound
// to the username from the query parameter for the whole connection;
// disconnect tears down the user's calls and notifies their peers.
func (s *Server) handleVOIP(c *gin.Context) {
	username, ok := socketUsername(c)
	if !ok {
		return
	}

	conn, ctx, cancel, err := acceptSocket(c)
	if err != nil {
		log.Printf("Failed to upgrade VOIP connection: %v", err)
		return
	}
	defer cancel()
	defer conn.Sock.Close(websocket.StatusNormalClosure, "")

	s.voip.Register(username, conn)
	defer s.voip.Unregister(username)

	for {
		msgType, data, err := conn.Sock.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg protocol.VOIPMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Malformed VOIP frame from %s: %v", username, err)
			continue
		}
		s.voip.HandleMessage(username, msg)
	}
}
