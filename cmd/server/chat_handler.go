package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"chatroom/internal/chat"
	"chatroom/internal/command"
	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// handleChat serves the /ws chat namespace. The first text frame on a
// connection is always the username claim, even if it starts with "/";
// everything after that is either a slash command or a broadcast line.
func (s *Server) handleChat(c *gin.Context) {
	conn, ctx, cancel, err := acceptSocket(c)
	if err != nil {
		log.Printf("Failed to upgrade chat connection: %v", err)
		return
	}
	defer cancel()
	defer conn.Sock.Close(websocket.StatusNormalClosure, "")

	log.Printf("New chat connection %s", conn.ID)

	defer func() {
		if username, ok := s.registry.Release(conn); ok {
			log.Printf("👋 User %s left", username)
			s.broadcaster.BroadcastUserList()
		}
		log.Printf("Chat connection %s closed", conn.ID)
	}()

	for {
		msgType, data, err := conn.Sock.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		username, claimed := s.registry.Username(conn)
		if !claimed {
			s.claimUsername(conn, string(data))
			continue
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			s.dispatchCommand(ctx, conn, username, text)
			continue
		}

		s.broadcaster.Broadcast(fmt.Sprintf("%s: %s", username, text), protocol.Timestamp())
		s.ai.OnChatMessage(username, text, conn)
	}
}

// claimUsername handles the first-frame registration. Rejections leave
// the connection open and unclaimed so the client can retry.
func (s *Server) claimUsername(conn *types.Conn, raw string) {
	err := s.registry.Claim(conn, raw)
	switch {
	case errors.Is(err, chat.ErrUsernameEmpty):
		s.sendEnvelope(conn, protocol.Error("Username cannot be empty."))
	case errors.Is(err, chat.ErrUsernameTaken):
		s.sendEnvelope(conn, protocol.Error("Username already taken. Choose another."))
	case err == nil:
		username := strings.TrimSpace(raw)
		log.Printf("👋 User %s joined", username)
		s.broadcaster.BroadcastUserList()
		s.sendEnvelope(conn, protocol.Info("Welcome, "+username+"!"))
	}
}

// dispatchCommand runs one slash command and returns its response to
// the invoking connection only.
func (s *Server) dispatchCommand(ctx context.Context, conn *types.Conn, username, text string) {
	resp := s.engine.Dispatch(ctx, &command.Context{
		Conn:     conn,
		Username: username,
		Registry: s.registry,
	}, text)
	s.sendEnvelope(conn, protocol.ChatEnvelope{
		Type: resp.ResponseType,
		Text: resp.Message,
	})
}

func (s *Server) sendEnvelope(conn *types.Conn, v interface{}) {
	if err := conn.EnqueueJSON(v); err != nil {
		log.Printf("Dropping envelope for connection %s: %v", conn.ID, err)
	}
}
