package main

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"chatroom/internal/voice"
	"chatroom/pkg/protocol"
)

// handleVoice serves the /voice namespace. Identity comes from the
// username query parameter; membership state lives in the voice
// manager, keyed by that name.
func (s *Server) handleVoice(c *gin.Context) {
	username, ok := socketUsername(c)
	if !ok {
		return
	}

	conn, ctx, cancel, err := acceptSocket(c)
	if err != nil {
		log.Printf("Failed to upgrade voice connection: %v", err)
		return
	}
	defer cancel()
	defer conn.Sock.Close(websocket.StatusNormalClosure, "")

	log.Printf("New voice connection for user %s", username)
	defer func() {
		s.voice.LeaveRoom(username)
		log.Printf("Voice connection closed for user %s", username)
	}()

	for {
		msgType, data, err := conn.Sock.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var frame protocol.VoiceFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("Malformed voice frame from %s: %v", username, err)
			continue
		}

		switch frame.Type {
		case protocol.VoiceJoin:
			roomID := strings.TrimSpace(frame.Room)
			if roomID == "" {
				s.sendEnvelope(conn, protocol.Error("Room name is required"))
				continue
			}
			s.voice.JoinRoom(roomID, username, conn)
		case protocol.VoiceLeave:
			s.voice.LeaveRoom(username)
		case protocol.VoiceAudio:
			if room, ok := s.currentVoiceRoom(username); ok {
				room.BroadcastAudio(username, frame.Data)
			}
		case protocol.VoiceScreenStart:
			room, ok := s.currentVoiceRoom(username)
			if !ok {
				s.sendEnvelope(conn, protocol.Error("Join a room before sharing your screen"))
				continue
			}
			if !room.StartScreenShare(username) {
				s.sendEnvelope(conn, protocol.Error("Another user is already sharing their screen"))
			}
		case protocol.VoiceScreenStop:
			if room, ok := s.currentVoiceRoom(username); ok {
				if !room.StopScreenShare(username) {
					s.sendEnvelope(conn, protocol.Error("You are not the active screen sharer"))
				}
			}
		case protocol.VoiceScreenFrame:
			if room, ok := s.currentVoiceRoom(username); ok {
				room.BroadcastScreenFrame(username, frame.Data)
			}
		default:
			log.Printf("Unknown voice frame type %q from %s", frame.Type, username)
		}
	}
}

func (s *Server) currentVoiceRoom(username string) (*voice.Room, bool) {
	roomID, ok := s.voice.UserRoom(username)
	if !ok {
		return nil, false
	}
	return s.voice.GetRoom(roomID)
}
