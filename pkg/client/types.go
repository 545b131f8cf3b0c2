package client

import "log"

// Config holds configuration for a chat client.
type Config struct {
	ServerURL string // websocket URL of the chat endpoint, e.g. ws://host:8000/ws
	Username  string // username claimed on connect
	UserAgent string // HTTP User-Agent sent on the dial request
}

// EventHandler defines callbacks for handling server frames.
type EventHandler interface {
	OnConnected()
	OnDisconnected()
	OnMessage(text, timestamp string)
	OnPrivate(from, text string)
	OnInfo(text string)
	OnError(text string)
	OnUserList(users []string)
}

// DefaultEventHandler provides a basic logging implementation of EventHandler.
type DefaultEventHandler struct{}

func (h *DefaultEventHandler) OnConnected()    { log.Printf("Connected to server") }
func (h *DefaultEventHandler) OnDisconnected() { log.Printf("Disconnected from server") }
func (h *DefaultEventHandler) OnMessage(text, timestamp string) {
	log.Printf("[%s] %s", timestamp, text)
}
func (h *DefaultEventHandler) OnPrivate(from, text string) { log.Printf("🔒 %s: %s", from, text) }
func (h *DefaultEventHandler) OnInfo(text string)          { log.Printf("ℹ️ %s", text) }
func (h *DefaultEventHandler) OnError(text string)         { log.Printf("❌ Server error: %s", text) }
func (h *DefaultEventHandler) OnUserList(users []string)   { log.Printf("👥 Online: %v", users) }
