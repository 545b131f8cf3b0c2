package chat

import (
	"encoding/json"
	"log"
	"strings"

	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// MessageSaver persists chat lines. Save failures stay on the persistence
// path; the broadcaster only logs them.
type MessageSaver interface {
	SaveMessage(username, content, timestamp, msgType string) error
}

// Broadcaster fans chat envelopes out to every claimed connection. Delivery
// is best-effort: a full send buffer on one connection is logged and skipped
// without touching the others, and never unregisters the connection.
type Broadcaster struct {
	registry *Registry
	saver    MessageSaver
}

func NewBroadcaster(registry *Registry, saver MessageSaver) *Broadcaster {
	return &Broadcaster{registry: registry, saver: saver}
}

// Broadcast sends a message envelope to every online connection, then
// schedules persistence of the line without blocking the caller. The stored
// username/content pair is derived by splitting text on its first colon;
// lines without one are not persisted.
func (b *Broadcaster) Broadcast(text, timestamp string) {
	payload, err := json.Marshal(protocol.Message(text, timestamp))
	if err != nil {
		log.Printf("Failed to marshal chat message: %v", err)
		return
	}

	for _, conn := range b.registry.Conns() {
		if err := conn.Enqueue(payload); err != nil {
			log.Printf("Dropping chat message for connection %s: %v", conn.ID, err)
		}
	}

	if b.saver != nil {
		go b.persist(text, timestamp)
	}
}

// BroadcastUserList pushes the current online-user snapshot to everyone.
// Called after any join or leave.
func (b *Broadcaster) BroadcastUserList() {
	payload, err := json.Marshal(protocol.UserList(b.registry.Snapshot()))
	if err != nil {
		log.Printf("Failed to marshal user list: %v", err)
		return
	}

	for _, conn := range b.registry.Conns() {
		if err := conn.Enqueue(payload); err != nil {
			log.Printf("Dropping user list for connection %s: %v", conn.ID, err)
		}
	}
}

func (b *Broadcaster) persist(text, timestamp string) {
	username, content, ok := splitChatLine(text)
	if !ok {
		return
	}
	if err := b.saver.SaveMessage(username, content, timestamp, types.MessageTypeNormal); err != nil {
		log.Printf("Failed to save chat message: %v", err)
	}
}

// splitChatLine splits "username: content" on the first colon.
func splitChatLine(text string) (username, content string, ok bool) {
	i := strings.Index(text, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:]), true
}
