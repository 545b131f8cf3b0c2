package voice

import (
	"log"
	"sync"

	"chatroom/internal/types"
)

// Manager owns the room table and the user→room index. Every user is in
// at most one room at a time.
type Manager struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	userRooms map[string]string
}

// NewManager returns an empty room manager.
func NewManager() *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		userRooms: make(map[string]string),
	}
}

// JoinRoom adds username to the room named roomID, creating it if
// needed. A user already in a different room fully leaves it first, so
// the single-room invariant holds at every observable instant.
func (m *Manager) JoinRoom(roomID, username string, conn *types.Conn) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldID, ok := m.userRooms[username]; ok && oldID != roomID {
		m.removeFromRoomLocked(oldID, username)
	}

	room, ok := m.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		m.rooms[roomID] = room
	}
	m.userRooms[username] = roomID
	room.addParticipant(username, conn)
	return room
}

// LeaveRoom removes username from its current room, if any, deleting
// the room once empty.
func (m *Manager) LeaveRoom(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.userRooms[username]
	if !ok {
		return
	}
	m.removeFromRoomLocked(roomID, username)
	delete(m.userRooms, username)
}

// GetRoom returns the room named roomID.
func (m *Manager) GetRoom(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// UserRoom returns the room identifier username is currently in.
func (m *Manager) UserRoom(username string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.userRooms[username]
	return roomID, ok
}

// Rooms returns a snapshot of every room and its participants.
func (m *Manager) Rooms() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string][]string, len(m.rooms))
	for roomID, room := range m.rooms {
		snapshot[roomID] = room.Participants()
	}
	return snapshot
}

// removeFromRoomLocked must run under m.mu. The empty-room check and
// deletion happen in the same critical section as the leave, so a
// concurrent join cannot land in a room mid-deletion.
func (m *Manager) removeFromRoomLocked(roomID, username string) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	room.removeParticipant(username)
	if room.IsEmpty() {
		delete(m.rooms, roomID)
		log.Printf("voice: room %s deleted (empty)", roomID)
	}
}
