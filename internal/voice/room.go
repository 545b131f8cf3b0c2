// Package voice manages audio chat rooms and the per-room screen share.
// Each user belongs to at most one room; rooms are created on first join
// and deleted when the last participant leaves.
package voice

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// Room is one voice room. All methods lock the room itself, never the
// manager, so traffic in one room does not contend with membership
// changes in another.
type Room struct {
	roomID string

	mu           sync.Mutex
	participants map[string]*types.Conn
	screenSharer string
	screenActive bool
}

func newRoom(roomID string) *Room {
	return &Room{
		roomID:       roomID,
		participants: make(map[string]*types.Conn),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string {
	return r.roomID
}

// Participants returns the current member names in sorted order.
func (r *Room) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

// IsEmpty reports whether the room has no participants left.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0
}

// ScreenSharer returns the active sharer's name, if any.
func (r *Room) ScreenSharer() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screenSharer, r.screenActive
}

// BroadcastAudio relays one audio frame to every participant except the
// sender.
func (r *Room) BroadcastAudio(sender string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relayLocked(protocol.VoiceAudio, sender, data)
}

// StartScreenShare claims the room's screen share for username. It
// fails when a different user currently holds the share; re-claiming by
// the current sharer succeeds.
func (r *Room) StartScreenShare(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.screenActive && r.screenSharer != username {
		return false
	}
	r.screenSharer = username
	r.screenActive = true
	log.Printf("voice: user %s started screen share in room %s", username, r.roomID)
	r.broadcastScreenStateLocked()
	return true
}

// StopScreenShare releases the share. Only the current sharer may stop
// it.
func (r *Room) StopScreenShare(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.screenActive || r.screenSharer != username {
		return false
	}
	r.screenSharer = ""
	r.screenActive = false
	log.Printf("voice: user %s stopped screen share in room %s", username, r.roomID)
	r.broadcastScreenStateLocked()
	return true
}

// BroadcastScreenFrame relays one screen frame to every other
// participant. Frames from anyone but the active sharer are dropped;
// the check runs on every frame.
func (r *Room) BroadcastScreenFrame(sender string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.screenActive || r.screenSharer != sender {
		log.Printf("voice: dropping screen frame from non-sharer %s in room %s", sender, r.roomID)
		return
	}
	r.relayLocked(protocol.VoiceScreenFrame, sender, data)
}

func (r *Room) addParticipant(username string, conn *types.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[username] = conn
	log.Printf("voice: user %s joined room %s", username, r.roomID)
	r.broadcastRosterLocked()
	if r.screenActive {
		state := protocol.ScreenState{
			Type:   protocol.VoiceScreenState,
			Active: true,
			Sharer: r.screenSharer,
		}
		if err := conn.EnqueueJSON(state); err != nil {
			log.Printf("voice: failed to push screen state to %s: %v", username, err)
		}
	}
}

func (r *Room) removeParticipant(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[username]; !ok {
		return
	}
	delete(r.participants, username)
	log.Printf("voice: user %s left room %s", username, r.roomID)
	if r.screenActive && r.screenSharer == username {
		r.screenSharer = ""
		r.screenActive = false
	}
	r.broadcastRosterLocked()
}

func (r *Room) participantsLocked() []string {
	users := make([]string, 0, len(r.participants))
	for username := range r.participants {
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}

func (r *Room) broadcastRosterLocked() {
	roster := protocol.VoiceRoster{
		Type:   protocol.VoiceUserList,
		Users:  r.participantsLocked(),
		Active: r.screenActive,
		Sharer: r.screenSharer,
	}
	payload, err := json.Marshal(roster)
	if err != nil {
		log.Printf("voice: failed to encode roster for room %s: %v", r.roomID, err)
		return
	}
	r.broadcastLocked(payload, "")
}

func (r *Room) broadcastScreenStateLocked() {
	state := protocol.ScreenState{
		Type:   protocol.VoiceScreenState,
		Active: r.screenActive,
		Sharer: r.screenSharer,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		log.Printf("voice: failed to encode screen state for room %s: %v", r.roomID, err)
		return
	}
	r.broadcastLocked(payload, "")
}

func (r *Room) relayLocked(frameType, sender string, data json.RawMessage) {
	relay := protocol.VoiceRelay{
		Type:     frameType,
		FromUser: sender,
		Data:     data,
	}
	payload, err := json.Marshal(relay)
	if err != nil {
		log.Printf("voice: failed to encode %s frame for room %s: %v", frameType, r.roomID, err)
		return
	}
	r.broadcastLocked(payload, sender)
}

// broadcastLocked fans payload out to every participant except exclude.
// Recipients whose send buffer is full are dropped from the room so a
// stale socket cannot keep accumulating failures.
func (r *Room) broadcastLocked(payload []byte, exclude string) {
	var dropped []string
	for username, conn := range r.participants {
		if username == exclude {
			continue
		}
		if err := conn.Enqueue(payload); err != nil {
			log.Printf("voice: failed to send to %s in room %s: %v", username, r.roomID, err)
			dropped = append(dropped, username)
		}
	}
	for _, username := range dropped {
		delete(r.participants, username)
	}
}
