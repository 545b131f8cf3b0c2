package voip

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

// Manager owns the VOIP connection registry and routes signaling
// messages between peers. Malformed or unknown frames are logged and
// dropped; the connection stays open.
type Manager struct {
	signaling *SignalingManager

	mu    sync.Mutex
	conns map[string]*types.Conn
}

// NewManager returns a Manager with an empty signaling table.
func NewManager() *Manager {
	return &Manager{
		signaling: NewSignalingManager(),
		conns:     make(map[string]*types.Conn),
	}
}

// Signaling exposes the call session table.
func (m *Manager) Signaling() *SignalingManager {
	return m.signaling
}

// Register binds username's VOIP connection.
func (m *Manager) Register(username string, conn *types.Conn) {
	m.mu.Lock()
	m.conns[username] = conn
	m.mu.Unlock()
	log.Printf("voip: connection registered for user %s", username)
}

// Unregister drops username's connection, tears down the user's calls,
// and notifies the peer of every call that ended. A callee who
// disconnects before answering implicitly declines.
func (m *Manager) Unregister(username string) {
	m.mu.Lock()
	if _, ok := m.conns[username]; ok {
		delete(m.conns, username)
		log.Printf("voip: connection unregistered for user %s", username)
	}
	m.mu.Unlock()

	for _, session := range m.signaling.CleanupUser(username) {
		other := session.Callee
		if other == username {
			other = session.Caller
		}
		m.send(protocol.VOIPMessage{
			Type:     protocol.VOIPCallEnd,
			FromUser: username,
			ToUser:   other,
			CallID:   session.CallID,
		})
	}
}

// HandleMessage dispatches one inbound signaling frame from username.
func (m *Manager) HandleMessage(username string, msg protocol.VOIPMessage) {
	switch msg.Type {
	case protocol.VOIPCallRequest:
		m.handleCallRequest(username, msg)
	case protocol.VOIPCallAccept:
		m.handleCallAccept(username, msg)
	case protocol.VOIPCallReject:
		m.handleCallReject(username, msg)
	case protocol.VOIPCallEnd:
		m.handleCallEnd(username, msg)
	case protocol.VOIPSDPOffer:
		m.relaySDP(username, msg, protocol.VOIPSDPOffer, "Missing SDP offer data")
	case protocol.VOIPSDPAnswer:
		m.relaySDP(username, msg, protocol.VOIPSDPAnswer, "Missing SDP answer data")
	case protocol.VOIPICECandidate:
		m.handleICECandidate(username, msg)
	default:
		log.Printf("voip: unknown message type: %q", msg.Type)
	}
}

func (m *Manager) handleCallRequest(username string, msg protocol.VOIPMessage) {
	if msg.ToUser == "" {
		m.sendError(username, "Missing target user")
		return
	}
	callType := msg.CallType
	if callType == "" {
		callType = "audio"
	}
	if !m.isConnected(msg.ToUser) {
		m.sendError(username, fmt.Sprintf("User %s is not available", msg.ToUser))
		return
	}

	session, err := m.signaling.CreateCall(username, msg.ToUser, callType)
	switch {
	case errors.Is(err, ErrCallerBusy):
		m.sendError(username, "You already have an active call")
	case errors.Is(err, ErrCalleeBusy):
		m.send(protocol.VOIPMessage{
			Type:     protocol.VOIPCallBusy,
			FromUser: msg.ToUser,
			ToUser:   username,
		})
	case err == nil:
		m.send(protocol.VOIPMessage{
			Type:     protocol.VOIPCallRequest,
			FromUser: username,
			ToUser:   msg.ToUser,
			CallID:   session.CallID,
			Payload:  map[string]interface{}{"call_type": callType},
		})
		log.Printf("voip: call request from %s to %s (%s)", username, msg.ToUser, callType)
	}
}

func (m *Manager) handleCallAccept(username string, msg protocol.VOIPMessage) {
	if msg.CallID == "" {
		m.sendError(username, "Missing call_id")
		return
	}
	session, ok := m.signaling.AcceptCall(msg.CallID)
	if !ok {
		m.sendError(username, "Call not found or already ended")
		return
	}
	m.send(protocol.VOIPMessage{
		Type:     protocol.VOIPCallAccept,
		FromUser: username,
		ToUser:   session.Caller,
		CallID:   msg.CallID,
	})
	log.Printf("voip: call %s accepted by %s", msg.CallID, username)
}

func (m *Manager) handleCallReject(username string, msg protocol.VOIPMessage) {
	if msg.CallID == "" {
		m.sendError(username, "Missing call_id")
		return
	}
	session, ok := m.signaling.RejectCall(msg.CallID)
	if !ok {
		m.sendError(username, "Call not found")
		return
	}
	m.send(protocol.VOIPMessage{
		Type:     protocol.VOIPCallReject,
		FromUser: username,
		ToUser:   session.Caller,
		CallID:   msg.CallID,
	})
	log.Printf("voip: call %s rejected by %s", msg.CallID, username)
}

func (m *Manager) handleCallEnd(username string, msg protocol.VOIPMessage) {
	if msg.CallID == "" {
		m.sendError(username, "Missing call_id")
		return
	}
	session, ok := m.signaling.EndCall(msg.CallID)
	if !ok {
		return
	}
	other := session.Callee
	if session.Caller != username {
		other = session.Caller
	}
	m.send(protocol.VOIPMessage{
		Type:     protocol.VOIPCallEnd,
		FromUser: username,
		ToUser:   other,
		CallID:   msg.CallID,
	})
	log.Printf("voip: call %s ended by %s", msg.CallID, username)
}

func (m *Manager) relaySDP(username string, msg protocol.VOIPMessage, msgType, missingError string) {
	if msg.ToUser == "" || emptyJSON(msg.SDP) {
		m.sendError(username, missingError)
		return
	}
	m.send(protocol.VOIPMessage{
		Type:     msgType,
		FromUser: username,
		ToUser:   msg.ToUser,
		CallID:   msg.CallID,
		Payload:  map[string]interface{}{"sdp": msg.SDP},
	})
}

func (m *Manager) handleICECandidate(username string, msg protocol.VOIPMessage) {
	if msg.ToUser == "" || emptyJSON(msg.Candidate) {
		m.sendError(username, "Missing ICE candidate data")
		return
	}
	m.send(protocol.VOIPMessage{
		Type:     protocol.VOIPICECandidate,
		FromUser: username,
		ToUser:   msg.ToUser,
		CallID:   msg.CallID,
		Payload:  map[string]interface{}{"candidate": msg.Candidate},
	})
}

func (m *Manager) isConnected(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conns[username]
	return ok
}

// send delivers msg to its to_user. A missing or broken target degrades
// to a logged no-op.
func (m *Manager) send(msg protocol.VOIPMessage) bool {
	if msg.Timestamp == "" {
		msg.Timestamp = protocol.Timestamp()
	}

	m.mu.Lock()
	conn, ok := m.conns[msg.ToUser]
	m.mu.Unlock()
	if !ok {
		log.Printf("voip: user %s not connected", msg.ToUser)
		return false
	}
	if err := conn.EnqueueJSON(msg); err != nil {
		log.Printf("voip: failed to send to %s: %v", msg.ToUser, err)
		return false
	}
	return true
}

func (m *Manager) sendError(username, errorMsg string) {
	m.send(protocol.VOIPMessage{
		Type:     protocol.VOIPCallError,
		FromUser: protocol.SystemUser,
		ToUser:   username,
		Payload:  map[string]interface{}{"error": errorMsg},
	})
}

func emptyJSON(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
