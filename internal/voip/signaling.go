package voip

import (
	"errors"
	"sync"
)

// Busy outcomes of CreateCall.
var (
	ErrCallerBusy = errors.New("caller already in a call")
	ErrCalleeBusy = errors.New("callee already in a call")
)

// SignalingManager tracks pending and active call sessions plus the
// username→call busy index. One lock guards all three tables so every
// state transition is a single atomic decision.
type SignalingManager struct {
	mu        sync.Mutex
	pending   map[string]*CallSession
	active    map[string]*CallSession
	userCalls map[string]string
}

// NewSignalingManager returns an empty signaling table.
func NewSignalingManager() *SignalingManager {
	return &SignalingManager{
		pending:   make(map[string]*CallSession),
		active:    make(map[string]*CallSession),
		userCalls: make(map[string]string),
	}
}

// CreateCall starts a new outgoing call. The busy check and the session
// creation happen under one lock acquisition, so two concurrent
// requests can never double-book a user. Only the caller is bound in
// the busy index until the callee accepts.
func (m *SignalingManager) CreateCall(caller, callee, callType string) (*CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.userCalls[caller]; busy {
		return nil, ErrCallerBusy
	}
	if _, busy := m.userCalls[callee]; busy {
		return nil, ErrCalleeBusy
	}

	session := newCallSession(caller, callee, callType)
	m.pending[session.CallID] = session
	m.userCalls[caller] = session.CallID
	return session, nil
}

// AcceptCall transitions a pending call to active and binds the callee
// in the busy index. It reports false when callID is not pending.
func (m *SignalingManager) AcceptCall(callID string) (*CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.pending[callID]
	if !ok {
		return nil, false
	}
	delete(m.pending, callID)
	session.start()
	m.active[callID] = session
	m.userCalls[session.Callee] = callID
	return session, true
}

// RejectCall ends a pending call and unbinds the caller. Only pending
// calls can be rejected.
func (m *SignalingManager) RejectCall(callID string) (*CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejectCallLocked(callID)
}

// EndCall ends a pending or active call and unbinds both parties. A
// second end of the same call reports false.
func (m *SignalingManager) EndCall(callID string) (*CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endCallLocked(callID)
}

// GetCall returns the pending or active session with callID.
func (m *SignalingManager) GetCall(callID string) (*CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.pending[callID]; ok {
		return session, true
	}
	session, ok := m.active[callID]
	return session, ok
}

// UserCall returns the session username is currently bound to.
func (m *SignalingManager) UserCall(username string) (*CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	callID, ok := m.userCalls[username]
	if !ok {
		return nil, false
	}
	if session, ok := m.pending[callID]; ok {
		return session, true
	}
	session, ok := m.active[callID]
	return session, ok
}

// IsUserBusy reports whether username is bound to any call.
func (m *SignalingManager) IsUserBusy(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.userCalls[username]
	return busy
}

// Stats reports the number of pending and active calls.
func (m *SignalingManager) Stats() (pending, active int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), len(m.active)
}

// CleanupUser runs on disconnect: it ends the user's own call, if any,
// and rejects every pending call where the user is the callee. It
// returns the sessions that changed so the caller can notify peers.
func (m *SignalingManager) CleanupUser(username string) []*CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []*CallSession
	if callID, ok := m.userCalls[username]; ok {
		if session, ok := m.endCallLocked(callID); ok {
			ended = append(ended, session)
		}
	}
	for callID, session := range m.pending {
		if session.Callee == username {
			if rejected, ok := m.rejectCallLocked(callID); ok {
				ended = append(ended, rejected)
			}
		}
	}
	return ended
}

func (m *SignalingManager) rejectCallLocked(callID string) (*CallSession, bool) {
	session, ok := m.pending[callID]
	if !ok {
		return nil, false
	}
	delete(m.pending, callID)
	session.end()
	delete(m.userCalls, session.Caller)
	return session, true
}

func (m *SignalingManager) endCallLocked(callID string) (*CallSession, bool) {
	session, ok := m.pending[callID]
	if ok {
		delete(m.pending, callID)
	} else {
		session, ok = m.active[callID]
		if !ok {
			return nil, false
		}
		delete(m.active, callID)
	}
	session.end()
	delete(m.userCalls, session.Caller)
	delete(m.userCalls, session.Callee)
	return session, true
}
