// Package voip implements one-to-one call signaling: call session
// state, the busy index, and relay of SDP and ICE payloads between
// peers.
package voip

import (
	"time"

	"github.com/google/uuid"
)

// Call session states. Sessions are created directly into
// StateOutgoing.
const (
	StateOutgoing = "outgoing"
	StateActive   = "active"
	StateEnded    = "ended"
)

// CallSession is one call between two users. Its fields are mutated
// only by the SignalingManager under its lock.
type CallSession struct {
	CallID    string     `json:"call_id"`
	Caller    string     `json:"caller"`
	Callee    string     `json:"callee"`
	CallType  string     `json:"call_type"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func newCallSession(caller, callee, callType string) *CallSession {
	if callType == "" {
		callType = "audio"
	}
	return &CallSession{
		CallID:    uuid.New().String(),
		Caller:    caller,
		Callee:    callee,
		CallType:  callType,
		State:     StateOutgoing,
		CreatedAt: time.Now(),
	}
}

func (s *CallSession) start() {
	now := time.Now()
	s.State = StateActive
	s.StartedAt = &now
}

func (s *CallSession) end() {
	now := time.Now()
	s.State = StateEnded
	s.EndedAt = &now
}

// Duration returns the call length in whole seconds. It reports false
// until the call has both started and ended.
func (s *CallSession) Duration() (int, bool) {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0, false
	}
	return int(s.EndedAt.Sub(*s.StartedAt).Seconds()), true
}
