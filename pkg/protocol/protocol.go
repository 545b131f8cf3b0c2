package protocol

import (
	"encoding/json"
	"time"
)

// Chat envelope types shared between client and server.
const (
	TypeError    = "error"
	TypeInfo     = "info"
	TypeUserList = "userlist"
	TypeMessage  = "message"
	TypePrivate  = "private"
)

// Voice room frame types.
const (
	VoiceJoin        = "join"
	VoiceLeave       = "leave"
	VoiceAudio       = "audio"
	VoiceUserList    = "user_list"
	VoiceScreenStart = "screen_start"
	VoiceScreenStop  = "screen_stop"
	VoiceScreenFrame = "screen_frame"
	VoiceScreenState = "screen_state"
	VoiceError       = "error"
)

// VOIP signaling message types.
const (
	VOIPCallRequest  = "call_request"
	VOIPCallAccept   = "call_accept"
	VOIPCallReject   = "call_reject"
	VOIPCallEnd      = "call_end"
	VOIPCallBusy     = "call_busy"
	VOIPCallTimeout  = "call_timeout"
	VOIPCallError    = "call_error"
	VOIPSDPOffer     = "sdp_offer"
	VOIPSDPAnswer    = "sdp_answer"
	VOIPICECandidate = "ice_candidate"
)

// SystemUser is the from_user on server-originated VOIP errors.
const SystemUser = "system"

// Timestamp returns the wall clock in the HH:MM:SS display form used on
// chat and VOIP envelopes.
func Timestamp() string {
	return time.Now().Format("15:04:05")
}

// ChatEnvelope is one chat-namespace frame. Type discriminates which of the
// optional fields are meaningful.
type ChatEnvelope struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	From      string `json:"from,omitempty"`
}

// Error builds an error envelope.
func Error(text string) ChatEnvelope {
	return ChatEnvelope{Type: TypeError, Text: text}
}

// Info builds an info envelope.
func Info(text string) ChatEnvelope {
	return ChatEnvelope{Type: TypeInfo, Text: text}
}

// Message builds a broadcast chat message envelope.
func Message(text, timestamp string) ChatEnvelope {
	return ChatEnvelope{Type: TypeMessage, Text: text, Timestamp: timestamp}
}

// Private builds a direct message envelope.
func Private(from, text string) ChatEnvelope {
	return ChatEnvelope{Type: TypePrivate, From: from, Text: text}
}

// UserListEnvelope carries the online-user snapshot; Users is always
// present, even when empty.
type UserListEnvelope struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// UserList builds a userlist envelope.
func UserList(users []string) UserListEnvelope {
	if users == nil {
		users = []string{}
	}
	return UserListEnvelope{Type: TypeUserList, Users: users}
}

// VoiceFrame is one client→server voice-namespace frame. Data stays opaque;
// the server relays it without reparsing.
type VoiceFrame struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// VoiceRoster is the server→client room membership snapshot, including the
// room's current screen-share state.
type VoiceRoster struct {
	Type   string   `json:"type"`
	Users  []string `json:"users"`
	Active bool     `json:"active"`
	Sharer string   `json:"sharer,omitempty"`
}

// VoiceRelay is a server→client audio or screen frame attributed to its
// sender.
type VoiceRelay struct {
	Type     string          `json:"type"`
	FromUser string          `json:"from_user"`
	Data     json.RawMessage `json:"data"`
}

// ScreenState announces a change of screen-share ownership in a room.
type ScreenState struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
	Sharer string `json:"sharer,omitempty"`
}

// VOIPMessage is one VOIP-namespace frame in either direction. Inbound
// frames carry to_user plus type-specific top-level fields (call_type, sdp,
// candidate); outbound frames wrap relayed data into Payload.
type VOIPMessage struct {
	Type      string                 `json:"type"`
	FromUser  string                 `json:"from_user,omitempty"`
	ToUser    string                 `json:"to_user,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	CallType  string                 `json:"call_type,omitempty"`
	SDP       json.RawMessage        `json:"sdp,omitempty"`
	Candidate json.RawMessage        `json:"candidate,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}
