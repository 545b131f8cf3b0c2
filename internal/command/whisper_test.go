package command_test

import (
	"context"
	"encoding/json"
	"testing"

	"chatroom/internal/chat"
	"chatroom/internal/command"
	"chatroom/internal/types"
	"chatroom/pkg/protocol"
)

func claimedConn(t *testing.T, registry *chat.Registry, username string) *types.Conn {
	t.Helper()

	conn := &types.Conn{ID: username, Send: make(chan []byte, 10)}
	if err := registry.Claim(conn, username); err != nil {
		t.Fatalf("failed to claim %q: %v", username, err)
	}
	return conn
}

func receivedEnvelope(t *testing.T, conn *types.Conn) protocol.ChatEnvelope {
	t.Helper()

	select {
	case payload := <-conn.Send:
		var env protocol.ChatEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no envelope queued")
		return protocol.ChatEnvelope{}
	}
}

func TestWhisperDeliversPrivately(t *testing.T) {
	registry := chat.NewRegistry()
	bob := claimedConn(t, registry, "bob")
	alice := claimedConn(t, registry, "alice")
	charlie := claimedConn(t, registry, "charlie")

	engine := command.NewEngine()
	engine.Register(command.NewWhisper())

	resp := engine.Dispatch(context.Background(), &command.Context{
		Conn:     bob,
		Username: "bob",
		Registry: registry,
	}, "/t @alice are you free")

	if !resp.Success {
		t.Fatalf("whisper failed: %s", resp.Message)
	}
	if resp.Message != "Private message sent to alice" {
		t.Errorf("confirmation = %q", resp.Message)
	}
	if resp.ResponseType != protocol.TypeInfo {
		t.Errorf("response type = %q, want info", resp.ResponseType)
	}

	env := receivedEnvelope(t, alice)
	if env.Type != protocol.TypePrivate {
		t.Errorf("envelope type = %q, want private", env.Type)
	}
	if env.From != "bob" {
		t.Errorf("from = %q, want bob", env.From)
	}
	if env.Text != "are you free" {
		t.Errorf("text = %q", env.Text)
	}

	select {
	case payload := <-charlie.Send:
		t.Errorf("whisper leaked to charlie: %s", payload)
	default:
	}
	select {
	case payload := <-bob.Send:
		t.Errorf("whisper echoed to sender: %s", payload)
	default:
	}
}

func TestWhisperWorksWithoutAtPrefix(t *testing.T) {
	registry := chat.NewRegistry()
	bob := claimedConn(t, registry, "bob")
	alice := claimedConn(t, registry, "alice")

	engine := command.NewEngine()
	engine.Register(command.NewWhisper())

	resp := engine.Dispatch(context.Background(), &command.Context{
		Conn:     bob,
		Username: "bob",
		Registry: registry,
	}, "/t alice hi")

	if !resp.Success {
		t.Fatalf("whisper failed: %s", resp.Message)
	}
	env := receivedEnvelope(t, alice)
	if env.Text != "hi" {
		t.Errorf("text = %q", env.Text)
	}
}

func TestWhisperRejectsSelfTarget(t *testing.T) {
	registry := chat.NewRegistry()
	bob := claimedConn(t, registry, "bob")

	engine := command.NewEngine()
	engine.Register(command.NewWhisper())

	resp := engine.Dispatch(context.Background(), &command.Context{
		Conn:     bob,
		Username: "bob",
		Registry: registry,
	}, "/t @bob hi")

	if resp.Success {
		t.Fatal("self whisper should fail")
	}
	if resp.Message != "You cannot send a private message to yourself" {
		t.Errorf("message = %q", resp.Message)
	}

	select {
	case payload := <-bob.Send:
		t.Errorf("unexpected delivery: %s", payload)
	default:
	}
}

func TestWhisperRejectsOfflineTarget(t *testing.T) {
	registry := chat.NewRegistry()
	bob := claimedConn(t, registry, "bob")

	engine := command.NewEngine()
	engine.Register(command.NewWhisper())

	resp := engine.Dispatch(context.Background(), &command.Context{
		Conn:     bob,
		Username: "bob",
		Registry: registry,
	}, "/t @dave hi")

	if resp.Success {
		t.Fatal("offline whisper should fail")
	}
	if resp.Message != "User 'dave' is not online" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWhisperValidation(t *testing.T) {
	engine := command.NewEngine()
	engine.Register(command.NewWhisper())

	tests := []struct {
		message string
		want    string
	}{
		{"/t @alice", "Invalid arguments: Invalid format. Usage: /t @username <message>"},
		{"/t", "Invalid arguments: Invalid format. Usage: /t @username <message>"},
		{"/t @ hello", "Invalid arguments: Username cannot be empty"},
	}

	for _, tc := range tests {
		resp := engine.Dispatch(context.Background(), newContext(), tc.message)
		if resp.Success {
			t.Errorf("Dispatch(%q) succeeded, want validation failure", tc.message)
			continue
		}
		if resp.Message != tc.want {
			t.Errorf("Dispatch(%q) message = %q, want %q", tc.message, resp.Message, tc.want)
		}
	}
}
