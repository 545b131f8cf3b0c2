package voice_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"chatroom/internal/types"
	"chatroom/internal/voice"
)

func TestScreenShareExclusive(t *testing.T) {
	mgr := voice.NewManager()
	room := mgr.JoinRoom("lobby", "alice", voiceConn("alice"))
	mgr.JoinRoom("lobby", "bob", voiceConn("bob"))

	if !room.StartScreenShare("alice") {
		t.Fatal("alice should claim the share")
	}
	if room.StartScreenShare("bob") {
		t.Fatal("bob should be denied while alice shares")
	}
	if sharer, active := room.ScreenSharer(); !active || sharer != "alice" {
		t.Errorf("sharer = %q active=%v, want alice active", sharer, active)
	}

	// Re-claiming by the current sharer succeeds.
	if !room.StartScreenShare("alice") {
		t.Error("alice re-claim should succeed")
	}

	if room.StopScreenShare("bob") {
		t.Error("bob cannot stop alice's share")
	}
	if !room.StopScreenShare("alice") {
		t.Error("alice should stop her own share")
	}
	if room.StopScreenShare("alice") {
		t.Error("stopping an inactive share should fail")
	}

	if !room.StartScreenShare("bob") {
		t.Error("bob should claim the share after alice released it")
	}
}

func TestScreenStateBroadcastOnChange(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	bob := voiceConn("bob")
	room := mgr.JoinRoom("lobby", "alice", alice)
	mgr.JoinRoom("lobby", "bob", bob)
	drainFrames(alice)
	drainFrames(bob)

	room.StartScreenShare("alice")

	for _, conn := range []*types.Conn{alice, bob} {
		frame := nextFrame(t, conn)
		if frame["type"] != "screen_state" {
			t.Errorf("%s frame type = %v, want screen_state", conn.ID, frame["type"])
		}
		if frame["active"] != true || frame["sharer"] != "alice" {
			t.Errorf("%s state = %v", conn.ID, frame)
		}
	}

	room.StopScreenShare("alice")
	frame := nextFrame(t, bob)
	if frame["active"] != false {
		t.Errorf("stop state = %v", frame)
	}
}

func TestLateJoinerSeesActiveShare(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	room := mgr.JoinRoom("lobby", "alice", alice)
	room.StartScreenShare("alice")

	bob := voiceConn("bob")
	mgr.JoinRoom("lobby", "bob", bob)

	roster := nextFrame(t, bob)
	if roster["type"] != "user_list" {
		t.Fatalf("first frame type = %v, want user_list", roster["type"])
	}
	if roster["active"] != true || roster["sharer"] != "alice" {
		t.Errorf("roster share state = %v", roster)
	}

	state := nextFrame(t, bob)
	if state["type"] != "screen_state" {
		t.Fatalf("second frame type = %v, want screen_state", state["type"])
	}
	if state["active"] != true || state["sharer"] != "alice" {
		t.Errorf("pushed state = %v", state)
	}
}

func TestScreenFrameOnlyFromSharer(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	bob := voiceConn("bob")
	carol := voiceConn("carol")
	room := mgr.JoinRoom("lobby", "alice", alice)
	mgr.JoinRoom("lobby", "bob", bob)
	mgr.JoinRoom("lobby", "carol", carol)
	room.StartScreenShare("alice")
	drainFrames(alice)
	drainFrames(bob)
	drainFrames(carol)

	room.BroadcastScreenFrame("bob", json.RawMessage(`"sneaky"`))
	for _, conn := range []*types.Conn{alice, bob, carol} {
		select {
		case payload := <-conn.Send:
			t.Errorf("non-sharer frame reached %s: %s", conn.ID, payload)
		default:
		}
	}

	room.BroadcastScreenFrame("alice", json.RawMessage(`"frame-1"`))
	for _, conn := range []*types.Conn{bob, carol} {
		frame := nextFrame(t, conn)
		if frame["type"] != "screen_frame" {
			t.Errorf("%s frame type = %v", conn.ID, frame["type"])
		}
		if frame["from_user"] != "alice" {
			t.Errorf("%s from_user = %v", conn.ID, frame["from_user"])
		}
	}
	select {
	case payload := <-alice.Send:
		t.Errorf("sender received own frame: %s", payload)
	default:
	}
}

func TestBroadcastAudioExcludesSender(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	bob := voiceConn("bob")
	room := mgr.JoinRoom("lobby", "alice", alice)
	mgr.JoinRoom("lobby", "bob", bob)
	drainFrames(alice)
	drainFrames(bob)

	room.BroadcastAudio("alice", json.RawMessage(`[1,2,3]`))

	frame := nextFrame(t, bob)
	if frame["type"] != "audio" {
		t.Errorf("frame type = %v, want audio", frame["type"])
	}
	if frame["from_user"] != "alice" {
		t.Errorf("from_user = %v, want alice", frame["from_user"])
	}
	if !reflect.DeepEqual(frame["data"], []interface{}{1.0, 2.0, 3.0}) {
		t.Errorf("data = %v", frame["data"])
	}

	select {
	case payload := <-alice.Send:
		t.Errorf("sender received own audio: %s", payload)
	default:
	}
}

func TestBroadcastDropsUnresponsiveParticipant(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	room := mgr.JoinRoom("lobby", "alice", alice)

	// stuck has room for the join roster and nothing more.
	stuck := &types.Conn{ID: "stuck", Send: make(chan []byte, 1)}
	mgr.JoinRoom("lobby", "stuck", stuck)

	room.BroadcastAudio("alice", json.RawMessage(`[9]`))

	if got := room.Participants(); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("participants after drop = %v, want [alice]", got)
	}
}

func TestSharerLeavingClearsShare(t *testing.T) {
	mgr := voice.NewManager()
	alice := voiceConn("alice")
	bob := voiceConn("bob")
	room := mgr.JoinRoom("lobby", "alice", alice)
	mgr.JoinRoom("lobby", "bob", bob)
	room.StartScreenShare("alice")

	mgr.LeaveRoom("alice")

	if _, active := room.ScreenSharer(); active {
		t.Error("share should clear when the sharer leaves")
	}
	if !room.StartScreenShare("bob") {
		t.Error("bob should claim the share after alice left")
	}
}
