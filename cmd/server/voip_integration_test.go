package main

import (
	"net/http"
	"testing"

	"github.com/coder/websocket"
)

func TestVOIPRequiresUsername(t *testing.T) {
	_, ts := startWSServer(t)

	resp, err := http.Get(ts.URL + "/voip")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestVOIPCallLifecycleOverSockets(t *testing.T) {
	_, ts := startWSServer(t)

	alice := dialWS(t, ts, "/voip?username=alice")
	bob := dialWS(t, ts, "/voip?username=bob")

	writeText(t, alice, `{"type":"call_request","to_user":"bob","call_type":"audio"}`)

	request := readUntilType(t, bob, "call_request")
	if request["from_user"] != "alice" {
		t.Fatalf("call request from_user = %v", request["from_user"])
	}
	callID, _ := request["call_id"].(string)
	if callID == "" {
		t.Fatal("call request carries no call_id")
	}

	writeText(t, bob, `{"type":"call_accept","call_id":"`+callID+`"}`)
	accept := readUntilType(t, alice, "call_accept")
	if accept["call_id"] != callID {
		t.Fatalf("accept call_id = %v, want %s", accept["call_id"], callID)
	}

	// SDP relay between the established peers.
	writeText(t, alice, `{"type":"sdp_offer","to_user":"bob","call_id":"`+callID+`","sdp":{"type":"offer"}}`)
	offer := readUntilType(t, bob, "sdp_offer")
	if offer["from_user"] != "alice" {
		t.Fatalf("offer from_user = %v", offer["from_user"])
	}

	writeText(t, bob, `{"type":"call_end","call_id":"`+callID+`"}`)
	end := readUntilType(t, alice, "call_end")
	if end["call_id"] != callID {
		t.Fatalf("end call_id = %v", end["call_id"])
	}
}

func TestVOIPDisconnectEndsPendingCall(t *testing.T) {
	_, ts := startWSServer(t)

	alice := dialWS(t, ts, "/voip?username=alice")
	bob := dialWS(t, ts, "/voip?username=bob")

	writeText(t, alice, `{"type":"call_request","to_user":"bob"}`)
	readUntilType(t, bob, "call_request")

	// An invitee who disconnects before answering implicitly declines;
	// the caller is told the call ended.
	_ = bob.Close(websocket.StatusNormalClosure, "bye")

	end := readUntilType(t, alice, "call_end")
	if end["from_user"] != "bob" {
		t.Fatalf("end from_user = %v", end["from_user"])
	}
}

func TestVOIPCallToOfflineUser(t *testing.T) {
	_, ts := startWSServer(t)

	alice := dialWS(t, ts, "/voip?username=alice")
	writeText(t, alice, `{"type":"call_request","to_user":"ghost"}`)

	frame := readUntilType(t, alice, "call_error")
	payload, _ := frame["payload"].(map[string]interface{})
	if payload["error"] != "User ghost is not available" {
		t.Fatalf("error payload = %v", payload)
	}
}
