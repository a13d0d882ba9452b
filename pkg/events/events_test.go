package events

import (
	"encoding/json"
	"testing"
)

func TestChannelRoundTrip(t *testing.T) {
	ch := Channel("room-42")
	if ch != "room-events:room-42" {
		t.Fatalf("unexpected channel: %s", ch)
	}

	roomID, ok := RoomFromChannel(ch)
	if !ok || roomID != "room-42" {
		t.Fatalf("unexpected room id: %q %v", roomID, ok)
	}

	if _, ok := RoomFromChannel("room-events:"); ok {
		t.Fatalf("expected empty room id to be rejected")
	}
	if _, ok := RoomFromChannel("other:room-42"); ok {
		t.Fatalf("expected foreign channel to be rejected")
	}
}

func TestNew_MarshalsPayload(t *testing.T) {
	ev, err := New(RunFinished, "r1", "u1", RunStatusPayload{RunID: "run-1", Status: "succeeded"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.At.IsZero() {
		t.Fatalf("expected timestamp")
	}

	var payload RunStatusPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.RunID != "run-1" || payload.Status != "succeeded" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestNew_NilPayload(t *testing.T) {
	ev, err := New(MemberLeft, "r1", "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Payload != nil {
		t.Fatalf("expected no payload, got %s", ev.Payload)
	}
}
