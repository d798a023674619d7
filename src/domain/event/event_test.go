package event

import (
	"encoding/json"
	"testing"
	"time"

	"chat/src/domain/scope"
)

func TestRoundTripWireFormat(t *testing.T) {
	original := ChatEvent{
		MessageId:       NewMessageId(),
		ScopeType:       scope.DirectMessage,
		ScopeId:         "u1-u2",
		SenderId:        "u1",
		Text:            "hello world",
		CreatedAtUtc:    time.Date(2026, 7, 30, 12, 0, 0, 123000000, time.UTC),
		OriginReplicaId: "replica-a",
	}

	encoded, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded ChatEvent
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestWireFieldNames(t *testing.T) {
	e := ChatEvent{ScopeType: scope.Channel, ScopeId: "general", SenderId: "u1", OriginReplicaId: "replica-a"}
	encoded, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		t.Fatalf("Unmarshal into map failed: %v", err)
	}

	for _, field := range []string{"messageId", "scopeType", "scopeId", "senderId", "text", "createdAtUtc", "originPodId"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("wire JSON missing field %q: %s", field, encoded)
		}
	}
}

func TestKeyDerivedFromScope(t *testing.T) {
	e := ChatEvent{ScopeType: scope.Channel, ScopeId: "general"}
	key, err := e.Key()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "channel:general" {
		t.Fatalf("Key() = %q, want %q", key, "channel:general")
	}
}
