// Package event defines ChatEvent and its wire encoding, the atomic unit
// produced and consumed across the pipeline (§3, §6).
package event

import (
	"encoding/json"
	"time"

	"chat/src/domain/scope"

	"github.com/google/uuid"
)

// ChatEvent is the atomic unit produced to and consumed from the log.
// Immutable once produced.
type ChatEvent struct {
	MessageId       string     `json:"messageId"`
	ScopeType       scope.Type `json:"scopeType"`
	ScopeId         string     `json:"scopeId"`
	SenderId        string     `json:"senderId"`
	Text            string     `json:"text"`
	CreatedAtUtc    time.Time  `json:"createdAtUtc"`
	OriginReplicaId string     `json:"originPodId"`
}

// EnrichedEvent is a ChatEvent plus the (Partition, Offset) the Event
// Producer learned from the log on successful append.
type EnrichedEvent struct {
	ChatEvent
	Partition int32 `json:"partition"`
	Offset    int64 `json:"offset"`
}

// NewMessageId generates a fresh 128-bit message id, used by the Command
// Processor when it builds the event (§4.6).
func NewMessageId() string {
	return uuid.NewString()
}

// Key returns the serialized partition key "type:id" for the event's scope.
func (e ChatEvent) Key() (string, error) {
	return scope.Key(e.ScopeType, e.ScopeId)
}

// Validate runs the Scope Domain Policy against every field of e.
func (e ChatEvent) Validate() error {
	return scope.Fields{
		ScopeType:       e.ScopeType,
		ScopeId:         e.ScopeId,
		SenderId:        e.SenderId,
		OriginReplicaId: e.OriginReplicaId,
		Text:            e.Text,
	}.Validate()
}

// rfc3339Nano formats a time as RFC 3339 with nanoseconds and a "Z" UTC
// suffix, so CreatedAtUtc keeps its full precision and its wire encoding is
// identical byte-for-byte across round trips.
const rfc3339Nano = "2006-01-02T15:04:05.000000000Z"

// MarshalJSON produces canonical, compact (unindented) JSON with camelCase
// field names, per the wire format contract in §6.
func (e ChatEvent) MarshalJSON() ([]byte, error) {
	type wire struct {
		MessageId       string `json:"messageId"`
		ScopeType       int    `json:"scopeType"`
		ScopeId         string `json:"scopeId"`
		SenderId        string `json:"senderId"`
		Text            string `json:"text"`
		CreatedAtUtc    string `json:"createdAtUtc"`
		OriginReplicaId string `json:"originPodId"`
	}
	return json.Marshal(wire{
		MessageId:       e.MessageId,
		ScopeType:       int(e.ScopeType),
		ScopeId:         e.ScopeId,
		SenderId:        e.SenderId,
		Text:            e.Text,
		CreatedAtUtc:    e.CreatedAtUtc.UTC().Format(rfc3339Nano),
		OriginReplicaId: e.OriginReplicaId,
	})
}

// UnmarshalJSON is the exact inverse of MarshalJSON.
func (e *ChatEvent) UnmarshalJSON(data []byte) error {
	type wire struct {
		MessageId       string `json:"messageId"`
		ScopeType       int    `json:"scopeType"`
		ScopeId         string `json:"scopeId"`
		SenderId        string `json:"senderId"`
		Text            string `json:"text"`
		CreatedAtUtc    string `json:"createdAtUtc"`
		OriginReplicaId string `json:"originPodId"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, w.CreatedAtUtc)
	if err != nil {
		return err
	}

	e.MessageId = w.MessageId
	e.ScopeType = scope.Type(w.ScopeType)
	e.ScopeId = w.ScopeId
	e.SenderId = w.SenderId
	e.Text = w.Text
	e.CreatedAtUtc = createdAt.UTC()
	e.OriginReplicaId = w.OriginReplicaId
	return nil
}
