// Package scope implements the Scope Domain Policy: pure validation of the
// fields that make up a ChatEvent, with no I/O. Every validator fails with
// an apperr.InvalidArgument carrying the offending field and reason.
package scope

import (
	"strings"

	"chat/src/platform/apperr"
)

// Type is the tagged scope variant a ChatEvent belongs to.
type Type int

const (
	Channel Type = iota
	DirectMessage
)

func (t Type) String() string {
	switch t {
	case Channel:
		return "channel"
	case DirectMessage:
		return "directMessage"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the declared scope types.
func (t Type) Valid() bool {
	return t == Channel || t == DirectMessage
}

// ParseType is the inverse of Type.String, used to recover (ScopeType,
// ScopeId) from a serialized "type:id" key read back from storage.
func ParseType(s string) (Type, bool) {
	switch s {
	case "channel":
		return Channel, true
	case "directMessage":
		return DirectMessage, true
	default:
		return 0, false
	}
}

const (
	idMinLen   = 1
	idMaxLen   = 256
	textMaxLen = 4096
)

const source = "domain.scope"

// ValidateScopeId checks the ScopeId field: non-null, non-whitespace-only,
// length in [1,256] bytes.
func ValidateScopeId(id string) error {
	return validateOpaqueID("ScopeId", id)
}

// ValidateSenderId checks the SenderId field under the same rules as ScopeId.
func ValidateSenderId(id string) error {
	return validateOpaqueID("SenderId", id)
}

// ValidateOriginReplicaId checks the OriginReplicaId field under the same
// rules as ScopeId.
func ValidateOriginReplicaId(id string) error {
	return validateOpaqueID("OriginReplicaId", id)
}

func validateOpaqueID(field, value string) error {
	if value == "" {
		return apperr.Invalid(source, field, "must not be empty")
	}
	if strings.TrimSpace(value) == "" {
		return apperr.Invalid(source, field, "must not be whitespace-only")
	}
	if n := len(value); n < idMinLen || n > idMaxLen {
		return apperr.Invalid(source, field, "length must be between 1 and 256 bytes")
	}
	return nil
}

// ValidateText checks the Text field: non-null (empty allowed), length in
// [0,4096] UTF-8 code units.
func ValidateText(text string) error {
	if n := len(text); n > textMaxLen {
		return apperr.Invalid(source, "Text", "length must not exceed 4096 code units")
	}
	return nil
}

// ValidateType checks that a scope type tag is one of the declared variants.
func ValidateType(t Type) error {
	if !t.Valid() {
		return apperr.Invalid(source, "ScopeType", "must be Channel(0) or DirectMessage(1)")
	}
	return nil
}

// Key is the serialized partition key "type:id" for a scope. ScopeId must
// not contain ':' — the History Store's splitScopeKey relies on this to
// deterministically recover (type, id) from the key.
func Key(t Type, id string) (string, error) {
	if strings.Contains(id, ":") {
		return "", apperr.Invalid(source, "ScopeId", "must not contain ':'")
	}
	return t.String() + ":" + id, nil
}

// Fields bundles the five validators applied to every ChatEvent before it
// is admitted by the Command Processor.
type Fields struct {
	ScopeType       Type
	ScopeId         string
	SenderId        string
	OriginReplicaId string
	Text            string
}

// Validate runs every field validator in the order the spec lists them,
// returning the first failure.
func (f Fields) Validate() error {
	if err := ValidateType(f.ScopeType); err != nil {
		return err
	}
	if err := ValidateScopeId(f.ScopeId); err != nil {
		return err
	}
	if err := ValidateSenderId(f.SenderId); err != nil {
		return err
	}
	if err := ValidateOriginReplicaId(f.OriginReplicaId); err != nil {
		return err
	}
	if err := ValidateText(f.Text); err != nil {
		return err
	}
	return nil
}
