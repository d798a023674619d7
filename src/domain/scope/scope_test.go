package scope

import (
	"strings"
	"testing"

	"chat/src/platform/apperr"
)

func TestValidateTextBoundary(t *testing.T) {
	if err := ValidateText(strings.Repeat("a", 4096)); err != nil {
		t.Fatalf("4096 code units should be accepted, got %v", err)
	}
	if err := ValidateText(strings.Repeat("a", 4097)); err == nil {
		t.Fatalf("4097 code units should be rejected")
	}
}

func TestValidateScopeIdBoundary(t *testing.T) {
	if err := ValidateScopeId("a"); err != nil {
		t.Fatalf("single non-space character should be accepted, got %v", err)
	}
	if err := ValidateScopeId("   "); err == nil {
		t.Fatalf("whitespace-only scope id should be rejected")
	}
	if err := ValidateScopeId(""); err == nil {
		t.Fatalf("empty scope id should be rejected")
	}
	if err := ValidateScopeId(strings.Repeat("a", 257)); err == nil {
		t.Fatalf("scope id over 256 bytes should be rejected")
	}
}

func TestValidateScopeIdErrorKind(t *testing.T) {
	err := ValidateScopeId("")
	typed, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if typed.Kind != apperr.InvalidArgument {
		t.Fatalf("Kind = %v, want InvalidArgument", typed.Kind)
	}
	if typed.Field != "ScopeId" {
		t.Fatalf("Field = %q, want ScopeId", typed.Field)
	}
}

func TestKeyRejectsColonInScopeId(t *testing.T) {
	if _, err := Key(Channel, "has:colon"); err == nil {
		t.Fatalf("expected error for scope id containing ':'")
	}
}

func TestKeyDeterministic(t *testing.T) {
	k1, err := Key(Channel, "general")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 != "channel:general" {
		t.Fatalf("Key() = %q, want %q", k1, "channel:general")
	}

	k2, _ := Key(DirectMessage, "u1-u2")
	if k2 != "directMessage:u1-u2" {
		t.Fatalf("Key() = %q, want %q", k2, "directMessage:u1-u2")
	}
}

func TestFieldsValidateOrder(t *testing.T) {
	f := Fields{
		ScopeType:       Channel,
		ScopeId:         "general",
		SenderId:        "",
		OriginReplicaId: "replica-1",
		Text:            "hello",
	}
	err := f.Validate()
	if err == nil {
		t.Fatalf("expected validation error for empty SenderId")
	}
	typed, ok := apperr.As(err)
	if !ok || typed.Field != "SenderId" {
		t.Fatalf("expected SenderId to fail first, got %+v", err)
	}
}
