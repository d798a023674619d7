package transport

import (
	"chat/src/platform/apperr"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, subject string, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestJWTAuthenticatorAuthenticatesBearerHeader(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	token := signToken(t, "super-secret-value", "u1", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	senderId, err := auth.Authenticate(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if senderId != "u1" {
		t.Fatalf("senderId = %q, want u1", senderId)
	}
}

func TestJWTAuthenticatorAuthenticatesQueryParam(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	token := signToken(t, "super-secret-value", "u2", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

	senderId, err := auth.Authenticate(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if senderId != "u2" {
		t.Fatalf("senderId = %q, want u2", senderId)
	}
}

func TestJWTAuthenticatorRejectsMissingToken(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	_, err := auth.Authenticate(r)
	if apperr.KindOf(err) != apperr.AuthRequired {
		t.Fatalf("KindOf(err) = %v, want AuthRequired", apperr.KindOf(err))
	}
}

func TestJWTAuthenticatorRejectsWrongSecret(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	token := signToken(t, "a-different-secret", "u1", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := auth.Authenticate(r)
	if apperr.KindOf(err) != apperr.AuthRequired {
		t.Fatalf("KindOf(err) = %v, want AuthRequired", apperr.KindOf(err))
	}
}

func TestJWTAuthenticatorRejectsExpiredToken(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	token := signToken(t, "super-secret-value", "u1", -time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := auth.Authenticate(r)
	if apperr.KindOf(err) != apperr.AuthRequired {
		t.Fatalf("KindOf(err) = %v, want AuthRequired", apperr.KindOf(err))
	}
}

func TestJWTAuthenticatorRejectsMissingSubject(t *testing.T) {
	auth := NewJWTAuthenticator("super-secret-value")
	token := signToken(t, "super-secret-value", "", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := auth.Authenticate(r)
	if apperr.KindOf(err) != apperr.AuthRequired {
		t.Fatalf("KindOf(err) = %v, want AuthRequired", apperr.KindOf(err))
	}
}
