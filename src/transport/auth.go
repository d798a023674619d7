// Package transport implements the Transport Adapter (C15): a chi HTTP
// router for chat submission and a gorilla/websocket hub for the
// subscription control surface, continuing the auth and hub idioms from
// the pack's websocket-server examples but calling straight into C7
// (submission), C9 (subscription) and C4 (presence) instead of this
// package owning any domain logic itself.
package transport

import (
	"chat/src/platform/apperr"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator resolves the sender identity for an inbound request.
// Intentionally thin: one method, one HMAC implementation below, exactly
// the "specified only at its interface" boundary the rest of the pipeline
// needs from auth.
type Authenticator interface {
	Authenticate(r *http.Request) (senderId string, err error)
}

type claims struct {
	jwt.RegisteredClaims
}

// JWTAuthenticator validates bearer tokens signed with a single shared
// HMAC secret and treats the registered Subject claim as the sender id.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return "", apperr.New(apperr.AuthRequired, err)
	}

	token, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.New(apperr.AuthRequired, errors.New("invalid or expired token"))
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", apperr.New(apperr.AuthRequired, errors.New("token missing subject claim"))
	}
	return c.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	const bearerPrefix = "Bearer "

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix), nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", errors.New("no bearer token in Authorization header or query string")
}
