// Package clock supplies the monotonic UTC clock and the correlation-id
// context carrier consumed as services throughout the pipeline (§1, §6),
// continuing the context-tagging convention platform/logging and
// samber/oops already use for request-scoped fields.
package clock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time.Now so tests can substitute a deterministic source.
// Production code always uses Real.
type Clock interface {
	NowUtc() time.Time
}

type realClock struct{}

// Real is the production Clock: wall-clock UTC, sub-millisecond precision
// as guaranteed by time.Now on every supported platform.
var Real Clock = realClock{}

func (realClock) NowUtc() time.Time {
	return time.Now().UTC()
}

type correlationIDKey struct{}

const correlationHeader = "X-Correlation-ID"

// CorrelationHeader is the HTTP header name carrying the correlation id
// across the transport boundary, per §6.
func CorrelationHeader() string {
	return correlationHeader
}

// WithCorrelationID returns a context carrying id for the lifetime of a
// single request, so every suspension point (log poll/produce/commit,
// cache read/write, history-store write) can tag its logs with it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id carried by ctx, or "" if none was set.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// NewCorrelationID generates a fresh correlation id, used when an inbound
// request carries none or an invalid one.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ValidCorrelationID reports whether s is a syntactically valid
// correlation id (a UUID), per the "accepted if syntactically valid, else
// a new one is generated" rule in §6.
func ValidCorrelationID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
