package command

import (
	"chat/src/domain/event"
	"chat/src/domain/scope"
	"chat/src/platform/apperr"
	"chat/src/ratelimit"
	"context"
	"errors"
	"testing"
)

type fakeRateLimiter struct {
	result ratelimit.Result
	err    error
	called bool
}

func (f *fakeRateLimiter) CheckAndIncrement(_ context.Context, _ string) (ratelimit.Result, error) {
	f.called = true
	return f.result, f.err
}

type fakeProducer struct {
	enriched event.EnrichedEvent
	err      error
	called   bool
}

func (f *fakeProducer) Produce(_ context.Context, evt event.ChatEvent) (event.EnrichedEvent, error) {
	f.called = true
	if f.err != nil {
		return event.EnrichedEvent{}, f.err
	}
	f.enriched.ChatEvent = evt
	return f.enriched, nil
}

func validRequest() Request {
	return Request{ScopeType: scope.Channel, ScopeId: "general", SenderId: "u1", Text: "hello"}
}

func TestSubmitHappyPath(t *testing.T) {
	rl := &fakeRateLimiter{result: ratelimit.Result{Allowed: true}}
	p := &fakeProducer{enriched: event.EnrichedEvent{Partition: 1, Offset: 42}}

	proc := New(rl, p, "replica-a")
	got, err := proc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Partition != 1 || got.Offset != 42 {
		t.Fatalf("unexpected enriched event: %+v", got)
	}
	if got.OriginReplicaId != "replica-a" {
		t.Fatalf("OriginReplicaId = %q, want replica-a", got.OriginReplicaId)
	}
}

func TestSubmitRejectsInvalidRequestBeforeRateLimit(t *testing.T) {
	rl := &fakeRateLimiter{result: ratelimit.Result{Allowed: true}}
	p := &fakeProducer{}

	proc := New(rl, p, "replica-a")
	_, err := proc.Submit(context.Background(), Request{ScopeType: scope.Channel, ScopeId: "", SenderId: "u1", Text: "hi"})

	if apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", apperr.KindOf(err))
	}
	if rl.called {
		t.Fatalf("rate limiter should not be called when validation fails")
	}
	if p.called {
		t.Fatalf("producer should not be called when validation fails")
	}
}

func TestSubmitDeniesOnRateLimit(t *testing.T) {
	rl := &fakeRateLimiter{result: ratelimit.Result{Allowed: false, RetryAfterSeconds: 3}}
	p := &fakeProducer{}

	proc := New(rl, p, "replica-a")
	_, err := proc.Submit(context.Background(), validRequest())

	if apperr.KindOf(err) != apperr.RateLimitExceeded {
		t.Fatalf("KindOf(err) = %v, want RateLimitExceeded", apperr.KindOf(err))
	}
	appErr, _ := apperr.As(err)
	if appErr.RetryAfterSeconds != 3 {
		t.Fatalf("RetryAfterSeconds = %d, want 3", appErr.RetryAfterSeconds)
	}
	if p.called {
		t.Fatalf("producer should not be called when rate limited")
	}
}

func TestSubmitMapsProducerFailure(t *testing.T) {
	rl := &fakeRateLimiter{result: ratelimit.Result{Allowed: true}}
	p := &fakeProducer{err: errors.New("broker unreachable")}

	proc := New(rl, p, "replica-a")
	_, err := proc.Submit(context.Background(), validRequest())

	if apperr.KindOf(err) != apperr.EventProductionFailed {
		t.Fatalf("KindOf(err) = %v, want EventProductionFailed", apperr.KindOf(err))
	}
}
