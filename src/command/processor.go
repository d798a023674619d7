// Package command implements the Command Processor (C7): the per-request
// state machine that sequences the Scope Domain Policy (C1), the Rate
// Limiter (C5) and the Event Producer (C6) for every chat submission. New
// orchestration layer; every step it calls already exists as its own
// grounded component.
package command

import (
	"chat/src/clock"
	"chat/src/domain/event"
	"chat/src/domain/scope"
	"chat/src/platform/apperr"
	"chat/src/ratelimit"
	"context"
	"fmt"
)

type Request struct {
	ScopeType scope.Type
	ScopeId   string
	SenderId  string
	Text      string
}

// RateLimiter is the admission gate C7 calls into (C5), narrowed to the one
// method the Command Processor needs so it can be faked in tests.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, senderId string) (ratelimit.Result, error)
}

// Producer is the log append gate C7 calls into (C6).
type Producer interface {
	Produce(ctx context.Context, evt event.ChatEvent) (event.EnrichedEvent, error)
}

type Processor struct {
	rateLimiter     RateLimiter
	producer        Producer
	originReplicaId string
}

func New(rateLimiter RateLimiter, eventProducer Producer, originReplicaId string) *Processor {
	return &Processor{
		rateLimiter:     rateLimiter,
		producer:        eventProducer,
		originReplicaId: originReplicaId,
	}
}

// Submit runs start → validate (C1) → admit (C5) → build event → produce
// (C6) → success(EnrichedEvent), exactly as §4.6 specifies. No step
// advances after a prior failure; every failure is a typed *apperr.Error.
func (p *Processor) Submit(ctx context.Context, req Request) (event.EnrichedEvent, error) {
	const source = "command.processor"

	// validate (C1)
	fields := scope.Fields{
		ScopeType:       req.ScopeType,
		ScopeId:         req.ScopeId,
		SenderId:        req.SenderId,
		OriginReplicaId: p.originReplicaId,
		Text:            req.Text,
	}
	if err := fields.Validate(); err != nil {
		if appErr, ok := apperr.As(err); ok {
			return event.EnrichedEvent{}, appErr
		}
		return event.EnrichedEvent{}, apperr.Invalid(source, "request", err.Error())
	}

	// admit (C5)
	result, err := p.rateLimiter.CheckAndIncrement(ctx, req.SenderId)
	if err != nil {
		return event.EnrichedEvent{}, apperr.New(apperr.TransientStoreError, fmt.Errorf("%s: rate limit check failed: %w", source, err))
	}
	if !result.Allowed {
		return event.EnrichedEvent{}, apperr.RateLimited(source, result.RetryAfterSeconds)
	}

	// build event
	evt := event.ChatEvent{
		MessageId:       event.NewMessageId(),
		ScopeType:       req.ScopeType,
		ScopeId:         req.ScopeId,
		SenderId:        req.SenderId,
		Text:            req.Text,
		CreatedAtUtc:    clock.Real.NowUtc(),
		OriginReplicaId: p.originReplicaId,
	}

	// produce (C6)
	enriched, err := p.producer.Produce(ctx, evt)
	if err != nil {
		return event.EnrichedEvent{}, apperr.New(apperr.EventProductionFailed, fmt.Errorf("%s: %w", source, err))
	}

	return enriched, nil
}
