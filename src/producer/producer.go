// Package producer implements the Event Producer (C6): it appends a
// ChatEvent to the log and confirms the durable write before returning,
// continuing clients/kafka's franz-go kgo.Client and the producer
// configuration (acks, compression, batching, retries) built in
// clients/kafka/config.go, reused unmodified.
package producer

import (
	"chat/src/clients/kafka"
	"chat/src/domain/event"
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

type Producer struct {
	client *kafka.Client
	topic  string
}

func New(client *kafka.Client, topic string) *Producer {
	return &Producer{client: client, topic: topic}
}

// Produce implements C6's produce(ChatEvent) → (Partition, Offset) |
// EventProductionFailed. The partition key is the deterministic "type:id"
// pair from the Scope Domain Policy; the record value is canonical,
// unindented, camelCase JSON.
func (p *Producer) Produce(ctx context.Context, evt event.ChatEvent) (event.EnrichedEvent, error) {
	key, err := evt.Key()
	if err != nil {
		return event.EnrichedEvent{}, fmt.Errorf("producer: failed to derive partition key: %w", err)
	}

	value, err := evt.MarshalJSON()
	if err != nil {
		return event.EnrichedEvent{}, fmt.Errorf("producer: failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
	}

	results := p.client.Driver.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return event.EnrichedEvent{}, fmt.Errorf("producer: failed to produce event '%s': %w", evt.MessageId, err)
	}

	return event.EnrichedEvent{
		ChatEvent: evt,
		Partition: record.Partition,
		Offset:    record.Offset,
	}, nil
}
