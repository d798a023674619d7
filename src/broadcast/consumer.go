// Package broadcast implements the Broadcast Consumer (C8): a per-replica
// consumer with a group id unique to the replica, so every replica
// receives every partition and fans the log out to its own in-process
// subscribers. Continues the poll-loop idiom of
// clients/kafka/routing/router.go (poll → classify fetch errors by
// severity → dispatch) adapted down to this single-topic, poison-skipping
// shape instead of the router's generic multi-topic handler map.
package broadcast

import (
	"chat/src/backoff"
	"chat/src/clients/kafka"
	"chat/src/domain/event"
	"chat/src/subscription"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Consumer struct {
	client   *kafka.Client
	registry *subscription.Registry
	backoff  *backoff.Backoff
	logger   zerolog.Logger

	stop    context.CancelFunc
	stopped chan struct{}
}

func New(client *kafka.Client, registry *subscription.Registry, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:   client,
		registry: registry,
		backoff:  backoff.New(200*time.Millisecond, 10*time.Second, 100*time.Millisecond),
		logger:   logger,
		stopped:  make(chan struct{}),
	}
}

func (c *Consumer) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	go c.pollLoop(ctx)
	return nil
}

func (c *Consumer) Stop(_ context.Context) {
	c.stop()
	<-c.stopped
}

func (c *Consumer) pollLoop(ctx context.Context) {
	defer close(c.stopped)

	for {
		fetches := c.client.Driver.PollFetches(ctx)

		if err := fetches.Err0(); err != nil {
			if errors.Is(err, kgo.ErrClientClosed) || errors.Is(err, context.Canceled) {
				c.logger.Info().Msg("broadcast consumer exiting: context cancelled")
				return
			}
		}

		fatal := false
		fetches.EachError(func(topic string, partition int32, err error) {
			switch classify(err) {
			case severityHigh:
				c.logger.Error().Err(err).Msgf("fatal error on %s-%d", topic, partition)
				fatal = true
			case severityMedium:
				c.logger.Warn().Err(err).Msgf("broker error on %s-%d, backing off without commit", topic, partition)
				time.Sleep(c.backoff.Next())
			default:
				c.logger.Warn().Err(err).Msgf("transient fetch error on %s-%d", topic, partition)
				time.Sleep(c.backoff.Next())
			}
		})
		if fatal {
			return
		}

		if fetches.Empty() {
			continue
		}
		c.backoff.Reset()

		fetches.EachRecord(func(record *kgo.Record) {
			c.handleRecord(record)
			c.client.Driver.MarkCommitRecords(record)
		})

		if err := c.client.Driver.CommitMarkedOffsets(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("broadcast consumer: commit failed, offsets re-deliver on restart")
		}
	}
}

func (c *Consumer) handleRecord(record *kgo.Record) {
	if record.Value == nil {
		c.logger.Warn().Msg("broadcast consumer: record with null value, skipping")
		return
	}

	var evt event.ChatEvent
	if err := evt.UnmarshalJSON(record.Value); err != nil {
		c.logger.Warn().Err(err).Msgf("broadcast consumer: malformed payload, skipping: %s", previewBytes(record.Value))
		return
	}

	delivered, dropped := c.registry.Deliver(evt.ScopeId, evt)
	if dropped > 0 {
		c.logger.Debug().Msgf("broadcast consumer: dropped delivery to %d backpressured sinks for scope '%s'", dropped, evt.ScopeId)
	}
	c.logger.Debug().Msgf("broadcast consumer: delivered event '%s' to %d subscribers", evt.MessageId, delivered)
}

func previewBytes(b []byte) string {
	const maxPreview = 256
	if len(b) > maxPreview {
		return string(b[:maxPreview])
	}
	return string(b)
}

type severity uint8

const (
	severityLow severity = iota
	severityMedium
	severityHigh
)

func classify(err error) severity {
	var ke *kerr.Error
	if errors.As(err, &ke) {
		switch ke.Code {
		case kerr.GroupAuthorizationFailed.Code, kerr.ClusterAuthorizationFailed.Code:
			return severityHigh
		case kerr.UnknownTopicOrPartition.Code:
			return severityMedium
		default:
			if kerr.IsRetriable(ke) {
				return severityLow
			}
			return severityMedium
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return severityLow
	}
	return severityMedium
}
