// Package persister implements the Persister Consumer (C10): a
// shared-group franz-go consumer writing every event into the History
// Store, continuing the same poll/classify idiom as the broadcast
// consumer but with the two-level (inner per-message, outer whole-loop)
// retry/backoff policy of §4.9: poison payloads commit forward, transient
// store errors retry with an inner backoff up to a bounded attempt count,
// and exhausting that retry withholds the commit so the record re-delivers
// after an outer backoff sleep.
package persister

import (
	"chat/src/backoff"
	"chat/src/clients/kafka"
	"chat/src/domain/event"
	"chat/src/history"
	"chat/src/platform/apperr"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Options struct {
	MaxAttempts         int
	InnerBackoffInitial time.Duration
	InnerBackoffMax     time.Duration
	InnerBackoffJitter  time.Duration
	OuterBackoffInitial time.Duration
	OuterBackoffMax     time.Duration
	OuterBackoffJitter  time.Duration
	MaxPayloadLogBytes  int
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:         5,
		InnerBackoffInitial: 100 * time.Millisecond,
		InnerBackoffMax:     5 * time.Second,
		InnerBackoffJitter:  50 * time.Millisecond,
		OuterBackoffInitial: 200 * time.Millisecond,
		OuterBackoffMax:     10 * time.Second,
		OuterBackoffJitter:  100 * time.Millisecond,
		MaxPayloadLogBytes:  2048,
	}
}

type Consumer struct {
	client *kafka.Client
	store  *history.Store
	opts   Options
	outer  *backoff.Backoff
	logger zerolog.Logger

	stop    context.CancelFunc
	stopped chan struct{}
}

func New(client *kafka.Client, store *history.Store, opts Options, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:  client,
		store:   store,
		opts:    opts,
		outer:   backoff.New(opts.OuterBackoffInitial, opts.OuterBackoffMax, opts.OuterBackoffJitter),
		logger:  logger,
		stopped: make(chan struct{}),
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

		if err := fetches.Err0(); err != nil && (errors.Is(err, kgo.ErrClientClosed) || errors.Is(err, context.Canceled)) {
			c.logger.Info().Msg("persister consumer exiting: context cancelled")
			return
		}

		fatal := false
		fetches.EachError(func(topic string, partition int32, err error) {
			if isFatalBrokerError(err) {
				c.logger.Error().Err(err).Msgf("fatal error on %s-%d", topic, partition)
				fatal = true
				return
			}
			c.logger.Warn().Err(err).Msgf("broker error on %s-%d, will retry", topic, partition)
		})
		if fatal {
			return
		}

		if fetches.Empty() {
			continue
		}

		withheld := false
		fetches.EachRecord(func(record *kgo.Record) {
			if withheld {
				return
			}
			if c.handleRecord(ctx, record) {
				c.client.Driver.MarkCommitRecords(record)
			} else {
				withheld = true
			}
		})

		if withheld {
			delay := c.outer.Next()
			c.logger.Warn().Msgf("persister consumer: withholding commit, sleeping outer backoff %s before re-poll", delay)
			time.Sleep(delay)
			continue
		}

		c.outer.Reset()
		if err := c.client.Driver.CommitMarkedOffsets(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("persister consumer: commit failed, offsets re-deliver on restart")
		}
	}
}

// handleRecord runs the per-message cycle of §4.9 and reports whether the
// record's offset may be committed. false means the record must re-deliver.
func (c *Consumer) handleRecord(ctx context.Context, record *kgo.Record) bool {
	if record.Value == nil {
		c.logger.Warn().Msg("persister consumer: record with null value, treating as poison")
		return true
	}

	var evt event.ChatEvent
	if err := evt.UnmarshalJSON(record.Value); err != nil {
		c.logger.Warn().Err(err).Msgf("persister consumer: malformed payload, skipping: %s", previewBytes(record.Value, c.opts.MaxPayloadLogBytes))
		return true
	}

	if err := evt.Validate(); err != nil {
		c.logger.Warn().Err(err).Msgf("persister consumer: validation failure, skipping message '%s'", evt.MessageId)
		return true
	}

	enriched := event.EnrichedEvent{ChatEvent: evt, Partition: record.Partition, Offset: record.Offset}

	inner := backoff.New(c.opts.InnerBackoffInitial, c.opts.InnerBackoffMax, c.opts.InnerBackoffJitter)
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		err := c.store.Append(ctx, enriched)
		if err == nil {
			return true
		}

		if !isTransient(err) {
			c.logger.Error().Err(err).Msgf("persister consumer: permanent store error for message '%s', skipping", evt.MessageId)
			return true
		}

		if attempt == c.opts.MaxAttempts {
			c.logger.Warn().Err(err).Msgf("persister consumer: exhausted %d attempts for message '%s'", c.opts.MaxAttempts, evt.MessageId)
			return false
		}

		delay := inner.Next()
		c.logger.Warn().Err(err).Msgf("persister consumer: transient store error, retrying message '%s' after %s (attempt %d/%d)", evt.MessageId, delay, attempt, c.opts.MaxAttempts)
		time.Sleep(delay)
	}
	return false
}

func isTransient(err error) bool {
	appErr, ok := apperr.As(err)
	return ok && appErr.Kind == apperr.TransientStoreError
}

func previewBytes(b []byte, max int) string {
	if max <= 0 {
		max = 256
	}
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}

func isFatalBrokerError(err error) bool {
	var ke *kerr.Error
	if errors.As(err, &ke) {
		switch ke.Code {
		case kerr.GroupAuthorizationFailed.Code, kerr.ClusterAuthorizationFailed.Code:
			return true
		}
	}
	return false
}
