// Package presence implements the distributed presence store (C4) and its
// cross-replica fan-out (C17), continuing services/presence/service.go:
// a Redis-backed session set with TTL, a ttlcache read-through local cache,
// and NATS propagation of online/offline transitions to every replica.
package presence

import (
	"chat/src/clients/nats"
	"chat/src/clients/redis"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	nats2 "github.com/nats-io/nats.go"
	redis2 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	connectionSetKeyFormat = "presence:{%s}"
	connectionKeyFormat    = "conn:{%s}"
)
const (
	connectionTTL = 60 * time.Second
)
const (
	heartbeatInterval = 30 * time.Second
)
const (
	statusCacheTTL           = 5 * time.Second
	statusCacheCapacity      = 10_000
	statusCacheLoaderTimeout = 100 * time.Millisecond
)
const (
	natsSubjectUserPresenceUpdates = "user.presence.updates"
)

type Status uint8

const (
	StatusOffline Status = iota
	StatusOnline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	default:
		return "offline"
	}
}

var ErrCacheMiss = errors.New("cache miss")

type heartbeats struct {
	mutex        sync.Mutex
	cancelations map[string]context.CancelFunc // key = userId:connectionId
	logger       zerolog.Logger
}

type Service struct {
	redis            *redis.Client
	nats             *nats.Client
	statusCache      *ttlcache.Cache[string, Status]
	heartbeats       heartbeats
	natsSubscription *nats2.Subscription
	logger           zerolog.Logger
}

func NewService(redisClient *redis.Client, natsClient *nats.Client, logger zerolog.Logger) *Service {
	return &Service{
		redis:  redisClient,
		nats:   natsClient,
		logger: logger,
		statusCache: ttlcache.New[string, Status](
			ttlcache.WithCapacity[string, Status](statusCacheCapacity),
			ttlcache.WithTTL[string, Status](statusCacheTTL),
			ttlcache.WithLoader[string, Status](ttlcache.LoaderFunc[string, Status](
				func(cache *ttlcache.Cache[string, Status], userID string) *ttlcache.Item[string, Status] {
					ctx, cancel := context.WithTimeout(context.Background(), statusCacheLoaderTimeout)
					defer cancel()

					exists, err := redisClient.Driver.Exists(ctx, connectionSetKey(userID)).Result()
					if err != nil {
						logger.Err(err).Msgf("redis presence check for user '%s' failed", userID)
						return nil
					}

					status := StatusOffline
					if exists == 1 {
						status = StatusOnline
					}
					return cache.Set(userID, status, ttlcache.DefaultTTL)
				},
			)),
			ttlcache.WithDisableTouchOnHit[string, Status](),
		),
		heartbeats: heartbeats{
			cancelations: make(map[string]context.CancelFunc),
			logger:       logger,
		},
	}
}

func (s *Service) Start(_ context.Context) error {
	go s.statusCache.Start()

	subscription, err := s.nats.Driver.Subscribe(natsSubjectUserPresenceUpdates, func(msg *nats2.Msg) {
		s.applyRemoteUpdate(string(msg.Data))
	})
	if err != nil {
		s.statusCache.Stop()
		return fmt.Errorf("failed to subscribe to NATS subject '%s': %w", natsSubjectUserPresenceUpdates, err)
	}
	subscription.SetClosedHandler(func(subj string) {
		s.logger.Info().Msgf("NATS subscription to subject '%s' closed", subj)
	})
	s.natsSubscription = subscription

	return nil
}

func (s *Service) Stop(_ context.Context) {
	if s.natsSubscription != nil {
		if err := s.natsSubscription.Unsubscribe(); err != nil {
			s.logger.Err(err).Msg("failed to unsubscribe from presence NATS subject")
		}
	}
	s.heartbeats.stopAll()
	s.statusCache.Stop()
}

// SetOnline implements C4's setOnline(userId, connectionId): adds
// connectionId to the user's session set and records its owning replica
// with a TTL. Failures are logged and swallowed — presence never fails the
// caller's connect path.
func (s *Service) SetOnline(ctx context.Context, userId, connectionId, replicaId string) {
	_, err := s.redis.Driver.TxPipelined(ctx, func(pipe redis2.Pipeliner) error {
		pipe.SAdd(ctx, connectionSetKey(userId), connectionId)
		pipe.Expire(ctx, connectionSetKey(userId), connectionTTL)
		pipe.Set(ctx, connectionKey(connectionId), replicaId, connectionTTL)
		return nil
	})
	if err != nil {
		s.logger.Err(err).Msgf("setOnline failed for user '%s' connection '%s'", userId, connectionId)
		return
	}

	s.statusCache.Set(userId, StatusOnline, ttlcache.DefaultTTL)
	s.heartbeats.start(userId, connectionId, s.runHeartbeat)
	s.publishUpdate(userId, StatusOnline)
}

// SetOffline implements C4's setOffline(userId, connectionId): removes the
// connection, and the user key once its set becomes empty.
func (s *Service) SetOffline(ctx context.Context, userId, connectionId string) {
	s.heartbeats.stop(userId, connectionId)

	for {
		err := s.redis.Driver.Watch(ctx, func(tx *redis2.Tx) error {
			remaining, err := tx.SCard(ctx, connectionSetKey(userId)).Result()
			if err != nil {
				return fmt.Errorf("failed to SCARD %s: %w", connectionSetKey(userId), err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis2.Pipeliner) error {
				pipe.SRem(ctx, connectionSetKey(userId), connectionId)
				pipe.Del(ctx, connectionKey(connectionId))
				if remaining <= 1 {
					pipe.Del(ctx, connectionSetKey(userId))
				}
				return nil
			})
			return err
		}, connectionSetKey(userId))

		if errors.Is(err, redis2.TxFailedErr) {
			continue
		}
		if err != nil {
			s.logger.Err(err).Msgf("setOffline failed for user '%s' connection '%s'", userId, connectionId)
			return
		}

		remaining, err := s.redis.Driver.SCard(ctx, connectionSetKey(userId)).Result()
		if err == nil && remaining == 0 {
			s.statusCache.Set(userId, StatusOffline, ttlcache.DefaultTTL)
			s.publishUpdate(userId, StatusOffline)
		}
		return
	}
}

// Heartbeat implements C4's heartbeat(userId, connectionId): refreshes TTL.
func (s *Service) Heartbeat(ctx context.Context, userId, connectionId string) error {
	pipe := s.redis.Driver.Pipeline()
	pipe.Expire(ctx, connectionSetKey(userId), connectionTTL)
	pipe.Expire(ctx, connectionKey(connectionId), connectionTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("heartbeat failed for user '%s' connection '%s': %w", userId, connectionId, err)
	}
	return nil
}

func (s *Service) Status(userId string) (Status, error) {
	item := s.statusCache.Get(userId)
	if item == nil {
		return StatusOffline, fmt.Errorf("presence cache miss for user '%s': %w", userId, ErrCacheMiss)
	}
	return item.Value(), nil
}

func (s *Service) runHeartbeat(ctx context.Context, userId, connectionId string) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Heartbeat(ctx, userId, connectionId); err != nil {
				s.logger.Warn().Err(err).Msg("background presence heartbeat failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) publishUpdate(userId string, status Status) {
	msg := userId + "," + strconv.FormatUint(uint64(status), 10)
	if err := s.nats.Driver.Publish(natsSubjectUserPresenceUpdates, []byte(msg)); err != nil {
		s.logger.Err(err).Msgf("failed to publish presence update '%s' for user '%s'", status, userId)
	}
}

func (s *Service) applyRemoteUpdate(payload string) {
	parts := strings.Split(payload, ",")
	if len(parts) != 2 {
		s.logger.Error().Msgf("invalid NATS presence message: %s", payload)
		return
	}

	statusValue, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		s.logger.Error().Msgf("invalid NATS presence status in message: %s", payload)
		return
	}

	s.statusCache.Set(parts[0], Status(statusValue), ttlcache.DefaultTTL)
}

func connectionSetKey(userId string) string {
	return fmt.Sprintf(connectionSetKeyFormat, userId)
}

func connectionKey(connectionId string) string {
	return fmt.Sprintf(connectionKeyFormat, connectionId)
}

func (h *heartbeats) start(userId, connectionId string, heartbeater func(ctx context.Context, userId, connectionId string)) {
	key := userId + ":" + connectionId

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.cancelations[key]; exists {
		h.logger.Warn().Msgf("heartbeat for connection '%s' of user '%s' already exists", connectionId, userId)
		return
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	h.cancelations[key] = cancel
	go heartbeater(hbCtx, userId, connectionId)
}

func (h *heartbeats) stop(userId, connectionId string) {
	key := userId + ":" + connectionId

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if cancel, ok := h.cancelations[key]; ok {
		cancel()
		delete(h.cancelations, key)
	}
}

func (h *heartbeats) stopAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, cancel := range h.cancelations {
		cancel()
	}
	h.cancelations = make(map[string]context.CancelFunc)
}
