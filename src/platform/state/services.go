package state

import (
	"chat/src/broadcast"
	"chat/src/command"
	"chat/src/history"
	"chat/src/migration"
	"chat/src/persister"
	"chat/src/platform/config"
	"chat/src/platform/logging"
	"chat/src/presence"
	"chat/src/producer"
	"chat/src/ratelimit"
	"chat/src/subscription"
	"chat/src/transport"
	"fmt"
	"net/http"
	"time"
)

// Services holds every domain component wired against the stateful clients
// built by CreateClients, continuing the teacher's single
// construction-site-per-layer convention (platform/state/services.go).
type Services struct {
	Presence    *presence.Service
	RateLimiter *ratelimit.Service
	Producer    *producer.Producer
	Processor   *command.Processor
	Registry    *subscription.Registry
	History     *history.Store
	Broadcast   *broadcast.Consumer
	Persister   *persister.Consumer
	Migration   *migration.Runner
	Router      http.Handler
	Hub         *transport.Hub
}

// CreateServices builds every domain component (C1/C4-C13, C15-C17) on top
// of an already-constructed StorageClients, mirroring CreateClients' shape
// one layer up.
func CreateServices(cfg *config.Config, clients *StorageClients, loggerFactory *logging.LoggerFactory) (*Services, error) {
	presenceService := presence.NewService(clients.Redis, clients.Nats, loggerFactory.Child("service.presence"))

	rateLimiter, err := ratelimit.NewService(&ratelimit.Options{
		RedisClient:    clients.Redis,
		LimitPerWindow: cfg.RateLimit.LimitPerWindow,
		Window:         cfg.RateLimit.Window(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	eventProducer := producer.New(clients.Kafka.Producer, cfg.Log.TopicName)

	processor := command.New(rateLimiter, eventProducer, cfg.Env.ReplicaId)

	registry := subscription.New()

	historyStore, err := history.New(clients.ScyllaDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}

	broadcastConsumer := broadcast.New(clients.Kafka.Broadcast, registry, loggerFactory.Child("service.broadcast"))

	persisterConsumer := persister.New(clients.Kafka.Persister, historyStore, persister.Options{
		MaxAttempts:         cfg.Persister.RetryMaxAttempts,
		InnerBackoffInitial: time.Duration(cfg.Persister.RetryBaseMs) * time.Millisecond,
		InnerBackoffMax:     time.Duration(cfg.Persister.RetryMaxMs) * time.Millisecond,
		InnerBackoffJitter:  50 * time.Millisecond,
		OuterBackoffInitial: time.Duration(cfg.Persister.ConsumerBackoffInitialMs) * time.Millisecond,
		OuterBackoffMax:     time.Duration(cfg.Persister.ConsumerBackoffMaxMs) * time.Millisecond,
		OuterBackoffJitter:  100 * time.Millisecond,
		MaxPayloadLogBytes:  cfg.Persister.MaxPayloadLogBytes,
	}, loggerFactory.Child("service.persister"))

	migrationRunner := migration.New(clients.ScyllaDB, clients.Etcd, migration.Options{
		ApplyOnStartup: cfg.Schema.ApplyOnStartup,
		FailFast:       cfg.Schema.FailFast,
		AppliedBy:      cfg.Env.ReplicaId,
		Table:          cfg.Schema.MigrationTable,
	}, loggerFactory.Child("service.migration"))

	authenticator := transport.NewJWTAuthenticator(string(cfg.Auth.JWTSecret))

	router := transport.NewRouter(processor, authenticator, cfg.Http.DeveloperMode, loggerFactory.Child("service.transport.http"))
	hub := transport.NewHub(registry, presenceService, processor, authenticator, cfg.Env.ReplicaId, loggerFactory.Child("service.transport.ws"))

	return &Services{
		Presence:    presenceService,
		RateLimiter: rateLimiter,
		Producer:    eventProducer,
		Processor:   processor,
		Registry:    registry,
		History:     historyStore,
		Broadcast:   broadcastConsumer,
		Persister:   persisterConsumer,
		Migration:   migrationRunner,
		Router:      router,
		Hub:         hub,
	}, nil
}
