package state

import (
	"chat/src/clients/etcd"
	"chat/src/clients/kafka"
	"chat/src/clients/nats"
	"chat/src/clients/redis"
	"chat/src/clients/scylla"
	"chat/src/platform/config"
	"chat/src/platform/logging"
	"crypto/tls"
	"fmt"
)

type KafkaClients struct {
	Admin     *kafka.Client
	Producer  *kafka.Client
	Broadcast *kafka.Client
	Persister *kafka.Client
}

type StorageClients struct {
	Etcd     *etcd.Client
	Redis    *redis.Client
	ScyllaDB *scylla.Client
	Nats     *nats.Client
	Kafka    KafkaClients
}

// CreateClients builds every stateful client the lifecycle controller owns,
// continuing the teacher's single construction-site-per-client convention
// (platform/state/clients.go) trimmed to the stores this implementation
// actually exercises.
func CreateClients(cfg *config.Config, tlsConfig map[string]*tls.Config, loggerFactory *logging.LoggerFactory) (*StorageClients, error) {
	redisClient := redis.NewClient(redis.ClientOptions{
		Addresses:  cfg.Cache.ConnectionString,
		TLSConfig:  tlsConfig[redis.PingTargetName],
		Username:   cfg.Cache.Username,
		Password:   string(cfg.Cache.Password),
		ClientName: cfg.Application.InstanceName,
		Logger:     loggerFactory.Child("client.redis"),
	})

	etcdClient := etcd.NewClient(etcd.ClientOptions{
		Endpoints: cfg.Etcd.Endpoints,
		TLSConfig: tlsConfig[etcd.PingTargetName],
		Logger: etcd.ClientLoggerOptions{
			Client: loggerFactory.Child("client.etcd"),
			Driver: loggerFactory.Child("client.etcd.driver"),
		},
	})

	scyllaOptions := scylla.ClientOptions{
		Hosts:          cfg.Store.ContactPoints,
		ShardAwarePort: cfg.Store.ShardAwarePort,
		LocalDC:        cfg.Store.LocalDC,
		Keyspace:       cfg.Store.Keyspace,
		Username:       cfg.Store.Username,
		Password:       string(cfg.Store.Password),
		Logger: scylla.ClientLoggerOptions{
			Client: loggerFactory.Child("client.scylla"),
			Driver: loggerFactory.Child("client.scylla.driver"),
		},
	}
	if len(cfg.Store.AddressTranslations) > 0 {
		scyllaOptions.AddressTranslator = scylla.NewStaticAddressTranslator(cfg.Store.AddressTranslations)
	}
	scyllaClient := scylla.NewClient(scyllaOptions)

	natsClient := nats.NewClient(&nats.ClientOptions{
		Servers:    cfg.Nats.Servers,
		TLSConfig:  tlsConfig[nats.PingTargetName],
		ClientName: cfg.Application.InstanceName,
		Username:   cfg.Nats.Username,
		Password:   string(cfg.Nats.Password),
		Logger:     loggerFactory.Child("client.nats"),
	})

	commonGeneral := kafka.GeneralConfig{
		ClientID:       fmt.Sprintf("kgo-%s", cfg.Application.Name),
		ServiceName:    cfg.Application.Name,
		ServiceVersion: cfg.Application.Version,
		SeedBrokers:    cfg.Log.BootstrapServers,
		TLSConfig:      tlsConfig[kafka.PingTargetName],
	}

	adminClient, err := newKafkaClient(loggerFactory, "client.kafka.admin", func(b *kafka.ConfigurationBuilder) {
		b.SetGeneralConfig(&kafka.GeneralConfig{
			ClientID:       commonGeneral.ClientID,
			ServiceName:    commonGeneral.ServiceName,
			ServiceVersion: commonGeneral.ServiceVersion,
			SeedBrokers:    commonGeneral.SeedBrokers,
			TLSConfig:      commonGeneral.TLSConfig,
			Username:       cfg.Log.Users.Admin.Username,
			Password:       string(cfg.Log.Users.Admin.Password),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka admin client: %w", err)
	}

	// Event Producer (C6): dedicated client so producer backpressure never
	// competes with the admin connection's metadata/ACL calls.
	producerClient, err := newKafkaClient(loggerFactory, "client.kafka.producer", func(b *kafka.ConfigurationBuilder) {
		b.SetGeneralConfig(&kafka.GeneralConfig{
			ClientID:       commonGeneral.ClientID,
			ServiceName:    commonGeneral.ServiceName,
			ServiceVersion: commonGeneral.ServiceVersion,
			SeedBrokers:    commonGeneral.SeedBrokers,
			TLSConfig:      commonGeneral.TLSConfig,
			Username:       cfg.Log.Users.Data.Username,
			Password:       string(cfg.Log.Users.Data.Password),
		})
		b.SetProducerConfig(&kafka.ProducerConfig{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer client: %w", err)
	}

	// Broadcast Consumer (C8): unique group per replica so every replica
	// receives every partition, fanning the log out to its own in-process
	// subscribers.
	broadcastClient, err := newKafkaClient(loggerFactory, "client.kafka.broadcast", func(b *kafka.ConfigurationBuilder) {
		b.SetGeneralConfig(&kafka.GeneralConfig{
			ClientID:       commonGeneral.ClientID,
			ServiceName:    commonGeneral.ServiceName,
			ServiceVersion: commonGeneral.ServiceVersion,
			SeedBrokers:    commonGeneral.SeedBrokers,
			TLSConfig:      commonGeneral.TLSConfig,
			Username:       cfg.Log.Users.Data.Username,
			Password:       string(cfg.Log.Users.Data.Password),
		})
		b.SetConsumerConfig(&kafka.ConsumerConfig{
			ConsumeTopics: []string{cfg.Log.TopicName},
		})
		b.SetConsumerGroupConfig(&kafka.ConsumerGroupConfig{
			GroupID:         fmt.Sprintf("%s-%s", cfg.Log.BroadcastGroupPrefix, cfg.Env.ReplicaId),
			InstanceID:      cfg.Application.InstanceName,
			AutoCommitMarks: true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka broadcast client: %w", err)
	}

	// Persister Consumer (C10): one shared group, so each partition is
	// consumed by a single replica at a time; a re-delivered record is
	// absorbed by the History Store's idempotent insert.
	persisterClient, err := newKafkaClient(loggerFactory, "client.kafka.persister", func(b *kafka.ConfigurationBuilder) {
		b.SetGeneralConfig(&kafka.GeneralConfig{
			ClientID:       commonGeneral.ClientID,
			ServiceName:    commonGeneral.ServiceName,
			ServiceVersion: commonGeneral.ServiceVersion,
			SeedBrokers:    commonGeneral.SeedBrokers,
			TLSConfig:      commonGeneral.TLSConfig,
			Username:       cfg.Log.Users.Data.Username,
			Password:       string(cfg.Log.Users.Data.Password),
		})
		b.SetConsumerConfig(&kafka.ConsumerConfig{
			ConsumeTopics: []string{cfg.Log.TopicName},
		})
		b.SetConsumerGroupConfig(&kafka.ConsumerGroupConfig{
			GroupID:         cfg.Persister.SharedGroupId,
			InstanceID:      cfg.Application.InstanceName,
			AutoCommitMarks: true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka persister client: %w", err)
	}

	return &StorageClients{
		Etcd:     etcdClient,
		Redis:    redisClient,
		ScyllaDB: scyllaClient,
		Nats:     natsClient,
		Kafka: KafkaClients{
			Admin:     adminClient,
			Producer:  producerClient,
			Broadcast: broadcastClient,
			Persister: persisterClient,
		},
	}, nil
}

func newKafkaClient(loggerFactory *logging.LoggerFactory, name string, configure func(*kafka.ConfigurationBuilder)) (*kafka.Client, error) {
	builder := kafka.NewConfigurationBuilder(&kafka.ConfigurationLoggers{
		Client: loggerFactory.Child(name),
		Driver: loggerFactory.Child(name + ".driver"),
	})
	configure(&builder)
	return kafka.NewClient(builder)
}
