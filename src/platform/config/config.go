package config

import (
	"chat/src/util"
	"time"
)

type CredentialsConfig struct {
	Username string      `koanf:"username" validate:"required,min=4,max=64"`
	Password util.Secret `koanf:"password" validate:"required,min=4,max=64"`
}

// LogConfig is the event log (Kafka) topic contract (§6).
type LogConfig struct {
	BootstrapServers     []string   `koanf:"bootstrap_servers" validate:"required,min=1,max=10,unique,dive,required,hostname_port"`
	CACertFilePath       string     `koanf:"ca_cert_file_path" validate:"required,filepath"`
	Users                KafkaUsers `koanf:"users" validate:"required"`
	TopicName            string     `koanf:"topic_name" validate:"required,min=1,max=249" default:"chat-events"`
	Partitions           int32      `koanf:"partitions" validate:"required,min=1,max=1000" default:"3"`
	BroadcastGroupPrefix string     `koanf:"broadcast_group_prefix" validate:"required,min=1,max=64" default:"broadcast"`
}

type KafkaUsers struct {
	Admin CredentialsConfig `koanf:"admin" validate:"required"`
	Data  CredentialsConfig `koanf:"data" validate:"required"`
}

// CacheConfig is the Redis Cluster presence/rate-limit store.
type CacheConfig struct {
	CredentialsConfig `koanf:",squash"`
	ConnectionString   []string `koanf:"connection_string" validate:"required,min=1,max=10,unique,dive,required,hostname_port"`
	CACertFilePath     string   `koanf:"ca_cert_file_path" validate:"required,filepath"`
	MTLSCertFilePath   string   `koanf:"mtls_cert_file_path" validate:"omitempty,filepath"`
	MTLSKeyFilePath    string   `koanf:"mtls_key_file_path" validate:"omitempty,filepath"`
}

// StoreConfig is the ScyllaDB history store.
type StoreConfig struct {
	ContactPoints  []string    `koanf:"contact_points" validate:"required,min=1,max=10,unique,dive,required,hostname|ip"`
	ShardAwarePort uint16      `koanf:"shard_aware_port" validate:"required,port"`
	LocalDC        string      `koanf:"local_dc" validate:"omitempty,min=3,max=64,alphanum"`
	Keyspace       string      `koanf:"keyspace" validate:"required,min=4,max=64"`
	Username       string      `koanf:"username" validate:"omitempty,min=4,max=64"`
	Password       util.Secret `koanf:"password" validate:"omitempty,min=4,max=64"`
	// AddressTranslations maps internal node addresses (IP, host, or CIDR,
	// optionally suffixed with ":port") to the externally reachable
	// "ip:port" the driver should dial instead, for clusters fronted by a
	// NAT or reachable only through a different address family.
	AddressTranslations map[string]string `koanf:"address_translations" validate:"omitempty,max=50,dive,keys,required,endkeys,required,hostname_port"`
}

// RateLimitConfig is the per-sender sliding-window admission policy (§4.4).
type RateLimitConfig struct {
	LimitPerWindow int64 `koanf:"limit_per_window" validate:"required,min=1,max=1000000" default:"20"`
	WindowSeconds  int   `koanf:"window_seconds" validate:"required,min=1,max=3600" default:"10"`
}

// Window returns the configured window as a time.Duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// PersisterConfig is the persister consumer's retry/backoff policy (§4.9).
type PersisterConfig struct {
	SharedGroupId            string `koanf:"shared_group_id" validate:"required,min=4,max=64,alphanum" default:"persister"`
	RetryMaxAttempts         int    `koanf:"retry_max_attempts" validate:"required,min=1,max=50" default:"5"`
	RetryBaseMs              int    `koanf:"retry_base_ms" validate:"required,min=1,max=60000" default:"100"`
	RetryMaxMs               int    `koanf:"retry_max_ms" validate:"required,min=1,max=600000" default:"5000"`
	ConsumerBackoffInitialMs int    `koanf:"consumer_backoff_initial_ms" validate:"required,min=1,max=60000" default:"200"`
	ConsumerBackoffMaxMs     int    `koanf:"consumer_backoff_max_ms" validate:"required,min=1,max=600000" default:"10000"`
	MaxPayloadLogBytes       int    `koanf:"max_payload_log_bytes" validate:"required,min=0,max=1048576" default:"2048"`
}

// SchemaConfig governs startup schema migration (§4.12, C13/C16).
type SchemaConfig struct {
	ApplyOnStartup bool   `koanf:"apply_on_startup" default:"true"`
	MigrationTable string `koanf:"migration_table" validate:"required,min=1,max=64" default:"schema_migrations"`
	FailFast       bool   `koanf:"fail_fast" default:"true"`
}

// EnvConfig carries the replica identity required and validated by C1.
type EnvConfig struct {
	ReplicaId string `koanf:"replica_id" validate:"required,min=1,max=256"`
}

type NatsConfig struct {
	CredentialsConfig `koanf:",squash"`
	Servers           []string `koanf:"servers" validate:"required,min=1,max=10,unique,dive,required,hostname_port"`
	CACertFilePath    string   `koanf:"ca_cert_file_path" validate:"required,filepath"`
}

type EtcdConfig struct {
	Endpoints      []string `koanf:"endpoints" validate:"required,min=1,max=10,unique,dive,required,hostname_port"`
	CACertFilePath string   `koanf:"ca_cert_file_path" validate:"required,filepath"`
}

// AuthConfig governs the Transport Adapter's JWT bearer validation (C15).
type AuthConfig struct {
	JWTSecret util.Secret `koanf:"jwt_secret" validate:"required,min=16,max=256"`
}

// HttpConfig is the Transport Adapter's listen address and error-detail mode.
type HttpConfig struct {
	ListenAddress string `koanf:"listen_address" validate:"required" default:":8080"`
	DeveloperMode bool   `koanf:"developer_mode" default:"false"`
}

type LoggingConfig struct {
	RootLevel     string            `koanf:"root_level" validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	LiteralLevels map[string]string `koanf:"literal_levels" validate:"max=100,dive,keys,required,min=1,max=100,endkeys,required,oneof=trace debug info warn error fatal panic disabled"`
	RegexLevels   map[string]string `koanf:"regex_levels" validate:"max=100,dive,keys,required,min=1,max=100,endkeys,required,oneof=trace debug info warn error fatal panic disabled"`
	PrettyPrint   bool              `koanf:"pretty_print"`
}

type ApplicationConfig struct {
	Name         string
	InstanceName string
	Version      string
	Commit       string
	BuildTime    string
}

type Config struct {
	Application ApplicationConfig
	Log         LogConfig       `koanf:"log" validate:"required"`
	Cache       CacheConfig     `koanf:"cache" validate:"required"`
	Store       StoreConfig     `koanf:"store" validate:"required"`
	RateLimit   RateLimitConfig `koanf:"rate_limit" validate:"required"`
	Persister   PersisterConfig `koanf:"persister" validate:"required"`
	Schema      SchemaConfig    `koanf:"schema" validate:"required"`
	Env         EnvConfig       `koanf:"env" validate:"required"`
	Nats        NatsConfig      `koanf:"nats" validate:"required"`
	Etcd        EtcdConfig      `koanf:"etcd" validate:"required"`
	Auth        AuthConfig      `koanf:"auth" validate:"required"`
	Http        HttpConfig      `koanf:"http" validate:"required"`
	Logging     LoggingConfig   `koanf:"logging" validate:"required"`
}
