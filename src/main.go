package main

import (
	"chat/src/migration"
	"chat/src/platform/config"
	"chat/src/platform/health"
	"chat/src/platform/lifecycle"
	"chat/src/platform/logging"
	"chat/src/platform/state"
	"chat/src/util"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"
)

func main() {
	cfg, err := config.Load(config.LoadConfigOptions{
		YamlFilePaths: []string{"/app/config/config.yaml"},
		EnvVarPrefix:  "CHAT_APP_",
	})
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %+v", err))
	}

	loggerFactory, err := logging.NewFactory(&logging.Options{
		AppInstanceID: cfg.Application.InstanceName,
		AppVersion:    cfg.Application.Version,
		AppCommit:     cfg.Application.Commit,
		AppBuildDate:  cfg.Application.BuildTime,
		RootLevel:     cfg.Logging.RootLevel,
		LiteralLevels: cfg.Logging.LiteralLevels,
		RegexLevels:   cfg.Logging.RegexLevels,
		PrettyPrint:   cfg.Logging.PrettyPrint,
	})
	if err != nil {
		panic(fmt.Sprintf("Error creating logger factory: %+v", err))
	}
	logger := loggerFactory.Child("main")

	cfgBytes, err := yaml.Marshal(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to marshal config")
	}
	logger.Info().Msgf("Using config:\n%s", string(cfgBytes))

	tlsConfig, err := loadTLSConfigs(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load TLS configs")
	}

	clients, err := state.CreateClients(cfg, tlsConfig, loggerFactory)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage clients")
	}

	clientsController, err := lifecycle.NewController(lifecycle.ControllerOptions{
		Services: map[string]lifecycle.ServiceLifecycle{
			"redis":          clients.Redis,
			"scylladb":       clients.ScyllaDB,
			"nats":           clients.Nats,
			"etcd":           clients.Etcd,
			"kafkaadmin":     clients.Kafka.Admin,
			"kafkaproducer":  clients.Kafka.Producer,
			"kafkabroadcast": clients.Kafka.Broadcast,
			"kafkapersister": clients.Kafka.Persister,
		},
		Timeouts: lifecycle.ControllerTimeoutsOptions{
			Startup:  30 * time.Second,
			Shutdown: 30 * time.Second,
		},
		Logger: loggerFactory.Child("lifecycle.clients"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create clients lifecycle controller")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := clientsController.Start(startupCtx); err != nil {
		cancelStartup()
		logger.Fatal().Err(err).Msg("Failed to start storage clients")
	}
	cancelStartup()

	services, err := state.CreateServices(cfg, clients, loggerFactory)
	if err != nil {
		clientsController.Stop(context.Background())
		logger.Fatal().Err(err).Msg("Failed to create services")
	}

	migrationCtx, cancelMigration := context.WithTimeout(context.Background(), 60*time.Second)
	if err := services.Migration.Run(migrationCtx, migration.Migrations); err != nil {
		cancelMigration()
		clientsController.Stop(context.Background())
		logger.Fatal().Err(err).Msg("Failed to run schema migrations")
	}
	cancelMigration()

	servicesController, err := lifecycle.NewController(lifecycle.ControllerOptions{
		Services: map[string]lifecycle.ServiceLifecycle{
			"presence":  services.Presence,
			"broadcast": services.Broadcast,
			"persister": services.Persister,
		},
		Timeouts: lifecycle.ControllerTimeoutsOptions{
			Startup:  15 * time.Second,
			Shutdown: 15 * time.Second,
		},
		Logger: loggerFactory.Child("lifecycle.services"),
	})
	if err != nil {
		clientsController.Stop(context.Background())
		logger.Fatal().Err(err).Msg("Failed to create services lifecycle controller")
	}

	startupCtx, cancelStartup = context.WithTimeout(context.Background(), 15*time.Second)
	if err := servicesController.Start(startupCtx); err != nil {
		cancelStartup()
		clientsController.Stop(context.Background())
		logger.Fatal().Err(err).Msg("Failed to start domain services")
	}
	cancelStartup()

	healthController, err := newHealthController(clients, loggerFactory.Child("health"))
	if err != nil {
		servicesController.Stop(context.Background())
		clientsController.Stop(context.Background())
		logger.Fatal().Err(err).Msg("Failed to create health controller")
	}
	healthController.Start()

	mux := http.NewServeMux()
	mux.Handle("/", services.Router)
	mux.HandleFunc("/ws", services.Hub.ServeWS)
	mux.HandleFunc("/healthz", healthzHandler(healthController))

	httpServer := &http.Server{
		Addr:    cfg.Http.ListenAddress,
		Handler: mux,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	logger.Info().Msgf("Listening on %s", cfg.Http.ListenAddress)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown did not complete cleanly")
	}
	cancelShutdown()

	healthController.Stop()
	servicesController.Stop(context.Background())
	clientsController.Stop(context.Background())
	logger.Info().Msg("Shutdown complete")
}

// loadTLSConfigs builds the per-dependency tls.Config map CreateClients
// expects, keyed by each client package's own PingTargetName constant.
func loadTLSConfigs(cfg *config.Config) (map[string]*tls.Config, error) {
	sources := map[string]string{
		"redis":  cfg.Cache.CACertFilePath,
		"scylla": "", // the ScyllaDB client is built without TLS
		"kafka":  cfg.Log.CACertFilePath,
		"nats":   cfg.Nats.CACertFilePath,
		"etcd":   cfg.Etcd.CACertFilePath,
	}

	result := make(map[string]*tls.Config, len(sources))
	for name, path := range sources {
		if path == "" {
			continue
		}
		tlsCfg, err := util.LoadTLSConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config for '%s': %w", name, err)
		}
		result[name] = tlsCfg
	}
	return result, nil
}

func newHealthController(clients *state.StorageClients, logger zerolog.Logger) (*health.Controller, error) {
	return health.NewController(&health.ControllerConfig{
		Dependencies: map[string]health.Pingable{
			"redis":          clients.Redis,
			"scylladb":       clients.ScyllaDB,
			"nats":           clients.Nats,
			"etcd":           clients.Etcd,
			"kafkaadmin":     clients.Kafka.Admin,
			"kafkaproducer":  clients.Kafka.Producer,
			"kafkabroadcast": clients.Kafka.Broadcast,
			"kafkapersister": clients.Kafka.Persister,
		},
		Logger: logger,
	})
}

func healthzHandler(controller *health.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !controller.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"healthy": controller.Healthy()})
	}
}
