package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/analytics"
	analytics_api "ms-event-ledger/internal/analytics/api"
	"ms-event-ledger/internal/auth"
	"ms-event-ledger/internal/config"
	"ms-event-ledger/internal/database"
	"ms-event-ledger/internal/database/migrations"
	"ms-event-ledger/internal/events/event_api"
	events "ms-event-ledger/internal/events/service"
	"ms-event-ledger/internal/kafka"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/lock"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"
)

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *logger.Logger) *bun.DB {
	var bunDB *bun.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", cfg.Driver, i+1, maxRetries))
		bunDB, err = database.Open(ctx, cfg.Driver, cfg.DSN)
		if err == nil {
			break
		}
		logger.Error("DATABASE", fmt.Sprintf("Failed to connect: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect after %d attempts: %v", maxRetries, err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))

	if !cfg.AutoMigrate {
		return bunDB
	}
	if cfg.Driver == database.DriverPostgres {
		if err := migrations.NewRunner(bunDB, logger).MigrateUp(); err != nil {
			logger.Fatal("MIGRATE", fmt.Sprintf("Migration failed: %v", err))
		}
	} else if err := database.CreateSchema(ctx, bunDB); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Schema creation failed: %v", err))
	}
	return bunDB
}

// connectLocker uses Redis when configured and an in-process lock otherwise.
func connectLocker(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) (lock.Locker, *redis.Client) {
	if cfg.Addr == "" {
		logger.Warn("REDIS", "REDIS_ADDR not set, using in-process event locks (single instance only)")
		return lock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return lock.NewRedis(client, cfg.EventLockTTL), client
}

func connectKafka(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) kafka.Publisher {
	if !cfg.Enabled {
		logger.Warn("KAFKA", "Kafka disabled, ledger notifications will not be published")
		return kafka.NopPublisher{}
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, kafka.Topics(cfg.TopicPrefix), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Brokers, cfg.TopicPrefix, logger)
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Event Ledger Service initialization")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	programID := address.EventProgramID
	if cfg.Ledger.ProgramID != "" {
		programID, err = address.ParsePubkey(cfg.Ledger.ProgramID)
		if err != nil {
			log.Fatal("CONFIG", fmt.Sprintf("Invalid PROGRAM_ID: %v", err))
		}
	}
	log.Info("CONFIG", fmt.Sprintf("Deriving event addresses under program %s", programID))

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	bunDB := connectDatabase(ctx, cfg.Database, log)
	defer bunDB.Close()

	locker, redisClient := connectLocker(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
		lock.WatchExpirations(ctx, redisClient, log)
	}

	stream := sse.NewEmitter()
	publisher := kafka.Fanout{connectKafka(ctx, cfg.Kafka, log), stream}
	defer publisher.Close()

	eventService := events.NewService(bunDB, programID, locker, publisher, log)

	var faucet *ledger.Faucet
	if cfg.Admin.Enabled {
		faucet, err = ledger.NewFaucet(bunDB, log)
		if err != nil {
			log.Fatal("ADMIN", fmt.Sprintf("Failed to initialize faucet: %v", err))
		}
		log.Warn("ADMIN", fmt.Sprintf("Admin routes enabled, faucet issuer %s", faucet.Issuer))
	}

	handler := &event_api.Handler{
		Service:      eventService,
		Faucet:       faucet,
		DB:           bunDB,
		Verifier:     auth.NewVerifier(cfg.Auth.MaxTokenAge),
		Stream:       stream,
		Logger:       log,
		AdminEnabled: cfg.Admin.Enabled,
		AdminKey:     cfg.Admin.Key,
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(event_api.RequestLogger(log))
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), log)
	r.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
	})
	log.Info("ROUTER", "Event and analytics routes registered under /api/v1")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Event Ledger Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopBackground()
	stream.Close()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Event Ledger Service shutdown complete")
	}
}
