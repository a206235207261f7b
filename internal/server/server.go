// Package server defines the core Server struct that composes the app's main dependencies.
//
// It contains the initialization logic for shared infrastructure
// and handles graceful shutdowns.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - AWS SDK configuration (DynamoDB, SES)
//   - database pool (postgres storage only)
//   - redis client (outbox only)
//   - Prometheus registry
//   - background job service (asynq)
//   - http.Server (server mode only; Lambda mode never starts it)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/database"
	"github.com/deppfellow/travelease-inquiry/internal/lib/job"
	"github.com/deppfellow/travelease-inquiry/internal/lib/metrics"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/travelease-inquiry/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself. DB, Redis and Job are nil when their
// feature is not configured.
type Server struct {
	// Config holds all environment/config values for the app.
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService optionally holds the New Relic application instance.
	LoggerService *loggerPkg.LoggerService

	// AWS is the resolved SDK configuration shared by the DynamoDB and SES clients.
	AWS aws.Config

	// DB holds the PostgreSQL pool wrapper.
	DB *database.Database

	// Redis is the Redis client.
	Redis *redis.Client

	// Registry is where the Prometheus collectors live; /metrics serves it.
	Registry *prometheus.Registry

	// Metrics are the inquiry collectors, registered on Registry.
	Metrics *metrics.Metrics

	// httpServer is configured in SetupHTTPServer and started in Start().
	httpServer *http.Server

	// Job runs the outbox workers and scheduler. It is wired by the app
	// once the store and the notifier exist.
	Job *job.JobService
}

// New constructs a Server and initializes core dependencies.
//
// It does NOT start the HTTP server. That is done in SetupHTTPServer + Start.
//
// Initialization performed:
//   - AWS SDK config (region from config, else the SDK default chain)
//   - PostgreSQL pool when storage.backend is postgres
//   - Redis client + optional New Relic hooks when redis is configured
//   - Prometheus registry with Go runtime and process collectors
//
// A failing Redis ping does not block startup: Redis only powers the outbox,
// and inquiries are still accepted without it.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var db *database.Database
	if cfg.Storage.Backend == config.StoragePostgres {
		db, err = database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis != nil {
		redisClient = newRedisClient(ctx, cfg.Redis, logger, loggerService)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		AWS:           awsCfg,
		DB:            db,
		Redis:         redisClient,
		Registry:      registry,
		Metrics:       metrics.New(registry),
	}, nil
}

func newRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	// Connections are lazy; nothing is dialed until the first command.
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Address,
	})

	// Hooks put Redis commands into New Relic distributed traces.
	if loggerService.GetApplication() != nil {
		client.AddHook(nrredis.NewHook(client.Options()))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, outbox sweep will not run until it is reachable")
	}

	return client
}

// SetupHTTPServer configures the internal net/http server.
//
// The handler is the echo router with its middleware stack.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores int values, interpreted here as seconds.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
//
// It requires SetupHTTPServer to be called first.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its dependencies.
//
// It attempts to:
//   - stop the HTTP server (finish inflight requests until ctx deadline)
//   - stop the job service
//   - close the DB pool and the Redis client
//
// Every step runs even if an earlier one fails; the errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	return errors.Join(errs...)
}
