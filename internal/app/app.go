// Package app wires the server container, stores, clients, services,
// handlers and router into one runnable application. Both entry points
// (the HTTP server and the Lambda function) build it the same way.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/database"
	"github.com/deppfellow/travelease-inquiry/internal/handler"
	"github.com/deppfellow/travelease-inquiry/internal/lib/email"
	"github.com/deppfellow/travelease-inquiry/internal/lib/geocode"
	"github.com/deppfellow/travelease-inquiry/internal/lib/job"
	"github.com/deppfellow/travelease-inquiry/internal/logger"
	"github.com/deppfellow/travelease-inquiry/internal/repository"
	"github.com/deppfellow/travelease-inquiry/internal/router"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/deppfellow/travelease-inquiry/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Options select what a given entry point runs besides the request path.
type Options struct {
	// RunOutbox starts the asynq workers and the outbox sweep. Only a
	// long-running process can host them.
	RunOutbox bool
}

// App is the fully wired application.
type App struct {
	Server *server.Server
	Router *echo.Echo
}

// New builds the application. On error every resource opened so far is
// released.
func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger, loggerService *logger.LoggerService, opts Options) (*App, error) {
	s, err := server.New(ctx, cfg, log, loggerService)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, s, opts)
	if err != nil {
		if shutdownErr := s.Shutdown(ctx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to release resources after startup error")
		}
		return nil, err
	}

	return a, nil
}

func build(ctx context.Context, s *server.Server, opts Options) (*App, error) {
	cfg := s.Config

	if cfg.Storage.Backend == config.StoragePostgres {
		if err := database.Migrate(ctx, s.Logger, cfg); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	repos, err := repository.NewRepositories(s)
	if err != nil {
		return nil, fmt.Errorf("failed to create repositories: %w", err)
	}

	mailer, err := newMailer(s)
	if err != nil {
		return nil, err
	}

	clients := service.Clients{
		Email:   email.NewClient(cfg.Email, mailer, s.Logger, s.Metrics),
		Geocode: geocode.NewClient(cfg.Geocoding, s.Logger),
	}

	if opts.RunOutbox && cfg.OutboxEnabled() {
		jobs := job.NewJobService(s.Logger, cfg, job.Dependencies{
			Store:    repos.Inquiries,
			Notifier: clients.Email,
			Metrics:  s.Metrics,
		})
		if err := jobs.Start(); err != nil {
			return nil, fmt.Errorf("failed to start outbox: %w", err)
		}
		s.Job = jobs
	} else if opts.RunOutbox {
		s.Logger.Warn().Msg("redis not configured, outbox sweep disabled")
	}

	services := service.NewServices(s, repos, clients)
	handlers := handler.NewHandlers(s, services, repos)

	return &App{
		Server: s,
		Router: router.NewRouter(s, handlers),
	}, nil
}

func newMailer(s *server.Server) (email.Mailer, error) {
	switch s.Config.Email.Provider {
	case config.EmailProviderSES:
		return email.NewSESMailer(sesv2.NewFromConfig(s.AWS)), nil
	case config.EmailProviderResend:
		return email.NewResendMailer(s.Config.Email.ResendAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", s.Config.Email.Provider)
	}
}
