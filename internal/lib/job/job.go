// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - You enqueue tasks (producer) using asynq.Client.
//   - A server runs workers that process those tasks (consumer) using asynq.Server.
//   - A scheduler enqueues periodic tasks (the outbox sweep) using asynq.Scheduler.
//
// The only background work is the notification outbox. Records whose emails
// failed inline stay "pending"; the periodic sweep finds them and enqueues
// one notify task per record, which re-sends both emails and marks the
// record "notified".
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/lib/metrics"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// PendingStore is the part of the record store the outbox needs.
type PendingStore interface {
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Record, error)
	MarkNotified(ctx context.Context, submissionID string, at time.Time) error
}

// Notifier sends both inquiry emails for a record.
type Notifier interface {
	NotifyInquiry(ctx context.Context, rec *model.Record) error
}

// Enqueuer pushes tasks to Redis. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dependencies are the collaborators the task handlers use.
type Dependencies struct {
	Store    PendingStore
	Notifier Notifier
	Metrics  *metrics.Metrics
}

// JobService holds the Asynq client (enqueue), server (worker execution)
// and scheduler (periodic enqueue).
type JobService struct {
	// Client is used to enqueue tasks into Redis.
	Client *asynq.Client

	// enqueuer is what the handlers enqueue through; it is Client outside tests.
	enqueuer Enqueuer

	// server runs worker processes that pull tasks from Redis and execute handlers.
	server *asynq.Server

	// scheduler enqueues the outbox sweep on a fixed interval.
	scheduler *asynq.Scheduler

	store    PendingStore
	notifier Notifier
	metrics  *metrics.Metrics
	outbox   config.OutboxConfig
	now      func() time.Time

	// logger is used for lifecycle logs and handler logs.
	logger *zerolog.Logger
}

// NewJobService creates a JobService configured to use Redis from cfg.
// cfg.Redis must be set.
//
// It builds:
//   - an asynq.Client (to push jobs)
//   - an asynq.Server (to process jobs)
//   - an asynq.Scheduler (to trigger the outbox sweep)
//
// Queue weights give notify tasks ("default") more worker share than the
// sweep itself ("low").
func NewJobService(logger *zerolog.Logger, cfg *config.Config, deps Dependencies) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			Logger:   newAsynqLogger(logger),
			LogLevel: asynq.WarnLevel,
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(logger),
		LogLevel: asynq.WarnLevel,
	})

	return &JobService{
		Client:    client,
		enqueuer:  client,
		server:    server,
		scheduler: scheduler,
		store:     deps.Store,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		outbox:    cfg.Outbox,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the task handlers and starts the workers and the scheduler.
// Both run in the background; Start returns once they are up.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInquiryNotify, j.handleInquiryNotifyTask)
	mux.HandleFunc(TaskOutboxSweep, j.handleOutboxSweepTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return err
	}

	spec := fmt.Sprintf("@every %s", j.outbox.SweepInterval)
	if _, err := j.scheduler.Register(spec, NewOutboxSweepTask()); err != nil {
		j.server.Shutdown()
		return fmt.Errorf("failed to register outbox sweep: %w", err)
	}

	if err := j.scheduler.Start(); err != nil {
		j.server.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	j.logger.Info().
		Dur("interval", j.outbox.SweepInterval).
		Dur("grace_period", j.outbox.GracePeriod).
		Msg("Outbox sweep scheduled")

	return nil
}

// Stop gracefully stops the scheduler and job server and closes client resources.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.scheduler.Shutdown()
	j.server.Shutdown()
	j.Client.Close()
}
