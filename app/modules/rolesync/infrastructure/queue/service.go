package rolesyncqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const serviceName = "river"

// Metrics is implemented by the prometheus recorder in app/observability.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// Config configures the poll schedule.
type Config struct {
	DSN          string
	PollInterval time.Duration
	MaxWorkers   int
}

// Service owns the river client running the rolesync jobs.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics Metrics
}

// NewService connects to Postgres, applies the river schema and builds a
// client with the periodic poll registered.
func NewService(ctx context.Context, cfg Config, guilds GuildLister, publisher message.Publisher, logger *slog.Logger, metrics Metrics) (*Service, error) {
	logger = logger.With(slog.String("component", "river_queue"))
	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	fail := func(msg string, err error) (*Service, error) {
		logger.ErrorContext(ctx, msg, slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	if cfg.PollInterval <= 0 {
		return fail("invalid poll interval", fmt.Errorf("%s", cfg.PollInterval))
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fail("failed to parse DSN", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fail("failed to create pgx pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fail("failed to ping database", err)
	}

	driver := riverpgxv5.New(pool)
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		pool.Close()
		return fail("failed to create river migrator", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		pool.Close()
		return fail("failed to migrate river schema", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewPollWorker(logger, guilds, cfg.PollInterval))
	river.AddWorker(workers, NewGuildWorker(logger, publisher))

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueName:          {MaxWorkers: maxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(cfg.PollInterval),
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		return fail("failed to create River client", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	metrics.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))
	logger.InfoContext(ctx, "Rolesync queue service initialized", slog.Duration("poll_interval", cfg.PollInterval))

	return &Service{
		client:  client,
		pool:    pool,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// PeriodicJobs returns the poll schedule. The first tick runs on start.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return PollJob{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", serviceName)

	if err := s.client.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "start_service", serviceName)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", serviceName)
	s.metrics.RecordOperationDuration(ctx, "start_service", serviceName, time.Since(start))
	s.logger.InfoContext(ctx, "Rolesync queue service started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", serviceName)
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", serviceName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", serviceName)
	s.logger.InfoContext(ctx, "Rolesync queue service stopped")
	return nil
}

// HealthCheck verifies the queue database is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
