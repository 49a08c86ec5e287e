package guildservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "GuildService"

// Metrics is implemented by the prometheus recorder in app/observability.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// GuildService implements the Service interface.
type GuildService struct {
	repo    guilddb.Repository
	db      bun.IDB
	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer

	runInTx func(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error
}

var _ Service = (*GuildService)(nil)

// NewGuildService creates a new GuildService.
func NewGuildService(
	repo guilddb.Repository,
	db bun.IDB,
	logger *slog.Logger,
	metrics Metrics,
	tracer trace.Tracer,
) *GuildService {
	s := &GuildService{
		repo:    repo,
		db:      db,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
	s.runInTx = func(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, tx)
		})
	}
	return s
}

// observe wraps a service call with tracing, metrics, and panic recovery.
func observe[T any](
	s *GuildService,
	ctx context.Context,
	operationName string,
	guildID rolesyncdomain.GuildID,
	op func(ctx context.Context) (T, error),
) (out T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("guild_id", string(guildID)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("guild_id", string(guildID)),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			var zero T
			out = zero
		}
	}()

	out, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("guild_id", string(guildID)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return out, wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return out, nil
}

// withTelemetry is observe for operations returning a result, logging domain
// failures.
func withTelemetry[S any](
	s *GuildService,
	ctx context.Context,
	operationName string,
	guildID rolesyncdomain.GuildID,
	op func(ctx context.Context) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	return observe(s, ctx, operationName, guildID, func(ctx context.Context) (results.OperationResult[S, error], error) {
		result, err := op(ctx)
		if err == nil && result.Failure != nil {
			s.logger.WarnContext(ctx, "Operation returned failure result",
				slog.String("operation", operationName),
				slog.String("guild_id", string(guildID)),
				slog.Any("failure", *result.Failure),
			)
		}
		return result, err
	})
}

func failure[S any](err error) results.OperationResult[S, error] {
	return results.FailureResult[S](err)
}
