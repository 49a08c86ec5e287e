package linkservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LinkService"

// Metrics is implemented by the prometheus recorder in app/observability.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// LinkService implements the Service interface.
type LinkService struct {
	repo      linkdb.Repository
	db        bun.IDB
	publisher message.Publisher
	logger    *slog.Logger
	metrics   Metrics
	tracer    trace.Tracer

	runInTx func(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error
}

var _ Service = (*LinkService)(nil)

// NewLinkService creates a new LinkService. publisher must route on the
// message topic metadata.
func NewLinkService(
	repo linkdb.Repository,
	db bun.IDB,
	publisher message.Publisher,
	logger *slog.Logger,
	metrics Metrics,
	tracer trace.Tracer,
) *LinkService {
	s := &LinkService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
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
	s *LinkService,
	ctx context.Context,
	operationName string,
	userID rolesyncdomain.UserID,
	op func(ctx context.Context) (T, error),
) (out T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("user_id", string(userID)),
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
				slog.String("user_id", string(userID)),
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
			slog.String("user_id", string(userID)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return out, wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return out, nil
}

func failure[S any](err error) results.OperationResult[S, error] {
	return results.FailureResult[S](err)
}

// announce publishes the change. The link is already stored, so a failed
// publish is logged and the next poll picks the change up.
func (s *LinkService) announce(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag, action string) {
	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{
		Topic: linkevents.AccountChangedV1,
		Payload: linkevents.AccountChangedPayloadV1{
			UserID: string(userID),
			Tag:    string(tag),
			Action: action,
		},
		Metadata: map[string]string{"user_id": string(userID)},
	}, observability.CorrelationID(ctx))
	if err == nil {
		err = s.publisher.Publish(linkevents.AccountChangedV1, msg)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish link change",
			slog.String("user_id", string(userID)),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

func toDomain(a linkdb.LinkedAccount) rolesyncdomain.LinkedAccount {
	return rolesyncdomain.LinkedAccount{
		UserID:   rolesyncdomain.UserID(a.UserID),
		Tag:      rolesyncdomain.PlayerTag(a.Tag),
		Name:     a.Name,
		Verified: a.Verified,
		Order:    a.Order,
	}
}

func toDomainList(accounts []linkdb.LinkedAccount) []rolesyncdomain.LinkedAccount {
	out := make([]rolesyncdomain.LinkedAccount, len(accounts))
	for i, a := range accounts {
		out[i] = toDomain(a)
	}
	return out
}
