// Package handlerwrapper adapts typed handlers to watermill handler funcs.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TopicMetadataKey names the destination of a produced message. Handlers are
// registered without a publish topic and the publisher routes on this key.
const TopicMetadataKey = "topic"

// Result is one message a handler wants published.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// Metrics records handler outcomes. A nil Metrics is allowed.
type Metrics interface {
	RecordHandlerResult(ctx context.Context, handler, result string, duration time.Duration)
}

// WrapTransformingTyped decodes the JSON payload into T, runs handler and
// encodes its results as new messages carrying the incoming correlation id.
// Undecodable payloads are acked and dropped.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics Metrics,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		start := time.Now()
		correlationID := middleware.MessageCorrelationID(msg)

		ctx := observability.WithCorrelationID(msg.Context(), correlationID)
		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		record := func(result string) {
			if metrics != nil {
				metrics.RecordHandlerResult(ctx, handlerName, result, time.Since(start))
			}
		}

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				slog.String("handler", handlerName),
				slog.String("message_id", msg.UUID),
				slog.Any("error", err),
			)
			span.RecordError(err)
			record("invalid")
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				slog.String("handler", handlerName),
				slog.String("message_id", msg.UUID),
				slog.Any("error", err),
			)
			span.RecordError(err)
			record("error")
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(r, correlationID)
			if err != nil {
				record("error")
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			out = append(out, m)
		}

		record("ok")
		return out, nil
	}
}

// NewMessage encodes r as a watermill message addressed to r.Topic. A new
// correlation id is generated when none is given.
func NewMessage(r Result, correlationID string) (*message.Message, error) {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", r.Topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	for k, v := range r.Metadata {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(TopicMetadataKey, r.Topic)

	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	return msg, nil
}
