package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus is the watermill publisher and subscriber backed by NATS JetStream.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// Config configures the NATS connection.
type Config struct {
	URL string
	// QueueGroup makes replicas share one durable consumer per topic.
	QueueGroup string
	// AckWait is how long a handler may hold a message before NATS
	// redelivers it. It must outlast the longest reconciliation run.
	AckWait time.Duration
}

// DefaultAckWait is used when Config.AckWait is not set.
const DefaultAckWait = 30 * time.Second

type eventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	js         jetstream.JetStream
	natsConn   *nc.Conn
	logger     *slog.Logger
}

// NewEventBus connects to NATS, ensures the streams exist and builds the
// watermill publisher and subscriber.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (EventBus, error) {
	natsConn, err := nc.Connect(cfg.URL,
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to initialize JetStream", slog.Any("error", err))
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if err := InitializeStreams(ctx, js, logger); err != nil {
		natsConn.Close()
		return nil, err
	}

	ackWait := cfg.AckWait
	if ackWait <= 0 {
		ackWait = DefaultAckWait
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	natsOptions := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: natsOptions,
			Marshaler:   marshaler,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to create Watermill publisher", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: cfg.QueueGroup,
			CloseTimeout:     30 * time.Second,
			AckWaitTimeout:   ackWait,
			NatsOptions:      natsOptions,
			Unmarshaler:      marshaler,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				SubscribeOptions: []nc.SubOpt{
					nc.DeliverNew(),
					nc.AckExplicit(),
					nc.AckWait(ackWait),
				},
			},
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		_ = publisher.Close()
		logger.Error("Failed to create Watermill subscriber", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	return &eventBus{
		publisher:  WithMetadataTopic(publisher),
		subscriber: subscriber,
		js:         js,
		natsConn:   natsConn,
		logger:     logger,
	}, nil
}

func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		eb.logger.Debug("Publishing message",
			slog.String("topic", firstNonEmpty(topic, msg.Metadata.Get(handlerwrapper.TopicMetadataKey))),
			slog.String("message_id", msg.UUID),
		)
	}
	return eb.publisher.Publish(topic, messages...)
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.Info("Subscribing to topic", slog.String("topic", topic))
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return messages, nil
}

// Close closes all NATS and Watermill resources.
func (eb *eventBus) Close() error {
	var errs []error
	if err := eb.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	if err := eb.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	eb.natsConn.Close()
	return errors.Join(errs...)
}

// metadataTopicPublisher publishes messages given an empty topic to the topic
// named in their metadata.
type metadataTopicPublisher struct {
	message.Publisher
}

// WithMetadataTopic wraps pub so routers can register handlers without a
// fixed publish topic.
func WithMetadataTopic(pub message.Publisher) message.Publisher {
	return metadataTopicPublisher{pub}
}

func (p metadataTopicPublisher) Publish(topic string, messages ...*message.Message) error {
	if topic != "" {
		return p.Publisher.Publish(topic, messages...)
	}
	for _, msg := range messages {
		t := msg.Metadata.Get(handlerwrapper.TopicMetadataKey)
		if t == "" {
			return fmt.Errorf("message %s has no topic", msg.UUID)
		}
		if err := p.Publisher.Publish(t, msg); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
