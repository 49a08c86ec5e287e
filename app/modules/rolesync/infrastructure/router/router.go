package rolesyncrouter

import (
	"context"
	"fmt"
	"log/slog"

	clashevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/clash"
	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesynchandlers "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/handlers"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/trace"
)

// RolesyncRouter handles routing for rolesync module events.
type RolesyncRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	metrics    handlerwrapper.Metrics
	tracer     trace.Tracer
}

// NewRolesyncRouter creates a new RolesyncRouter. publisher must route
// messages published without a topic, see eventbus.WithMetadataTopic.
func NewRolesyncRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	metrics handlerwrapper.Metrics,
	tracer trace.Tracer,
) *RolesyncRouter {
	return &RolesyncRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with the necessary handlers and dependencies.
func (r *RolesyncRouter) Configure(routerCtx context.Context, service rolesyncservice.Service) error {
	handlers := rolesynchandlers.NewRolesyncHandlers(service, r.logger)

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	if err := r.RegisterHandlers(routerCtx, handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    handlerwrapper.Metrics
}

// registerHandler registers a transformation-pattern handler with typed payload.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "rolesync." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"", // routed on the topic metadata key
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}

// RegisterHandlers registers the rolesync event handlers.
func (r *RolesyncRouter) RegisterHandlers(_ context.Context, handlers rolesynchandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, rolesyncevents.GuildReconcileRequestedV1, handlers.HandleGuildReconcileRequested)
	registerHandler(deps, rolesyncevents.MemberReconcileRequestedV1, handlers.HandleMemberReconcileRequested)
	registerHandler(deps, clashevents.ClanWarStateChangedV1, handlers.HandleClanWarStateChanged)
	registerHandler(deps, clashevents.ClanMembersChangedV1, handlers.HandleClanMembersChanged)
	registerHandler(deps, linkevents.AccountChangedV1, handlers.HandleLinkAccountChanged)

	return nil
}

// Close stops the router.
func (r *RolesyncRouter) Close() error {
	return r.Router.Close()
}
