package rolesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncgate "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/gate"
	rolesyncqueue "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/queue"
	rolesyncrouter "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/router"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/Black-And-White-Club/clan-sync-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// gateLease bounds how long a crashed replica can hold a dedup key.
const gateLease = time.Hour

// Deps are the collaborators the rolesync module reconciles against.
type Deps struct {
	Directory rolesyncservice.MemberDirectory
	Players   rolesyncservice.PlayerSource
	Links     rolesyncservice.LinkStore
	Configs   rolesyncservice.ConfigResolver
	// Guilds feeds the periodic poll.
	Guilds rolesyncqueue.GuildLister
	// Redis shares the dedup gate between replicas. Nil keeps it in memory.
	Redis redis.UniversalClient
}

// Module represents the rolesync module.
type Module struct {
	RolesyncService rolesyncservice.Service
	RolesyncRouter  *rolesyncrouter.RolesyncRouter
	Queue           *rolesyncqueue.Service
	runs            *rolesyncservice.RolesyncService
	logger          *slog.Logger
	cancelFunc      context.CancelFunc
}

// NewRolesyncModule wires the reconciler, registers its handlers on router
// and prepares the poll queue. The queue is started by Run.
func NewRolesyncModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	deps Deps,
	eventBus interface {
		message.Publisher
		message.Subscriber
	},
	router *message.Router,
	routerCtx context.Context,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "rolesync"))
	logger.InfoContext(ctx, "rolesync.NewRolesyncModule called")

	var gate rolesyncservice.Gate = rolesyncservice.NewMemoryGate()
	if deps.Redis != nil {
		gate = rolesyncgate.NewRedisGate(deps.Redis, "rolesync:gate:", gateLease)
		logger.InfoContext(ctx, "Using redis dedup gate")
	}

	reconciler := rolesyncservice.NewReconciler(
		deps.Directory,
		deps.Players,
		deps.Links,
		deps.Configs,
		rolesyncservice.NewGuildPacer(cfg.Sync.EditInterval),
		obs.Metrics,
		logger,
		rolesyncservice.ReconcilerConfig{
			CallTimeout:   cfg.Sync.CallTimeout,
			MaxCandidates: cfg.Sync.MaxCandidates,
		},
	)
	service := rolesyncservice.NewRolesyncService(reconciler, deps.Configs, gate, cfg.Sync.DedupCooldown, cfg.Sync.MaxRunTime, logger, obs.Metrics, obs.Tracer)

	rolesyncRouter := rolesyncrouter.NewRolesyncRouter(logger, router, eventBus, eventBus, obs.Metrics, obs.Tracer)
	if err := rolesyncRouter.Configure(routerCtx, service); err != nil {
		return nil, fmt.Errorf("failed to configure rolesync router: %w", err)
	}

	queue, err := rolesyncqueue.NewService(ctx, rolesyncqueue.Config{
		DSN:          cfg.Postgres.DSN,
		PollInterval: cfg.Sync.PollInterval,
		MaxWorkers:   cfg.Sync.PollWorkers,
	}, deps.Guilds, eventBus, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create rolesync queue: %w", err)
	}

	return &Module{
		RolesyncService: service,
		RolesyncRouter:  rolesyncRouter,
		Queue:           queue,
		runs:            service,
		logger:          logger,
	}, nil
}

// Run starts the poll queue and blocks until ctx is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	m.logger.InfoContext(ctx, "Starting rolesync module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if err := m.Queue.Start(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to start rolesync queue", slog.Any("error", err))
		return
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Rolesync module goroutine stopped")
}

// Close stops the queue, cancels runs in flight and closes the router.
func (m *Module) Close() error {
	m.logger.Info("Stopping rolesync module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.runs != nil {
		m.runs.Stop()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.Queue.Stop(stopCtx); err != nil {
		m.logger.Error("Error stopping rolesync queue", slog.Any("error", err))
	}

	if m.RolesyncRouter != nil {
		if err := m.RolesyncRouter.Close(); err != nil {
			m.logger.Error("Error closing RolesyncRouter from module", slog.Any("error", err))
			return fmt.Errorf("error closing RolesyncRouter: %w", err)
		}
	}
	m.logger.Info("Rolesync module stopped")
	return nil
}
