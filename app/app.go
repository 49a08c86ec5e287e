package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/app/eventbus"
	"github.com/Black-And-White-Club/clan-sync-bot/app/httpapi"
	"github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild"
	"github.com/Black-And-White-Club/clan-sync-bot/app/modules/link"
	"github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync"
	rolesyncgate "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/gate"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/Black-And-White-Club/clan-sync-bot/app/platform/clash"
	"github.com/Black-And-White-Club/clan-sync-bot/app/platform/discord"
	"github.com/Black-And-White-Club/clan-sync-bot/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const serviceName = "clan-sync-bot"

// App holds the process wide resources and modules.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router
	Redis         *redis.Client

	GuildModule    *guild.Module
	LinkModule     *link.Module
	RolesyncModule *rolesync.Module

	httpServer *http.Server
	wg         sync.WaitGroup
}

// Initialize connects every backing service and wires the modules.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.Config
	obs := observability.Init(observability.Config{
		ServiceName: serviceName,
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	})
	app.Observability = obs
	logger := obs.Logger

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	app.DB = bun.NewDB(sqldb, pgdialect.New())
	if err := app.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:        cfg.NATS.URL,
		QueueGroup: cfg.NATS.QueueGroup,
		AckWait:    cfg.Sync.MaxRunTime + time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create message router: %w", err)
	}
	app.Router = router

	redisClient, err := rolesyncgate.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.Redis = redisClient

	if app.GuildModule, err = guild.NewGuildModule(ctx, app.DB, obs); err != nil {
		return fmt.Errorf("failed to initialize guild module: %w", err)
	}
	if app.LinkModule, err = link.NewLinkModule(ctx, app.DB, bus, obs); err != nil {
		return fmt.Errorf("failed to initialize link module: %w", err)
	}

	directory := discord.NewClient(discord.Config{
		BaseURL: cfg.Discord.BaseURL,
		Token:   cfg.Discord.Token,
		Timeout: cfg.Sync.CallTimeout,
	}, logger)
	players := clash.NewClient(clash.Config{
		BaseURL:     cfg.Clash.BaseURL,
		Token:       cfg.Clash.Token,
		Timeout:     cfg.Sync.CallTimeout,
		Concurrency: cfg.Clash.Concurrency,
	}, logger)

	deps := rolesync.Deps{
		Directory: directory,
		Players:   players,
		Links:     app.LinkModule.LinkService,
		Configs:   app.GuildModule.GuildService,
		Guilds:    app.GuildModule.GuildService,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	if app.RolesyncModule, err = rolesync.NewRolesyncModule(ctx, cfg, obs, deps, bus, router, ctx); err != nil {
		return fmt.Errorf("failed to initialize rolesync module: %w", err)
	}

	checks := map[string]func(context.Context) error{
		"postgres": app.DB.PingContext,
		"queue":    app.RolesyncModule.Queue.HealthCheck,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	app.httpServer = &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Rolesync:  app.RolesyncModule.RolesyncService,
			Guilds:    app.GuildModule.GuildService,
			Links:     app.LinkModule.LinkService,
			Directory: directory,
			Publisher: bus,
			Gatherer:  obs.Registry,
			Checks:    checks,
			JWTSecret: cfg.JWT.Secret,
			Logger:    logger,
			Tracer:    obs.Tracer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the router, the modules and the HTTP API and blocks until ctx is
// canceled or one of them fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("message router: %w", err)
		}
	}()
	<-app.Router.Running()

	app.wg.Add(1)
	go app.RolesyncModule.Run(ctx, &app.wg)

	go func() {
		logger.InfoContext(ctx, "Starting HTTP API", slog.String("address", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		logger.ErrorContext(ctx, "Component failed", slog.Any("error", err))
		return err
	}
}

// Close shuts everything down in reverse start order.
func (app *App) Close() error {
	logger := app.Observability.Logger
	var errs []error

	if app.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
		cancel()
	}
	if app.RolesyncModule != nil {
		if err := app.RolesyncModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.wg.Wait()

	if app.LinkModule != nil {
		_ = app.LinkModule.Close()
	}
	if app.GuildModule != nil {
		_ = app.GuildModule.Close()
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}

	logger.Info("Application stopped")
	return errors.Join(errs...)
}
