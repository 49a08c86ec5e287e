package guild

import (
	"context"
	"log/slog"

	guildservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/application"
	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/uptrace/bun"
)

// Module represents the guild configuration module. It has no event handlers;
// the rolesync module reads configuration through GuildService.
type Module struct {
	GuildService guildservice.Service
	logger       *slog.Logger
}

// NewGuildModule creates a new instance of the Guild module.
func NewGuildModule(ctx context.Context, db bun.IDB, obs *observability.Observability) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "guild"))
	logger.InfoContext(ctx, "guild.NewGuildModule called")

	service := guildservice.NewGuildService(guilddb.NewRepository(), db, logger, obs.Metrics, obs.Tracer)

	return &Module{
		GuildService: service,
		logger:       logger,
	}, nil
}

// Close stops the guild module.
func (m *Module) Close() error {
	m.logger.Info("Guild module stopped")
	return nil
}
