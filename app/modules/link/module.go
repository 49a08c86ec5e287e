package link

import (
	"context"
	"log/slog"

	linkservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/application"
	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the account link module.
type Module struct {
	LinkService linkservice.Service
	logger      *slog.Logger
}

// NewLinkModule creates the link module. publisher receives
// link.account.changed.v1 and must route on the topic metadata.
func NewLinkModule(ctx context.Context, db bun.IDB, publisher message.Publisher, obs *observability.Observability) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "link"))
	logger.InfoContext(ctx, "link.NewLinkModule called")

	service := linkservice.NewLinkService(linkdb.NewRepository(), db, publisher, logger, obs.Metrics, obs.Tracer)

	return &Module{
		LinkService: service,
		logger:      logger,
	}, nil
}

// Close stops the link module.
func (m *Module) Close() error {
	m.logger.Info("Link module stopped")
	return nil
}
