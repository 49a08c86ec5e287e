package rolesyncservice

import (
	"context"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/ratelimit"
	"golang.org/x/time/rate"
)

const (
	// pacerCleanupThreshold is the minimum map size before a cleanup pass runs.
	pacerCleanupThreshold = 200
	// pacerMaxIdleAge is the duration after which an idle guild entry is dropped.
	pacerMaxIdleAge = 30 * time.Minute
)

// GuildPacer allows one member edit per interval per guild.
type GuildPacer struct {
	guilds *ratelimit.Keyed[rolesyncdomain.GuildID]
}

var _ Pacer = (*GuildPacer)(nil)

// NewGuildPacer creates a pacer. A non-positive interval disables pacing.
func NewGuildPacer(interval time.Duration) *GuildPacer {
	r := rate.Inf
	if interval > 0 {
		r = rate.Every(interval)
	}
	return &GuildPacer{
		guilds: ratelimit.NewKeyed[rolesyncdomain.GuildID](r, 1, pacerCleanupThreshold, pacerMaxIdleAge),
	}
}

// Wait blocks until the guild may issue its next edit.
func (p *GuildPacer) Wait(ctx context.Context, guildID rolesyncdomain.GuildID) error {
	return p.guilds.Get(guildID).Wait(ctx)
}
