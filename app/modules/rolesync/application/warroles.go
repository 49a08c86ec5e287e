package rolesyncservice

import (
	"context"
	"log/slog"
	"sort"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"golang.org/x/sync/errgroup"
)

const warLookupConcurrency = 4

// WarRoleLookup maps roster members of clans in an active war to the clan.
type WarRoleLookup struct {
	players     PlayerSource
	logger      *slog.Logger
	callTimeout time.Duration
}

func NewWarRoleLookup(players PlayerSource, logger *slog.Logger, callTimeout time.Duration) *WarRoleLookup {
	return &WarRoleLookup{players: players, logger: logger, callTimeout: callTimeout}
}

// Build fetches the current war of every clan. Clans whose war cannot be
// fetched contribute nothing. A tag on two rosters maps to the clan that sorts
// first.
func (w *WarRoleLookup) Build(ctx context.Context, clanTags []rolesyncdomain.ClanTag) map[rolesyncdomain.PlayerTag]rolesyncdomain.ClanTag {
	tags := append([]rolesyncdomain.ClanTag(nil), clanTags...)
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	wars := make([]rolesyncdomain.WarState, len(tags))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warLookupConcurrency)
	for i, tag := range tags {
		g.Go(func() error {
			callCtx, cancel := withTimeout(gctx, w.callTimeout)
			defer cancel()

			war, err := w.players.CurrentWar(callCtx, tag)
			if err != nil {
				w.logger.WarnContext(ctx, "Skipping war lookup for clan",
					slog.String("clan_tag", string(tag)),
					slog.Any("error", err),
				)
				return nil
			}
			wars[i] = war
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[rolesyncdomain.PlayerTag]rolesyncdomain.ClanTag)
	for i, war := range wars {
		if !war.Active() {
			continue
		}
		for _, p := range war.Roster {
			if _, taken := out[p]; !taken {
				out[p] = tags[i]
			}
		}
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
