package clash

import (
	"context"
	"errors"
	"sync"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"golang.org/x/sync/errgroup"
)

type apiPlayer struct {
	Tag           string `json:"tag"`
	Name          string `json:"name"`
	TownHallLevel int    `json:"townHallLevel"`
	Role          string `json:"role"`
	League        *struct {
		ID int `json:"id"`
	} `json:"league"`
	Clan *struct {
		Tag  string `json:"tag"`
		Name string `json:"name"`
	} `json:"clan"`
}

func (p apiPlayer) toDomain() rolesyncdomain.PlayerSnapshot {
	snap := rolesyncdomain.PlayerSnapshot{
		Tag:           rolesyncdomain.PlayerTag(rolesyncdomain.NormalizeTag(p.Tag)),
		Name:          p.Name,
		TownHallLevel: p.TownHallLevel,
	}
	if p.League != nil {
		snap.LeagueID = p.League.ID
	}
	if p.Clan != nil {
		snap.ClanTag = rolesyncdomain.ClanTag(rolesyncdomain.NormalizeTag(p.Clan.Tag))
		snap.ClanName = p.Clan.Name
		snap.ClanRank = rolesyncdomain.ParseClanRank(p.Role)
	}
	return snap
}

// Players fetches tags in parallel. Unknown tags are returned as missing;
// any other failure fails the whole lookup.
func (c *Client) Players(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.PlayerSnapshot, []rolesyncdomain.PlayerTag, error) {
	var (
		mu      sync.Mutex
		found   = make([]rolesyncdomain.PlayerSnapshot, 0, len(tags))
		missing []rolesyncdomain.PlayerTag
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, tag := range tags {
		g.Go(func() error {
			var p apiPlayer
			err := c.get(gctx, "/players/"+escapeTag(string(tag)), &p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, rolesyncservice.ErrNotFound):
				missing = append(missing, tag)
				return nil
			case err != nil:
				return err
			}
			found = append(found, p.toDomain())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return found, missing, nil
}
