package clash

import (
	"context"
	"errors"
	"log/slog"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

type apiWar struct {
	State string `json:"state"`
	Clan  struct {
		Tag     string `json:"tag"`
		Members []struct {
			Tag string `json:"tag"`
		} `json:"members"`
	} `json:"clan"`
}

// CurrentWar returns the clan's war phase and roster. A private war log
// reads as not in war.
func (c *Client) CurrentWar(ctx context.Context, clanTag rolesyncdomain.ClanTag) (rolesyncdomain.WarState, error) {
	var w apiWar
	err := c.get(ctx, "/clans/"+escapeTag(string(clanTag))+"/currentwar", &w)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Reason == "accessDenied" {
		c.logger.DebugContext(ctx, "War log is private", slog.String("clan_tag", string(clanTag)))
		return rolesyncdomain.WarState{ClanTag: clanTag, Phase: rolesyncdomain.WarNotInWar}, nil
	}
	if err != nil {
		return rolesyncdomain.WarState{}, err
	}

	state := rolesyncdomain.WarState{ClanTag: clanTag, Phase: rolesyncdomain.WarPhase(w.State)}
	switch state.Phase {
	case rolesyncdomain.WarPreparation, rolesyncdomain.WarInWar, rolesyncdomain.WarEnded:
	default:
		state.Phase = rolesyncdomain.WarNotInWar
	}
	for _, m := range w.Clan.Members {
		state.Roster = append(state.Roster, rolesyncdomain.PlayerTag(rolesyncdomain.NormalizeTag(m.Tag)))
	}
	return state, nil
}
