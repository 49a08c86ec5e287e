package guildservice

import (
	"context"
	"encoding/json"
	"log/slog"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// Resolve builds a fresh configuration snapshot for the guild. Missing and
// unreadable settings fall back to their defaults.
func (s *GuildService) Resolve(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error) {
	return observe(s, ctx, "Resolve", guildID, func(ctx context.Context) (*rolesyncdomain.GuildRoles, error) {
		values, err := s.repo.ListSettings(ctx, s.db, string(guildID))
		if err != nil {
			return nil, err
		}
		clans, err := s.repo.ListClans(ctx, s.db, string(guildID))
		if err != nil {
			return nil, err
		}

		cfg, bad := BuildGuildRoles(guildID, values, clans)
		if len(bad) > 0 {
			s.logger.WarnContext(ctx, "Ignoring unreadable guild settings",
				slog.String("guild_id", string(guildID)),
				slog.Any("keys", bad),
			)
		}
		return cfg, nil
	})
}

// BuildGuildRoles assembles the snapshot from stored rows. It also returns
// the keys whose values could not be decoded.
func BuildGuildRoles(guildID rolesyncdomain.GuildID, values map[string]json.RawMessage, clans []guilddb.GuildClan) (*rolesyncdomain.GuildRoles, []string) {
	r := &settingsReader{values: values}

	cfg := &rolesyncdomain.GuildRoles{
		GuildID:                     guildID,
		TownHallRoles:               r.roleMap(KeyTownHallRoles),
		LeagueRoles:                 r.roleMap(KeyLeagueRoles),
		ClanRoles:                   make(map[rolesyncdomain.ClanTag]rolesyncdomain.ClanRoles, len(clans)),
		GuestRoleID:                 rolesyncdomain.RoleID(r.str(KeyGuestRoleID, "")),
		FamilyRoleID:                rolesyncdomain.RoleID(r.str(KeyFamilyRoleID, "")),
		VerifiedRoleID:              rolesyncdomain.RoleID(r.str(KeyVerifiedRoleID, "")),
		ClanTags:                    []rolesyncdomain.ClanTag{},
		WarClanTags:                 []rolesyncdomain.ClanTag{},
		AllowNonFamilyTownHallRoles: r.boolean(KeyAllowNonFamilyTownHallRoles),
		AllowNonFamilyLeagueRoles:   r.boolean(KeyAllowNonFamilyLeagueRoles),
		VerifiedOnlyClanRoles:       r.boolean(KeyVerifiedOnlyClanRoles),
		Nicknames: rolesyncdomain.NicknameSettings{
			Enabled:         r.boolean(KeyNicknameEnabled),
			FamilyFormat:    r.str(KeyFamilyNicknameFormat, DefaultFamilyNicknameFormat),
			NonFamilyFormat: r.str(KeyNonFamilyNicknameFormat, DefaultNonFamilyNicknameFormat),
		},
	}

	for _, c := range clans {
		tag := rolesyncdomain.ClanTag(c.ClanTag)
		ranks := map[rolesyncdomain.ClanRank]rolesyncdomain.RoleID{}
		for rank, id := range map[rolesyncdomain.ClanRank]string{
			rolesyncdomain.RankLeader:   c.LeaderRoleID,
			rolesyncdomain.RankCoLeader: c.CoLeaderRoleID,
			rolesyncdomain.RankElder:    c.ElderRoleID,
			rolesyncdomain.RankMember:   c.MemberRoleID,
		} {
			if id != "" {
				ranks[rank] = rolesyncdomain.RoleID(id)
			}
		}
		cfg.ClanRoles[tag] = rolesyncdomain.ClanRoles{
			Name:           c.Name,
			Alias:          c.Alias,
			Roles:          ranks,
			EveryoneRoleID: rolesyncdomain.RoleID(c.EveryoneRoleID),
			WarRoleID:      rolesyncdomain.RoleID(c.WarRoleID),
			VerifiedOnly:   c.VerifiedOnly,
		}
		cfg.ClanTags = append(cfg.ClanTags, tag)
		if c.WarRoleID != "" {
			cfg.WarClanTags = append(cfg.WarClanTags, tag)
		}
	}
	return cfg, r.bad
}

// GuildsForClan returns the guilds the clan is linked to.
func (s *GuildService) GuildsForClan(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncdomain.GuildID, error) {
	return observe(s, ctx, "GuildsForClan", "", func(ctx context.Context) ([]rolesyncdomain.GuildID, error) {
		tag := rolesyncdomain.NormalizeTag(string(clanTag))
		ids, err := s.repo.GuildsForClan(ctx, s.db, tag)
		if err != nil {
			return nil, err
		}
		return toGuildIDs(ids), nil
	})
}

// ConfiguredGuilds returns every guild with at least one linked clan.
func (s *GuildService) ConfiguredGuilds(ctx context.Context) ([]rolesyncdomain.GuildID, error) {
	return observe(s, ctx, "ConfiguredGuilds", "", func(ctx context.Context) ([]rolesyncdomain.GuildID, error) {
		ids, err := s.repo.ConfiguredGuilds(ctx, s.db)
		if err != nil {
			return nil, err
		}
		return toGuildIDs(ids), nil
	})
}

func toGuildIDs(ids []string) []rolesyncdomain.GuildID {
	out := make([]rolesyncdomain.GuildID, len(ids))
	for i, id := range ids {
		out[i] = rolesyncdomain.GuildID(id)
	}
	return out
}
