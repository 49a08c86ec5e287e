package guildservice

import (
	"context"
	"encoding/json"
	"errors"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"github.com/uptrace/bun"
)

// SetSetting validates and stores one setting.
func (s *GuildService) SetSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string, value json.RawMessage) (SettingResult, error) {
	return withTelemetry(s, ctx, "SetSetting", guildID, func(ctx context.Context) (SettingResult, error) {
		if guildID == "" {
			return failure[Setting](ErrInvalidGuildID), nil
		}
		if err := ValidateSetting(key, value); err != nil {
			return failure[Setting](err), nil
		}
		if err := s.repo.SetSetting(ctx, s.db, string(guildID), key, value); err != nil {
			return SettingResult{}, err
		}
		return results.SuccessResult[Setting, error](Setting{GuildID: guildID, Key: key, Value: value}), nil
	})
}

// DeleteSetting resets a setting to its default.
func (s *GuildService) DeleteSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string) (SettingResult, error) {
	return withTelemetry(s, ctx, "DeleteSetting", guildID, func(ctx context.Context) (SettingResult, error) {
		if _, ok := settingKinds[key]; !ok {
			return failure[Setting](ErrUnknownSetting), nil
		}
		err := s.repo.DeleteSetting(ctx, s.db, string(guildID), key)
		if errors.Is(err, guilddb.ErrNoRowsAffected) {
			return failure[Setting](ErrSettingNotFound), nil
		}
		if err != nil {
			return SettingResult{}, err
		}
		return results.SuccessResult[Setting, error](Setting{GuildID: guildID, Key: key}), nil
	})
}

// LinkClan links or re-maps a clan. Linking a guild's first clan also
// defaults verified_only_clan_roles to false when it was never set.
func (s *GuildService) LinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clan ClanLink) (ClanResult, error) {
	return withTelemetry(s, ctx, "LinkClan", guildID, func(ctx context.Context) (ClanResult, error) {
		if guildID == "" {
			return failure[ClanLink](ErrInvalidGuildID), nil
		}
		tag := rolesyncdomain.NormalizeTag(string(clan.ClanTag))
		if len(tag) < 2 {
			return failure[ClanLink](ErrInvalidClanTag), nil
		}
		clan.ClanTag = rolesyncdomain.ClanTag(tag)

		err := s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
			existing, err := s.repo.ListClans(ctx, tx, string(guildID))
			if err != nil {
				return err
			}
			if err := s.repo.SaveClan(ctx, tx, toModel(guildID, clan)); err != nil {
				return err
			}
			if len(existing) > 0 {
				return nil
			}
			_, err = s.repo.GetSetting(ctx, tx, string(guildID), KeyVerifiedOnlyClanRoles)
			if errors.Is(err, guilddb.ErrNotFound) {
				return s.repo.SetSetting(ctx, tx, string(guildID), KeyVerifiedOnlyClanRoles, json.RawMessage(`false`))
			}
			return err
		})
		if err != nil {
			return ClanResult{}, err
		}
		return results.SuccessResult[ClanLink, error](clan), nil
	})
}

// UnlinkClan removes a clan from the guild.
func (s *GuildService) UnlinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clanTag rolesyncdomain.ClanTag) (ClanResult, error) {
	return withTelemetry(s, ctx, "UnlinkClan", guildID, func(ctx context.Context) (ClanResult, error) {
		tag := rolesyncdomain.NormalizeTag(string(clanTag))
		err := s.repo.DeleteClan(ctx, s.db, string(guildID), tag)
		if errors.Is(err, guilddb.ErrNoRowsAffected) {
			return failure[ClanLink](ErrClanNotLinked), nil
		}
		if err != nil {
			return ClanResult{}, err
		}
		return results.SuccessResult[ClanLink, error](ClanLink{ClanTag: rolesyncdomain.ClanTag(tag)}), nil
	})
}

// ListClans returns the guild's clans in link order.
func (s *GuildService) ListClans(ctx context.Context, guildID rolesyncdomain.GuildID) ([]ClanLink, error) {
	return observe(s, ctx, "ListClans", guildID, func(ctx context.Context) ([]ClanLink, error) {
		rows, err := s.repo.ListClans(ctx, s.db, string(guildID))
		if err != nil {
			return nil, err
		}
		out := make([]ClanLink, len(rows))
		for i, r := range rows {
			out[i] = fromModel(r)
		}
		return out, nil
	})
}

func toModel(guildID rolesyncdomain.GuildID, c ClanLink) *guilddb.GuildClan {
	return &guilddb.GuildClan{
		GuildID:        string(guildID),
		ClanTag:        string(c.ClanTag),
		Name:           c.Name,
		Alias:          c.Alias,
		LeaderRoleID:   string(c.LeaderRoleID),
		CoLeaderRoleID: string(c.CoLeaderRoleID),
		ElderRoleID:    string(c.ElderRoleID),
		MemberRoleID:   string(c.MemberRoleID),
		EveryoneRoleID: string(c.EveryoneRoleID),
		WarRoleID:      string(c.WarRoleID),
		VerifiedOnly:   c.VerifiedOnly,
	}
}

func fromModel(m guilddb.GuildClan) ClanLink {
	return ClanLink{
		ClanTag:        rolesyncdomain.ClanTag(m.ClanTag),
		Name:           m.Name,
		Alias:          m.Alias,
		LeaderRoleID:   rolesyncdomain.RoleID(m.LeaderRoleID),
		CoLeaderRoleID: rolesyncdomain.RoleID(m.CoLeaderRoleID),
		ElderRoleID:    rolesyncdomain.RoleID(m.ElderRoleID),
		MemberRoleID:   rolesyncdomain.RoleID(m.MemberRoleID),
		EveryoneRoleID: rolesyncdomain.RoleID(m.EveryoneRoleID),
		WarRoleID:      rolesyncdomain.RoleID(m.WarRoleID),
		VerifiedOnly:   m.VerifiedOnly,
	}
}
