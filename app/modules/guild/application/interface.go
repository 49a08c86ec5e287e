package guildservice

import (
	"context"
	"encoding/json"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
)

// Setting is one stored guild setting.
type Setting struct {
	GuildID rolesyncdomain.GuildID `json:"guild_id"`
	Key     string                 `json:"key"`
	// Value is nil after a delete.
	Value json.RawMessage `json:"value,omitempty"`
}

// ClanLink is a clan linked to a guild with its role mapping.
type ClanLink struct {
	ClanTag        rolesyncdomain.ClanTag `json:"clan_tag"`
	Name           string                 `json:"name"`
	Alias          string                 `json:"alias,omitempty"`
	LeaderRoleID   rolesyncdomain.RoleID  `json:"leader_role_id,omitempty"`
	CoLeaderRoleID rolesyncdomain.RoleID  `json:"co_leader_role_id,omitempty"`
	ElderRoleID    rolesyncdomain.RoleID  `json:"elder_role_id,omitempty"`
	MemberRoleID   rolesyncdomain.RoleID  `json:"member_role_id,omitempty"`
	EveryoneRoleID rolesyncdomain.RoleID  `json:"everyone_role_id,omitempty"`
	WarRoleID      rolesyncdomain.RoleID  `json:"war_role_id,omitempty"`
	VerifiedOnly   bool                   `json:"verified_only"`
}

// SettingResult and ClanResult carry validation failures as their failure payload.
type (
	SettingResult = results.OperationResult[Setting, error]
	ClanResult    = results.OperationResult[ClanLink, error]
)

// Service defines the guild configuration operations. It also implements the
// rolesync ConfigResolver.
type Service interface {
	Resolve(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error)
	GuildsForClan(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncdomain.GuildID, error)
	ConfiguredGuilds(ctx context.Context) ([]rolesyncdomain.GuildID, error)

	SetSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string, value json.RawMessage) (SettingResult, error)
	DeleteSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string) (SettingResult, error)

	LinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clan ClanLink) (ClanResult, error)
	UnlinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clanTag rolesyncdomain.ClanTag) (ClanResult, error)
	ListClans(ctx context.Context, guildID rolesyncdomain.GuildID) ([]ClanLink, error)
}
