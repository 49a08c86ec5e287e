package guilddb

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// GuildSetting is one configuration key of a guild. Values are JSON encoded.
type GuildSetting struct {
	bun.BaseModel `bun:"table:guild_settings,alias:gs"`
	GuildID       string          `bun:"guild_id,pk,notnull,type:varchar(20)"`
	Key           string          `bun:"key,pk,notnull,type:varchar(64)"`
	Value         json.RawMessage `bun:"value,notnull,type:jsonb"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GuildClan links a game clan to a guild together with its role mapping.
type GuildClan struct {
	bun.BaseModel  `bun:"table:guild_clans,alias:gc"`
	GuildID        string    `bun:"guild_id,pk,notnull,type:varchar(20)"`
	ClanTag        string    `bun:"clan_tag,pk,notnull,type:varchar(16)"`
	Name           string    `bun:"name,notnull,default:''"`
	Alias          string    `bun:"alias,notnull,default:''"`
	LeaderRoleID   string    `bun:"leader_role_id,nullzero,type:varchar(20)"`
	CoLeaderRoleID string    `bun:"co_leader_role_id,nullzero,type:varchar(20)"`
	ElderRoleID    string    `bun:"elder_role_id,nullzero,type:varchar(20)"`
	MemberRoleID   string    `bun:"member_role_id,nullzero,type:varchar(20)"`
	EveryoneRoleID string    `bun:"everyone_role_id,nullzero,type:varchar(20)"`
	WarRoleID      string    `bun:"war_role_id,nullzero,type:varchar(20)"`
	VerifiedOnly   bool      `bun:"verified_only,notnull,default:false"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
