package guilddb

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"
)

// Repository defines the contract for guild configuration persistence.
// Every method takes the bun.IDB to run on so callers can pass a transaction.
//
// Error semantics:
//   - ErrNotFound: record does not exist (GetSetting)
//   - ErrNoRowsAffected: DELETE matched no rows
//   - Other errors: infrastructure failures
type Repository interface {
	GetSetting(ctx context.Context, db bun.IDB, guildID, key string) (json.RawMessage, error)
	// ListSettings returns every setting of the guild keyed by name.
	ListSettings(ctx context.Context, db bun.IDB, guildID string) (map[string]json.RawMessage, error)
	// SetSetting inserts or replaces a setting.
	SetSetting(ctx context.Context, db bun.IDB, guildID, key string, value json.RawMessage) error
	DeleteSetting(ctx context.Context, db bun.IDB, guildID, key string) error

	// SaveClan inserts or replaces a clan link.
	SaveClan(ctx context.Context, db bun.IDB, clan *GuildClan) error
	DeleteClan(ctx context.Context, db bun.IDB, guildID, clanTag string) error
	// ListClans returns the guild's clans in link order.
	ListClans(ctx context.Context, db bun.IDB, guildID string) ([]GuildClan, error)
	// GuildsForClan returns the guilds the clan is linked to.
	GuildsForClan(ctx context.Context, db bun.IDB, clanTag string) ([]string, error)
	// ConfiguredGuilds returns every guild with at least one linked clan.
	ConfiguredGuilds(ctx context.Context, db bun.IDB) ([]string, error)
}
