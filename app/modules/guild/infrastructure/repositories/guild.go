package guilddb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements Repository.
type Impl struct{}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new guild repository.
func NewRepository() *Impl {
	return &Impl{}
}

func (r *Impl) GetSetting(ctx context.Context, db bun.IDB, guildID, key string) (json.RawMessage, error) {
	var setting GuildSetting
	err := db.NewSelect().
		Model(&setting).
		Where("guild_id = ?", guildID).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("guilddb.GetSetting: %w", err)
	}
	return setting.Value, nil
}

func (r *Impl) ListSettings(ctx context.Context, db bun.IDB, guildID string) (map[string]json.RawMessage, error) {
	var settings []GuildSetting
	err := db.NewSelect().
		Model(&settings).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("guilddb.ListSettings: %w", err)
	}
	out := make(map[string]json.RawMessage, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

func (r *Impl) SetSetting(ctx context.Context, db bun.IDB, guildID, key string, value json.RawMessage) error {
	setting := &GuildSetting{
		GuildID:   guildID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.NewInsert().
		Model(setting).
		On("CONFLICT (guild_id, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.SetSetting: %w", err)
	}
	return nil
}

func (r *Impl) DeleteSetting(ctx context.Context, db bun.IDB, guildID, key string) error {
	res, err := db.NewDelete().
		Model((*GuildSetting)(nil)).
		Where("guild_id = ?", guildID).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.DeleteSetting: %w", err)
	}
	return requireAffected(res)
}

func (r *Impl) SaveClan(ctx context.Context, db bun.IDB, clan *GuildClan) error {
	clan.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(clan).
		On("CONFLICT (guild_id, clan_tag) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("alias = EXCLUDED.alias").
		Set("leader_role_id = EXCLUDED.leader_role_id").
		Set("co_leader_role_id = EXCLUDED.co_leader_role_id").
		Set("elder_role_id = EXCLUDED.elder_role_id").
		Set("member_role_id = EXCLUDED.member_role_id").
		Set("everyone_role_id = EXCLUDED.everyone_role_id").
		Set("war_role_id = EXCLUDED.war_role_id").
		Set("verified_only = EXCLUDED.verified_only").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.SaveClan: %w", err)
	}
	return nil
}

func (r *Impl) DeleteClan(ctx context.Context, db bun.IDB, guildID, clanTag string) error {
	res, err := db.NewDelete().
		Model((*GuildClan)(nil)).
		Where("guild_id = ?", guildID).
		Where("clan_tag = ?", clanTag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guilddb.DeleteClan: %w", err)
	}
	return requireAffected(res)
}

func (r *Impl) ListClans(ctx context.Context, db bun.IDB, guildID string) ([]GuildClan, error) {
	var clans []GuildClan
	err := db.NewSelect().
		Model(&clans).
		Where("guild_id = ?", guildID).
		Order("created_at ASC", "clan_tag ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("guilddb.ListClans: %w", err)
	}
	return clans, nil
}

func (r *Impl) GuildsForClan(ctx context.Context, db bun.IDB, clanTag string) ([]string, error) {
	var guildIDs []string
	err := db.NewSelect().
		Model((*GuildClan)(nil)).
		Column("guild_id").
		Where("clan_tag = ?", clanTag).
		Order("guild_id ASC").
		Scan(ctx, &guildIDs)
	if err != nil {
		return nil, fmt.Errorf("guilddb.GuildsForClan: %w", err)
	}
	return guildIDs, nil
}

func (r *Impl) ConfiguredGuilds(ctx context.Context, db bun.IDB) ([]string, error) {
	var guildIDs []string
	err := db.NewSelect().
		Model((*GuildClan)(nil)).
		ColumnExpr("DISTINCT guild_id").
		Order("guild_id ASC").
		Scan(ctx, &guildIDs)
	if err != nil {
		return nil, fmt.Errorf("guilddb.ConfiguredGuilds: %w", err)
	}
	return guildIDs, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
