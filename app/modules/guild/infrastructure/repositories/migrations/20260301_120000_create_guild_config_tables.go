package migrations

import (
	"context"
	"fmt"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating guild_settings and guild_clans tables...")
			if _, err := db.NewCreateTable().Model((*guilddb.GuildSetting)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create guild_settings: %w", err)
			}
			if _, err := db.NewCreateTable().Model((*guilddb.GuildClan)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create guild_clans: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*guilddb.GuildClan)(nil)).
				Index("idx_guild_clans_clan_tag").
				Column("clan_tag").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create guild_clans clan_tag index: %w", err)
			}
			fmt.Println("guild config tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping guild config tables...")
			if _, err := db.NewDropTable().Model((*guilddb.GuildClan)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewDropTable().Model((*guilddb.GuildSetting)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("guild config tables dropped successfully!")
			return nil
		},
	)
}
