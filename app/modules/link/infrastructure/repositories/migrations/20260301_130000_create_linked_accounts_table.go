package migrations

import (
	"context"
	"fmt"

	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating linked_accounts table...")
			if _, err := db.NewCreateTable().Model((*linkdb.LinkedAccount)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create linked_accounts: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*linkdb.LinkedAccount)(nil)).
				Index("idx_linked_accounts_user_id").
				Column("user_id", "link_order").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create linked_accounts user_id index: %w", err)
			}
			fmt.Println("linked_accounts table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping linked_accounts table...")
			if _, err := db.NewDropTable().Model((*linkdb.LinkedAccount)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("linked_accounts table dropped successfully!")
			return nil
		},
	)
}
