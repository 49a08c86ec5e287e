package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	guildmigrations "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories/migrations"
	linkmigrations "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories/migrations"
)

// AppTables lists the tables owned by the application modules.
var AppTables = []string{"guild_settings", "guild_clans", "linked_accounts"}

// OpenDB opens a bun connection on dsn and applies every module migration.
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping test database: %w", err)
	}
	if err := RunMigrations(ctx, db, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations runs the river schema and all module migrations.
func RunMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	// Initialize migration tables only once - use any migrations to create the table
	if err := migrate.NewMigrator(db, guildmigrations.Migrations).Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	if err := runRiverMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	orderedModules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"guild", guildmigrations.Migrations},
		{"link", linkmigrations.Migrations},
	}
	for _, mod := range orderedModules {
		group, err := migrate.NewMigrator(db, mod.migrations).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
		if group.ID != 0 {
			log.Printf("Ran %s migrations group #%d", mod.name, group.ID)
		}
	}
	return nil
}

func runRiverMigrations(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// TruncateTables truncates the specified tables
func TruncateTables(ctx context.Context, db bun.IDB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf(`"%s"`, table)
	}
	query := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " CASCADE"
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables %v: %w", tables, err)
	}
	return nil
}

// CleanupDatabase truncates all application tables and river jobs.
func CleanupDatabase(ctx context.Context, db bun.IDB) error {
	if err := TruncateTables(ctx, db, AppTables...); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil && !strings.Contains(err.Error(), "does not exist") {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
