package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/uptrace/bun"
)

// NewPostgres starts a migrated Postgres container for t. The test is skipped
// in short mode or when no container provider is available.
func NewPostgres(t *testing.T) (*bun.DB, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	db, err := OpenDB(ctx, dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dsn
}
