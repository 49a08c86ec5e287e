// Package containers starts the backing services used by container tests.
// Callers terminate the returned containers.
package containers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 45 * time.Second

// abort terminates c, which may be a nil container, and wraps err with step.
func abort(_ context.Context, c testcontainers.Container, step string, err error) error {
	if terr := testcontainers.TerminateContainer(c); terr != nil {
		slog.Warn("Failed to terminate container", slog.String("step", step), slog.Any("error", terr))
	}
	return fmt.Errorf("%s: %w", step, err)
}

// SetupPostgresContainer starts Postgres and returns a DSN with TLS disabled.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clansync"),
		postgres.WithUsername("clansync"),
		postgres.WithPassword("clansync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, "", abort(ctx, pg, "start postgres", err)
	}

	raw, err := pg.ConnectionString(ctx)
	if err != nil {
		return nil, "", abort(ctx, pg, "postgres connection string", err)
	}
	dsn, err := url.Parse(raw)
	if err != nil {
		return nil, "", abort(ctx, pg, "parse postgres dsn", err)
	}
	q := dsn.Query()
	q.Set("sslmode", "disable")
	dsn.RawQuery = q.Encode()

	return pg, dsn.String(), nil
}

// SetupNatsContainer starts NATS with JetStream and returns its URL.
func SetupNatsContainer(ctx context.Context) (*tcnats.NATSContainer, string, error) {
	nc, err := tcnats.Run(ctx,
		"nats:2.10-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(startupTimeout),
		),
	)
	if err != nil {
		return nil, "", abort(ctx, nc, "start nats", err)
	}
	natsURL, err := nc.ConnectionString(ctx)
	if err != nil {
		return nil, "", abort(ctx, nc, "nats connection string", err)
	}
	return nc, natsURL, nil
}

// SetupRedisContainer starts Redis and returns a connected client.
func SetupRedisContainer(ctx context.Context) (*tcredis.RedisContainer, *redis.Client, error) {
	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, nil, abort(ctx, rc, "start redis", err)
	}
	addr, err := rc.ConnectionString(ctx)
	if err != nil {
		return nil, nil, abort(ctx, rc, "redis connection string", err)
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, nil, abort(ctx, rc, "parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, abort(ctx, rc, "ping redis", err)
	}
	return rc, client, nil
}
