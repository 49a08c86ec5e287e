package rolesyncgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultLease bounds how long a key survives a replica that crashed mid-run.
const DefaultLease = time.Hour

// coolingValue marks a key whose run has finished.
const coolingValue = "cooling"

// RedisGate is a Gate shared by every replica. Keys are set with SET NX and a
// lease, and are rewritten to expire after the cool-down on release.
type RedisGate struct {
	client redis.UniversalClient
	prefix string
	lease  time.Duration
}

var _ rolesyncservice.Gate = (*RedisGate)(nil)

// NewRedisGate creates a gate. A non-positive lease uses DefaultLease.
func NewRedisGate(client redis.UniversalClient, prefix string, lease time.Duration) *RedisGate {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisGate{client: client, prefix: prefix, lease: lease}
}

func (g *RedisGate) key(guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) string {
	return g.prefix + rolesyncservice.DedupKey(guildID, trigger)
}

func (g *RedisGate) TryAdmit(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(guildID, trigger), time.Now().UTC().Format(time.RFC3339), g.lease).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release shortens the key's lifetime to after, or deletes it when after is
// not positive.
func (g *RedisGate) Release(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger, after time.Duration) error {
	key := g.key(guildID, trigger)
	if after <= 0 {
		if err := g.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	}
	if err := g.client.SetXX(ctx, key, coolingValue, after).Err(); err != nil {
		return fmt.Errorf("redis set cooling: %w", err)
	}
	return nil
}

// Cooling reports whether the key is held by a released run.
func (g *RedisGate) Cooling(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	v, err := g.client.Get(ctx, g.key(guildID, trigger)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	return v == coolingValue, nil
}

// NewClient parses url and pings the server. An empty url returns nil.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
