// internal/cache/redis.go
//
// Redis client built from the cache-backend descriptor.
//
// Context
// -------
// The runtime owns its own cache connection.  This client exists so the
// `check` command and the /probe endpoint can confirm the descriptor
// points at a reachable Redis with the same host, port, and logical
// database the runtime will use.  Keys are namespaced with the
// descriptor's prefix so probe traffic is recognizable.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdeptTravel/superset-config/internal/config"
)

// NewClient returns a go-redis client for c.  No connection is made until
// the first command.
func NewClient(c config.Cache) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         c.Addr(),
		DB:           c.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     2,
	})
}

// Key joins the descriptor prefix and a logical key.
func Key(prefix, key string) string { return prefix + key }

// Ping round-trips PING and a short-lived prefixed key so both auth and the
// selected database are exercised.
func Ping(ctx context.Context, rc redis.UniversalClient, prefix string) error {
	if err := rc.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	k := Key(prefix, "supersetcfg_probe")
	if err := rc.Set(ctx, k, time.Now().Unix(), 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}
