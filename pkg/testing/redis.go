package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClientAndCtx connects to the redis reachable through
// PUSHUPS_REDIS_HOST / PUSHUPS_REDIS_PORT / PUSHUPS_REDIS_PASS, localhost:6379 by default.
// The keys written under keyPrefix are removed when the test finishes.
func GetRedisClientAndCtx(t *testing.T, keyPrefix string) (context.Context, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	redisHost := os.Getenv("PUSHUPS_REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("PUSHUPS_REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}
	t.Logf("using redis: [%s:%s]", redisHost, redisPort)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(redisHost, redisPort),
		Password: os.Getenv("PUSHUPS_REDIS_PASS"),
		DB:       0, // use default DB
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()

		iter := rdb.Scan(cleanupCtx, 0, keyPrefix+"*", 100).Iterator()
		for iter.Next(cleanupCtx) {
			rdb.Del(cleanupCtx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			t.Logf("redis cleanup scan: %s", err)
		}
		if err := rdb.Close(); err != nil {
			t.Logf("redis close: %s", err)
		}
	})

	return ctx, rdb
}
