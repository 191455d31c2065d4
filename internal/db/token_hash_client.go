package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenHashClient covers the redis commands the token repository runs. Every token is one hash
// keyed by pair id and token kind, and the key lives as long as the token does.
type TokenHashClient interface {
	// HGetAll reads a stored token.
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	// HSet writes the fields of a token.
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	// Del removes tokens, also used to clear a key before a token is rewritten.
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	// ExpireAt drops the key shortly after the token expires.
	ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd
	// Persist keeps tokens without an expiry.
	Persist(ctx context.Context, key string) *redis.BoolCmd
}

var (
	_ TokenHashClient = redis.UniversalClient(nil)
	_ TokenHashClient = (*MockRedisClient)(nil)
)
