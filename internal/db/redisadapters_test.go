package db

import (
	"context"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey string = "0123456789abcdef0123456789abcdef"

func TestSetGetAccessToken(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	token := models.AuthToken{
		ID:        "pair-1",
		Value:     "access-token-value",
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Type:      models.AccessTokenType,
	}

	err = adapter.SetAccessToken(ctx, token)
	require.NoError(t, err)
	stored, err := adapter.GetAccessToken(ctx, "pair-1")
	require.NoError(t, err)
	assert.Truef(t, cmp.Equal(token, stored), "The two values are not equal, diff is: %s\n", cmp.Diff(token, stored))
}

func TestSetGetRefreshTokenWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	token := models.AuthToken{
		ID:    "pair-1",
		Value: "refresh-token-value",
		Type:  models.RefreshTokenType,
	}

	err = adapter.SetRefreshToken(ctx, token)
	require.NoError(t, err)
	stored, err := adapter.GetRefreshToken(ctx, "pair-1")
	require.NoError(t, err)
	assert.Equal(t, token.Value, stored.Value)
	assert.True(t, stored.ExpiresAt.IsZero())
}

func TestSetWrongTokenType(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	token := models.AuthToken{ID: "pair-1", Value: "value", Type: models.RefreshTokenType}

	err = adapter.SetAccessToken(ctx, token)
	assert.Error(t, err)
	token.Type = models.AccessTokenType
	err = adapter.SetRefreshToken(ctx, token)
	assert.Error(t, err)
}

func TestSetTokenWithoutPairID(t *testing.T) {
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)

	err = adapter.SetAccessToken(context.Background(), models.AuthToken{Value: "value", Type: models.AccessTokenType})

	assert.Error(t, err)
}

func TestGetMissingToken(t *testing.T) {
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)

	_, err = adapter.GetAccessToken(context.Background(), "missing")

	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
}

func TestRemoveTokens(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	require.NoError(t, adapter.SetAccessToken(ctx, models.AuthToken{ID: "pair-1", Value: "a", Type: models.AccessTokenType}))
	require.NoError(t, adapter.SetRefreshToken(ctx, models.AuthToken{ID: "pair-1", Value: "r", Type: models.RefreshTokenType}))

	require.NoError(t, adapter.RemoveAccessToken(ctx, "pair-1"))
	_, err = adapter.GetAccessToken(ctx, "pair-1")
	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
	refresh, err := adapter.GetRefreshToken(ctx, "pair-1")
	require.NoError(t, err)
	assert.Equal(t, "r", refresh.Value)

	require.NoError(t, adapter.RemoveRefreshToken(ctx, "pair-1"))
	_, err = adapter.GetRefreshToken(ctx, "pair-1")
	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
}

func TestExpiredTokenIsGone(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewMockRedisAdapter()
	require.NoError(t, err)
	token := models.AuthToken{
		ID:        "pair-1",
		Value:     "access-token-value",
		ExpiresAt: time.Now().Add(-time.Hour),
		Type:      models.AccessTokenType,
	}

	require.NoError(t, adapter.SetAccessToken(ctx, token))
	_, err = adapter.GetAccessToken(ctx, "pair-1")

	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
}

func TestEncryptedTokens(t *testing.T) {
	ctx := context.Background()
	client := NewMockRedisClient()
	adapter, err := NewRedisAdapter(WithRedisClient(client), WithEncryption(testEncryptionKey))
	require.NoError(t, err)
	token := models.AuthToken{ID: "pair-1", Value: "refresh-token-value", Type: models.RefreshTokenType}

	require.NoError(t, adapter.SetRefreshToken(ctx, token))

	raw, err := client.HGetAll(ctx, "refreshToken:pair-1").Result()
	require.NoError(t, err)
	assert.NotEqual(t, token.Value, raw["Value"])
	assert.Equal(t, string(models.RefreshTokenType), raw["Type"])
	stored, err := adapter.GetRefreshToken(ctx, "pair-1")
	require.NoError(t, err)
	assert.Equal(t, token.Value, stored.Value)
}

func TestNewRedisAdapterFromConfig(t *testing.T) {
	adapter, err := NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: config.DBTypeRedisMock}))
	require.NoError(t, err)
	assert.NotNil(t, adapter)

	_, err = NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: "memcached"}))
	assert.Error(t, err)

	_, err = NewRedisAdapter()
	assert.ErrorContains(t, err, "redis client is not initialized")

	_, err = NewRedisAdapter(WithRedisClient(NewMockRedisClient()), WithEncryption("short"))
	assert.Error(t, err)
}

func TestRotatedTokenKeyExpiry(t *testing.T) {
	ctx := context.Background()
	client := NewMockRedisClient()
	adapter, err := NewRedisAdapter(WithRedisClient(client))
	require.NoError(t, err)
	expiresAt := time.Now().Add(time.Hour)
	key := "accessToken:pair-1"

	require.NoError(t, adapter.SetAccessToken(ctx, models.AuthToken{ID: "pair-1", Value: "a", ExpiresAt: expiresAt, Type: models.AccessTokenType}))
	client.lock.Lock()
	assert.WithinDuration(t, expiresAt.Add(tokenExpiresAtLeeway), client.expireAt[key], time.Second)
	client.lock.Unlock()

	require.NoError(t, adapter.SetAccessToken(ctx, models.AuthToken{ID: "pair-1", Value: "b", Type: models.AccessTokenType}))
	client.lock.Lock()
	_, expiring := client.expireAt[key]
	client.lock.Unlock()
	assert.False(t, expiring)
	stored, err := adapter.GetAccessToken(ctx, "pair-1")
	require.NoError(t, err)
	assert.Equal(t, "b", stored.Value)
}
