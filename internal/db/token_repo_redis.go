package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
)

const (
	accessTokenPrefix  string = "accessToken"
	refreshTokenPrefix string = "refreshToken"
)

const tokenExpiresAtLeeway time.Duration = 10 * time.Second

// GetAccessToken reads the access token of a credential pair from Redis
func (r RedisAdapter) GetAccessToken(ctx context.Context, pairID string) (models.AuthToken, error) {
	return r.getAuthToken(ctx, r.accessTokenKey(pairID))
}

// GetRefreshToken reads the refresh token of a credential pair from Redis
func (r RedisAdapter) GetRefreshToken(ctx context.Context, pairID string) (models.AuthToken, error) {
	return r.getAuthToken(ctx, r.refreshTokenKey(pairID))
}

// SetAccessToken writes the access token of a credential pair to Redis. If the token has an
// expiration the key expires shortly after it.
func (r RedisAdapter) SetAccessToken(ctx context.Context, token models.AuthToken) error {
	if token.Type != models.AccessTokenType {
		return fmt.Errorf("token is not of the right type")
	}
	return r.setAuthToken(ctx, token)
}

// SetRefreshToken writes the refresh token of a credential pair to Redis
func (r RedisAdapter) SetRefreshToken(ctx context.Context, token models.AuthToken) error {
	if token.Type != models.RefreshTokenType {
		return fmt.Errorf("token is not of the right type")
	}
	return r.setAuthToken(ctx, token)
}

func (r RedisAdapter) RemoveAccessToken(ctx context.Context, pairID string) error {
	return r.rdb.Del(ctx, r.accessTokenKey(pairID)).Err()
}

func (r RedisAdapter) RemoveRefreshToken(ctx context.Context, pairID string) error {
	return r.rdb.Del(ctx, r.refreshTokenKey(pairID)).Err()
}

func (RedisAdapter) accessTokenKey(pairID string) string {
	return accessTokenPrefix + ":" + pairID
}

func (RedisAdapter) refreshTokenKey(pairID string) string {
	return refreshTokenPrefix + ":" + pairID
}

func (r RedisAdapter) getTokenKey(token models.AuthToken) string {
	switch token.Type {
	case models.AccessTokenType:
		return r.accessTokenKey(token.ID)
	case models.RefreshTokenType:
		return r.refreshTokenKey(token.ID)
	default:
		return "unknown:" + token.ID
	}
}

// getAuthToken reads a specific token from redis, decrypting if necessary.
func (r RedisAdapter) getAuthToken(ctx context.Context, key string) (models.AuthToken, error) {
	output := models.AuthToken{}
	raw, err := r.rdb.HGetAll(
		ctx,
		key,
	).Result()
	if err != nil {
		return output, err
	}

	err = r.deserializeToStruct(raw, &output)
	if err != nil {
		if errors.Is(err, gwerrors.ErrMissingDBResource) {
			err = gwerrors.ErrTokenNotFound
		}
		return models.AuthToken{}, err
	}

	decToken, err := output.Decrypt(r.encryptor)
	if err != nil {
		return models.AuthToken{}, err
	}
	return decToken, nil
}

func (r RedisAdapter) setAuthToken(ctx context.Context, token models.AuthToken) error {
	if token.ID == "" {
		return fmt.Errorf("the token has no credential pair id")
	}

	encToken, err := token.Encrypt(r.encryptor)
	if err != nil {
		return err
	}

	slog.Debug(
		"TOKEN STORE",
		"message",
		"saving token",
		"token",
		token,
	)

	key := r.getTokenKey(token)
	// the whole hash is replaced so that stale fields never survive a rotation
	err = r.rdb.Del(ctx, key).Err()
	if err != nil {
		return err
	}
	err = r.rdb.HSet(
		ctx,
		key,
		r.serializeStruct(encToken)...,
	).Err()
	if err != nil {
		return err
	}
	return r.setAuthTokenExpiry(ctx, key, token.ExpiresAt)
}

func (r RedisAdapter) setAuthTokenExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		return r.rdb.Persist(ctx, key).Err()
	}
	return r.rdb.ExpireAt(ctx, key, expiresAt.Add(tokenExpiresAtLeeway)).Err()
}
