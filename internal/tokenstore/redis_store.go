package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/db"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
)

// RedisStore keeps one credential pair in a token repository so that it survives restarts
// of the process.
type RedisStore struct {
	PairID string

	tokenRepo LimitedTokenRepository
}

func (r *RedisStore) GetAccessToken(ctx context.Context) (string, error) {
	token, err := r.tokenRepo.GetAccessToken(ctx, r.PairID)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

func (r *RedisStore) SetAccessToken(ctx context.Context, value string) error {
	expiresAt, err := TokenExpiration(value)
	if err != nil {
		slog.Debug("TOKEN STORE", "message", "access token is not a JWT, storing it without expiration", "pairID", r.PairID)
	}
	return r.tokenRepo.SetAccessToken(ctx, models.AuthToken{
		ID:        r.PairID,
		Value:     value,
		ExpiresAt: expiresAt,
		Type:      models.AccessTokenType,
	})
}

func (r *RedisStore) RemoveAccessToken(ctx context.Context) error {
	return r.tokenRepo.RemoveAccessToken(ctx, r.PairID)
}

func (r *RedisStore) GetRefreshToken(ctx context.Context) (string, error) {
	token, err := r.tokenRepo.GetRefreshToken(ctx, r.PairID)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

func (r *RedisStore) SetRefreshToken(ctx context.Context, value string) error {
	return r.tokenRepo.SetRefreshToken(ctx, models.AuthToken{
		ID:    r.PairID,
		Value: value,
		Type:  models.RefreshTokenType,
	})
}

func (r *RedisStore) RemoveRefreshToken(ctx context.Context) error {
	return r.tokenRepo.RemoveRefreshToken(ctx, r.PairID)
}

func (r *RedisStore) GetAccessTokenExpiration(ctx context.Context) (time.Time, error) {
	token, err := r.tokenRepo.GetAccessToken(ctx, r.PairID)
	if err != nil {
		if errors.Is(err, gwerrors.ErrTokenNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return token.ExpiresAt, nil
}

type RedisStoreOption func(*RedisStore) error

func WithTokenRepository(repo LimitedTokenRepository) RedisStoreOption {
	return func(r *RedisStore) error {
		r.tokenRepo = repo
		return nil
	}
}

func WithPairID(pairID string) RedisStoreOption {
	return func(r *RedisStore) error {
		r.PairID = pairID
		return nil
	}
}

// WithConfig connects to the redis database described in the credentials configuration.
func WithConfig(credentialsConfig config.CredentialsConfig) RedisStoreOption {
	return func(r *RedisStore) error {
		options := []db.RedisAdapterOption{db.WithRedisConfig(credentialsConfig.Redis)}
		if credentialsConfig.TokenEncryption.Enabled {
			options = append(options, db.WithEncryption(string(credentialsConfig.TokenEncryption.SecretKey)))
		}
		adapter, err := db.NewRedisAdapter(options...)
		if err != nil {
			return err
		}
		r.tokenRepo = adapter
		if credentialsConfig.PairID != "" {
			r.PairID = credentialsConfig.PairID
		}
		return nil
	}
}

// NewRedisStore creates a store for a single credential pair. A new pair id is generated
// when none is provided.
func NewRedisStore(options ...RedisStoreOption) (*RedisStore, error) {
	r := RedisStore{}
	for _, opt := range options {
		err := opt(&r)
		if err != nil {
			return &RedisStore{}, err
		}
	}
	if r.tokenRepo == nil {
		return &RedisStore{}, fmt.Errorf("token repository not initialized")
	}
	if r.PairID == "" {
		pairID, err := models.ULIDGenerator{}.ID()
		if err != nil {
			return &RedisStore{}, err
		}
		r.PairID = pairID
	}
	return &r, nil
}

// NewCredentialStore creates the credential store selected in the configuration.
func NewCredentialStore(credentialsConfig config.CredentialsConfig) (models.CredentialStore, error) {
	switch credentialsConfig.Type {
	case config.CredentialsTypeMemory:
		return NewMemoryStore(), nil
	case config.CredentialsTypeRedis:
		return NewRedisStore(WithConfig(credentialsConfig))
	default:
		return nil, fmt.Errorf("unknown credentials type %q", credentialsConfig.Type)
	}
}
