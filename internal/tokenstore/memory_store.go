package tokenstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
)

// MemoryStore keeps the credential pair in memory. The expiration of the access token is read
// from its exp claim.
type MemoryStore struct {
	lock         sync.RWMutex
	accessToken  *string
	refreshToken *string
}

func (m *MemoryStore) GetAccessToken(_ context.Context) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.accessToken == nil {
		return "", gwerrors.ErrTokenNotFound
	}
	return *m.accessToken, nil
}

func (m *MemoryStore) SetAccessToken(_ context.Context, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.accessToken = &value
	return nil
}

func (m *MemoryStore) RemoveAccessToken(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.accessToken = nil
	return nil
}

func (m *MemoryStore) GetRefreshToken(_ context.Context) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.refreshToken == nil {
		return "", gwerrors.ErrTokenNotFound
	}
	return *m.refreshToken, nil
}

func (m *MemoryStore) SetRefreshToken(_ context.Context, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.refreshToken = &value
	return nil
}

func (m *MemoryStore) RemoveRefreshToken(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.refreshToken = nil
	return nil
}

func (m *MemoryStore) GetAccessTokenExpiration(ctx context.Context) (time.Time, error) {
	token, err := m.GetAccessToken(ctx)
	if err != nil {
		return time.Time{}, nil
	}
	expiresAt, err := TokenExpiration(token)
	if err != nil {
		slog.Debug("TOKEN STORE", "message", "cannot read the access token expiration", "error", err)
		return time.Time{}, err
	}
	return expiresAt, nil
}

type MemoryStoreOption func(*MemoryStore)

func WithTokens(accessToken, refreshToken string) MemoryStoreOption {
	return func(m *MemoryStore) {
		if accessToken != "" {
			m.accessToken = &accessToken
		}
		if refreshToken != "" {
			m.refreshToken = &refreshToken
		}
	}
}

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	m := MemoryStore{}
	for _, opt := range options {
		opt(&m)
	}
	return &m
}
