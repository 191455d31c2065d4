package tokenstore

import (
	"context"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
)

// LimitedTokenRepository persists the tokens of credential pairs identified by a pair id.
type LimitedTokenRepository interface {
	GetAccessToken(ctx context.Context, pairID string) (models.AuthToken, error)
	GetRefreshToken(ctx context.Context, pairID string) (models.AuthToken, error)
	SetAccessToken(ctx context.Context, token models.AuthToken) error
	SetRefreshToken(ctx context.Context, token models.AuthToken) error
	RemoveAccessToken(ctx context.Context, pairID string) error
	RemoveRefreshToken(ctx context.Context, pairID string) error
}
