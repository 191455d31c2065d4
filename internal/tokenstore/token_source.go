package tokenstore

import (
	"context"
	"errors"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
	"golang.org/x/oauth2"
)

// Refresher refreshes the stored access token when it is about to expire.
type Refresher interface {
	RefreshIfExpiring(ctx context.Context) (bool, error)
}

// TokenSource exposes a credential store as an oauth2.TokenSource so that the stored tokens can
// be used by HTTP clients that do not go through the request queue.
type TokenSource struct {
	ctx       context.Context
	store     models.CredentialStore
	refresher Refresher
}

func (t *TokenSource) Token() (*oauth2.Token, error) {
	if t.refresher != nil {
		if _, err := t.refresher.RefreshIfExpiring(t.ctx); err != nil {
			return nil, err
		}
	}
	access, err := t.store.GetAccessToken(t.ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := t.store.GetRefreshToken(t.ctx)
	if err != nil && !errors.Is(err, gwerrors.ErrTokenNotFound) {
		return nil, err
	}
	expiresAt, err := t.store.GetAccessTokenExpiration(t.ctx)
	if err != nil && !errors.Is(err, gwerrors.ErrTokenParse) {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
		Expiry:       expiresAt,
	}, nil
}

// NewTokenSource creates a token source reading from the store. The refresher is optional.
func NewTokenSource(ctx context.Context, store models.CredentialStore, refresher Refresher) *TokenSource {
	return &TokenSource{ctx: ctx, store: store, refresher: refresher}
}
