package models

import (
	"context"
	"time"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

// CredentialStore holds the access and refresh tokens used by the client.
// Getters return gwerrors.ErrTokenNotFound when the token is absent.
type CredentialStore interface {
	AccessTokenGetter
	AccessTokenSetter
	AccessTokenRemover
	RefreshTokenGetter
	RefreshTokenSetter
	RefreshTokenRemover
	AccessTokenExpirationGetter
}

type AccessTokenGetter interface {
	GetAccessToken(ctx context.Context) (string, error)
}

type AccessTokenSetter interface {
	SetAccessToken(ctx context.Context, value string) error
}

type AccessTokenRemover interface {
	RemoveAccessToken(ctx context.Context) error
}

type RefreshTokenGetter interface {
	GetRefreshToken(ctx context.Context) (string, error)
}

type RefreshTokenSetter interface {
	SetRefreshToken(ctx context.Context, value string) error
}

type RefreshTokenRemover interface {
	RemoveRefreshToken(ctx context.Context) error
}

// AccessTokenExpirationGetter returns the expiration of the current access token,
// the zero time is returned when it is unknown or there is no access token.
type AccessTokenExpirationGetter interface {
	GetAccessTokenExpiration(ctx context.Context) (time.Time, error)
}
