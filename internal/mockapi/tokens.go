package mockapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const DefaultSecret string = "secret"
const DefaultAccessTokenLifetime time.Duration = 5 * time.Minute
const DefaultRefreshTokenLifetime time.Duration = 7 * 24 * time.Hour

// AccessTokenClaims are the claims of the access tokens issued by the mock backend.
type AccessTokenClaims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

type refreshTokenRecord struct {
	userID    int
	expiresAt time.Time
}

// TokenIssuer issues HS256 access tokens and opaque refresh tokens.
type TokenIssuer struct {
	secret               []byte
	accessTokenLifetime  time.Duration
	refreshTokenLifetime time.Duration
	now                  func() time.Time

	lock          sync.Mutex
	refreshTokens map[string]refreshTokenRecord
}

func NewTokenIssuer(secret string, accessTokenLifetime, refreshTokenLifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:               []byte(secret),
		accessTokenLifetime:  accessTokenLifetime,
		refreshTokenLifetime: refreshTokenLifetime,
		now:                  time.Now,
		refreshTokens:        map[string]refreshTokenRecord{},
	}
}

// IssueAccessToken signs an access token for the user. A lifetime of zero or less yields a token
// that is already expired.
func (t *TokenIssuer) IssueAccessToken(userID int) (string, error) {
	return t.IssueAccessTokenWithLifetime(userID, t.accessTokenLifetime)
}

func (t *TokenIssuer) IssueAccessTokenWithLifetime(userID int, lifetime time.Duration) (string, error) {
	now := t.now()
	claims := AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyAccessToken checks the signature and the expiration of the token and returns the user id.
func (t *TokenIssuer) VerifyAccessToken(token string) (int, error) {
	claims := AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid {
		return 0, fmt.Errorf("the token is not valid")
	}
	return claims.UserID, nil
}

func (t *TokenIssuer) IssueRefreshToken(userID int) string {
	t.lock.Lock()
	defer t.lock.Unlock()
	value := uuid.NewString()
	t.refreshTokens[value] = refreshTokenRecord{userID: userID, expiresAt: t.now().Add(t.refreshTokenLifetime)}
	return value
}

// LookupRefreshToken returns the user the refresh token was issued to, unknown and expired tokens
// are rejected.
func (t *TokenIssuer) LookupRefreshToken(value string) (int, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	record, found := t.refreshTokens[value]
	if !found || t.now().After(record.expiresAt) {
		return 0, false
	}
	return record.userID, true
}

func (t *TokenIssuer) RevokeRefreshToken(value string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.refreshTokens, value)
}
