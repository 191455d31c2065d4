package tokenstore

import (
	"fmt"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiration reads the exp claim of a JWT without verifying its signature. The zero time is
// returned for tokens without an exp claim.
func TokenExpiration(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", gwerrors.ErrTokenParse, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
