package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry claim from an access token without
// verifying its signature. The client never holds the signing key; the
// claim is only used for local display, never for authorization decisions.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("session: parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("session: token expiry claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("session: token carries no expiry claim")
	}
	return exp.Time, nil
}
