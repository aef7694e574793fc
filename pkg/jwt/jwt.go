package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The client never holds the backend's signing secret, so tokens are parsed
// without signature verification. Claims are only used to decide whether a
// persisted session is worth restoring; the backend stays authoritative on
// every request.

// Claims returns the bearer token's claim set.
func Claims(tokenString string) (jwt.MapClaims, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is at or before now.
// Malformed tokens count as expired; a token without exp does not.
func Expired(tokenString string, now time.Time) bool {
	claims, err := Claims(tokenString)
	if err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return !exp.Time.After(now)
}
