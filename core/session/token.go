package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the "exp" claim of a JWT bearer token without verifying its
// signature; only the backend can do that. ok is false for opaque tokens and tokens
// without an expiry.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// StoreTTL is how long a persisted session should be kept: `max`, shortened to the
// token expiry when the token carries one. A non-positive result means already expired.
func StoreTTL(token string, max time.Duration, now time.Time) time.Duration {
	exp, ok := TokenExpiry(token)
	if !ok {
		return max
	}
	if ttl := exp.Sub(now); ttl < max || max <= 0 {
		return ttl
	}
	return max
}
