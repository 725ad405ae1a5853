package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/doorly/internal/apperrors"
)

// DefaultExpiryBuffer is the window before real expiry in which a token already counts as expiring
const DefaultExpiryBuffer = 60 * time.Second

// Claims the gateway cares about. The signature is verified by the backend only
type Claims struct {
	ExpiresAt time.Time
	IssuedAt  time.Time
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode reads token claims without verifying the signature.
// Returns apperrors.ErrMalformedToken if the token is not a three segment base64url JSON token
// and apperrors.ErrMissingExpiry if it has no 'exp' claim.
func Decode(token string) (Claims, error) {
	var claims Claims
	registered := &jwt.RegisteredClaims{}

	_, _, err := parser.ParseUnverified(token, registered)
	if err != nil {
		return claims, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	}

	if registered.ExpiresAt == nil {
		return claims, apperrors.ErrMissingExpiry
	}

	claims.ExpiresAt = registered.ExpiresAt.Time
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}

	return claims, nil
}

// IsAboutToExpire reports whether token expires at or before now+buffer.
// Tokens that can't be decoded are always treated as expired.
func IsAboutToExpire(token string, buffer time.Duration, now time.Time) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}

	threshold := now.Add(buffer).UnixMilli()
	return claims.ExpiresAt.UnixMilli() <= threshold
}
