package session

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Pair of credentials kept in the browser cookies
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// RefreshResult is a successful exchange of a refresh token.
// Lifetimes are relative to the moment the backend answered.
type RefreshResult struct {
	Token          string
	RefreshToken   string
	TokenExpires   time.Duration
	RefreshExpires time.Duration
}

// Pair converts relative lifetimes to absolute expiries
func (r RefreshResult) Pair(now time.Time) TokenPair {
	return TokenPair{
		Access:  IssuedToken{Value: r.Token, ExpiresAt: now.Add(r.TokenExpires)},
		Refresh: IssuedToken{Value: r.RefreshToken, ExpiresAt: now.Add(r.RefreshExpires)},
	}
}
