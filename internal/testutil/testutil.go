package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Key the tests sign tokens with. The gateway never verifies signatures
const testSecret = "test-secret"

// Return random free port on 127.0.0.1 address
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// Sign HS256 token that expires at exp
func NewToken(t *testing.T, exp time.Time) string {
	t.Helper()

	return SignClaims(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(exp.Add(-15 * time.Minute)),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
}

// Sign arbitrary claims with HS256
func SignClaims(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err, "test token should be signed")
	return token
}

// Fixed clock for deterministic expiry checks
func Clock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
