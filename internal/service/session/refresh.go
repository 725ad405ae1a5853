package session

import (
	"context"

	"github.com/nkiryanov/doorly/internal/backend"
	"github.com/nkiryanov/doorly/internal/logger"
)

type tokenRefresher interface {
	// Exchange refresh token for a new pair. Must return error on any non successful answer
	Refresh(ctx context.Context, refreshToken string) (backend.TokenPayload, error)
}

// Refresher calls the backend refresh endpoint.
// Writing the new pair to cookies is up to the caller.
type Refresher struct {
	backend tokenRefresher
	logger  logger.Logger
}

func NewRefresher(b tokenRefresher, l logger.Logger) *Refresher {
	return &Refresher{backend: b, logger: l}
}

// Refresh returns nil if the exchange failed for any reason
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (result *RefreshResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Token refresh panicked", "panic", p)
			result = nil
		}
	}()

	if refreshToken == "" {
		return nil
	}

	payload, err := r.backend.Refresh(ctx, refreshToken)
	if err != nil {
		r.logger.Warn("Token refresh failed", "error", err)
		return nil
	}
	if err := payload.Validate(); err != nil {
		r.logger.Warn("Token refresh returned malformed payload", "error", err)
		return nil
	}

	return &RefreshResult{
		Token:          payload.Token,
		RefreshToken:   payload.RefreshToken,
		TokenExpires:   payload.TokenLifetime(),
		RefreshExpires: payload.RefreshLifetime(),
	}
}
