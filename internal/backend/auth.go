package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/doorly/internal/apperrors"
)

// ProviderEmail is the only registration provider the front end uses
const ProviderEmail = "email"

// TokenPayload as returned on login and refresh. Lifetimes are in seconds
type TokenPayload struct {
	Token          string `json:"token"`
	RefreshToken   string `json:"refreshToken"`
	TokenExpires   int64  `json:"tokenExpires"`
	RefreshExpires int64  `json:"refreshExpires"`
}

func (p TokenPayload) TokenLifetime() time.Duration {
	return time.Duration(p.TokenExpires) * time.Second
}

func (p TokenPayload) RefreshLifetime() time.Duration {
	return time.Duration(p.RefreshExpires) * time.Second
}

// Validate checks both tokens and their lifetimes are present
func (p TokenPayload) Validate() error {
	if p.Token == "" || p.RefreshToken == "" {
		return fmt.Errorf("%w: token is empty", apperrors.ErrMalformedResponse)
	}
	if p.TokenExpires <= 0 || p.RefreshExpires <= 0 {
		return fmt.Errorf("%w: token lifetime is not positive", apperrors.ErrMalformedResponse)
	}
	return nil
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Provider string `json:"provider"`
}

type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func (c *Client) Login(ctx context.Context, email string, password string) (TokenPayload, error) {
	var payload TokenPayload

	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/email/login",
		in:     map[string]string{"email": email, "password": password},
		out:    &payload,
	})
	if err != nil {
		return payload, err
	}

	return payload, payload.Validate()
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if req.Provider == "" {
		req.Provider = ProviderEmail
	}

	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/email/register",
		in:     req,
	})
}

func (c *Client) Confirm(ctx context.Context, otpCode string, email string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/email/confirm",
		in:     map[string]string{"otpCode": otpCode, "email": email},
	})
}

// Refresh exchanges the refresh token (sent as bearer) for a new pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPayload, error) {
	var payload TokenPayload

	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		bearer: refreshToken,
		out:    &payload,
	})
	if err != nil {
		return payload, err
	}

	return payload, payload.Validate()
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/logout",
		bearer: accessToken,
	})
}

func (c *Client) Profile(ctx context.Context, accessToken string) (Profile, error) {
	var profile Profile

	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/user/profile",
		bearer: accessToken,
		out:    &profile,
	})

	return profile, err
}
