package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nkiryanov/doorly/internal/apperrors"
	"github.com/nkiryanov/doorly/internal/backend"
	"github.com/nkiryanov/doorly/internal/handlers/render"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/service/session"
)

type authBackend interface {
	Login(ctx context.Context, email string, password string) (backend.TokenPayload, error)
	Register(ctx context.Context, req backend.RegisterRequest) error
	Confirm(ctx context.Context, otpCode string, email string) error
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, accessToken string) (backend.Profile, error)
}

type credentialStore interface {
	ReadTokens(r *http.Request) (access string, refresh string)
	SetTokens(w http.ResponseWriter, pair session.TokenPair)
	ClearTokens(w http.ResponseWriter)
}

// AuthHandler serves the auth actions of the front end
type AuthHandler struct {
	backend authBackend
	store   credentialStore
	logger  logger.Logger
	now     func() time.Time
}

func NewAuth(b authBackend, store credentialStore, l logger.Logger) *AuthHandler {
	return &AuthHandler{
		backend: b,
		store:   store,
		logger:  l.WithGroup("auth"),
		now:     time.Now,
	}
}

func (h *AuthHandler) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/register", h.register)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/logout", h.logout)
	r.Get("/profile", h.profile)

	return r
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	payload, err := h.backend.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		h.backendError(w, "login", err)
		return
	}

	result := session.RefreshResult{
		Token:          payload.Token,
		RefreshToken:   payload.RefreshToken,
		TokenExpires:   payload.TokenLifetime(),
		RefreshExpires: payload.RefreshLifetime(),
	}
	h.store.SetTokens(w, result.Pair(h.now()))
	render.JSON(w, MessageResponse{Message: "User logged in successfully"})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		FullName string `json:"fullName" validate:"required,max=100"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	err = h.backend.Register(r.Context(), backend.RegisterRequest{
		Email:    data.Email,
		Password: data.Password,
		FullName: data.FullName,
		Provider: backend.ProviderEmail,
	})
	if err != nil {
		h.backendError(w, "register", err)
		return
	}

	render.JSON(w, MessageResponse{Message: "User registered successfully, check email for the code"})
}

func (h *AuthHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	type VerifyRequest struct {
		Email   string `json:"email" validate:"required,email"`
		OTPCode string `json:"otpCode" validate:"required,otp"`
	}

	data, err := render.BindAndValidate[VerifyRequest](w, r)
	if err != nil {
		return
	}

	if err := h.backend.Confirm(r.Context(), data.OTPCode, data.Email); err != nil {
		h.backendError(w, "verify otp", err)
		return
	}

	render.JSON(w, MessageResponse{Message: "Email confirmed successfully"})
}

// logout always clears cookies; the backend call is best effort
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	access, _ := h.store.ReadTokens(r)

	if access != "" {
		if err := h.backend.Logout(r.Context(), access); err != nil {
			h.logger.Warn("Backend logout failed, ignoring", "error", err)
		}
	}

	h.store.ClearTokens(w)
	render.JSON(w, MessageResponse{Message: "User logged out successfully"})
}

func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	access, _ := h.store.ReadTokens(r)
	if access == "" {
		render.ServiceError(w, apperrors.ErrAccessTokenMissing.Error(), http.StatusUnauthorized)
		return
	}

	profile, err := h.backend.Profile(r.Context(), access)
	if err != nil {
		h.backendError(w, "profile", err)
		return
	}

	render.JSON(w, profile)
}

// backendError relays backend answers as is and hides transport failures behind 502
func (h *AuthHandler) backendError(w http.ResponseWriter, action string, err error) {
	var be *backend.Error

	switch {
	case errors.As(err, &be):
		h.logger.Info("Backend rejected request", "action", action, "status", be.Status, "message", be.Message)
		render.BackendError(w, be.Status, be.Message)
	case errors.Is(err, apperrors.ErrMalformedResponse):
		h.logger.Error("Backend response malformed", "action", action, "error", err)
		render.ServiceError(w, "Unexpected backend response", http.StatusBadGateway)
	default:
		h.logger.Error("Backend request failed", "action", action, "error", err)
		render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
	}
}
