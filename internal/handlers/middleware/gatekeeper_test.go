package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doorly/internal/handlers/sessionctx"
	"github.com/nkiryanov/doorly/internal/locale"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/service/session"
	"github.com/nkiryanov/doorly/internal/testutil"
)

// Allow to use a function as refresher
type refreshFunc func(ctx context.Context, refreshToken string) *session.RefreshResult

func (f refreshFunc) Refresh(ctx context.Context, refreshToken string) *session.RefreshResult {
	return f(ctx, refreshToken)
}

type recordedDecision struct {
	state, route, action string
}

type recordingMetrics struct {
	mu        sync.Mutex
	decisions []recordedDecision
	refreshes []string
}

func (m *recordingMetrics) ObserveDecision(state string, route string, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, recordedDecision{state, route, action})
}

func (m *recordingMetrics) ObserveRefresh(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, outcome)
}

// What the handler behind the gatekeeper saw
type seenRequest struct {
	called bool
	info   sessionctx.Info
	access string
}

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func TestGatekeeper(t *testing.T) {
	validAccess := testutil.NewToken(t, now.Add(15*time.Minute))
	expiringAccess := testutil.NewToken(t, now.Add(30*time.Second))
	expiredAccess := testutil.NewToken(t, now.Add(-time.Hour))
	validRefresh := testutil.NewToken(t, now.Add(24*time.Hour))
	expiredRefresh := testutil.NewToken(t, now.Add(-time.Minute))

	newAccess := testutil.NewToken(t, now.Add(15*time.Minute+time.Second))
	newRefresh := testutil.NewToken(t, now.Add(24*time.Hour+time.Second))

	okRefresher := func(calls *int) refreshFunc {
		return func(ctx context.Context, refreshToken string) *session.RefreshResult {
			*calls++
			require.Equal(t, validRefresh, refreshToken, "refresh must be done with the refresh token")
			return &session.RefreshResult{
				Token:          newAccess,
				RefreshToken:   newRefresh,
				TokenExpires:   15 * time.Minute,
				RefreshExpires: 24 * time.Hour,
			}
		}
	}
	failingRefresher := func(calls *int) refreshFunc {
		return func(ctx context.Context, refreshToken string) *session.RefreshResult {
			*calls++
			return nil
		}
	}

	// Run request through gatekeeper with the given cookies
	serve := func(t *testing.T, refresher sessionRefresher, target string, access string, refresh string) (*httptest.ResponseRecorder, *seenRequest, *recordingMetrics) {
		t.Helper()

		locales, err := locale.New(locale.DefaultLocales, locale.DefaultLocale)
		require.NoError(t, err)

		store := session.NewCookieStore(true)
		store.Now = testutil.Clock(now)
		m := &recordingMetrics{}

		g := NewGatekeeper(store, refresher, locales, logger.NewNoOpLogger(), m, WithClock(testutil.Clock(now)))

		seen := &seenRequest{}
		h := g.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen.called = true
			seen.info, _ = sessionctx.FromContext(r.Context())
			if c, err := r.Cookie(session.AccessTokenCookie); err == nil {
				seen.access = c.Value
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, target, nil)
		if access != "" {
			req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: access})
		}
		if refresh != "" {
			req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: refresh})
		}

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr, seen, m
	}

	requireCleared := func(t *testing.T, rr *httptest.ResponseRecorder) {
		t.Helper()

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 2, "both credentials should be cleared")
		for _, c := range cookies {
			require.Contains(t, []string{session.AccessTokenCookie, session.RefreshTokenCookie}, c.Name)
			require.Empty(t, c.Value)
			require.Equal(t, -1, c.MaxAge, "cookie should be deleted")
		}
	}

	t.Run("no session", func(t *testing.T) {
		t.Run("public route allowed untouched", func(t *testing.T) {
			calls := 0
			rr, seen, m := serve(t, failingRefresher(&calls), "/en/pricing", "", "")

			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, seen.called)
			require.Empty(t, rr.Result().Cookies(), "cookies must not be touched")
			require.Zero(t, calls, "no refresh without session")
			require.Equal(t, []recordedDecision{{"no_session", "public", "allow"}}, m.decisions)
		})

		t.Run("auth route allowed", func(t *testing.T) {
			rr, seen, _ := serve(t, failingRefresher(new(int)), "/en/login", "", "")

			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, seen.called)
			require.Equal(t, session.RouteAuthOnly, seen.info.Route)
			require.Equal(t, session.StateNoSession, seen.info.State)
		})

		t.Run("private route redirected to login", func(t *testing.T) {
			tests := []struct {
				target   string
				expected string
			}{
				{"/en", "/en/login"},
				{"/en/room/123", "/en/login"},
				{"/vi/house/abc", "/vi/login"},
				{"/dashboard", "/en/login"},
			}

			for _, tt := range tests {
				t.Run(tt.target, func(t *testing.T) {
					rr, seen, _ := serve(t, failingRefresher(new(int)), tt.target, "", "")

					require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
					require.Equal(t, tt.expected, rr.Header().Get("Location"))
					require.False(t, seen.called)
					require.Empty(t, rr.Result().Cookies())
				})
			}
		})
	})

	t.Run("valid session", func(t *testing.T) {
		t.Run("private route allowed", func(t *testing.T) {
			calls := 0
			rr, seen, _ := serve(t, okRefresher(&calls), "/en/scheduler", validAccess, validRefresh)

			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, seen.called)
			require.True(t, seen.info.Authenticated())
			require.Equal(t, validAccess, seen.access)
			require.Empty(t, rr.Result().Cookies())
			require.Zero(t, calls, "valid session must not be refreshed")
		})

		t.Run("auth route redirected home", func(t *testing.T) {
			rr, seen, _ := serve(t, okRefresher(new(int)), "/en/register", validAccess, validRefresh)

			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			require.Equal(t, "/en", rr.Header().Get("Location"))
			require.False(t, seen.called)
			require.Empty(t, rr.Result().Cookies(), "cookies must not be touched")
		})
	})

	t.Run("access expiring", func(t *testing.T) {
		t.Run("refresh ok on private route", func(t *testing.T) {
			calls := 0
			rr, seen, m := serve(t, okRefresher(&calls), "/en/room/123", expiringAccess, validRefresh)

			require.Equal(t, http.StatusOK, rr.Code, "request should be allowed after refresh")
			require.Equal(t, 1, calls, "refresh should be called once")
			require.True(t, seen.called)
			require.True(t, seen.info.Refreshed)
			require.True(t, seen.info.Authenticated())
			require.Equal(t, newAccess, seen.access, "next handler should see refreshed access token")

			cookies := map[string]*http.Cookie{}
			for _, c := range rr.Result().Cookies() {
				cookies[c.Name] = c
			}
			require.Len(t, cookies, 2)

			access := cookies[session.AccessTokenCookie]
			require.Equal(t, newAccess, access.Value)
			require.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)
			require.True(t, now.Add(15*time.Minute).Equal(access.Expires))
			require.True(t, access.HttpOnly)
			require.True(t, access.Secure)
			require.Equal(t, http.SameSiteLaxMode, access.SameSite)

			refresh := cookies[session.RefreshTokenCookie]
			require.Equal(t, newRefresh, refresh.Value)
			require.Equal(t, int((24 * time.Hour).Seconds()), refresh.MaxAge)
			require.True(t, now.Add(24*time.Hour).Equal(refresh.Expires))

			require.Equal(t, []string{"succeeded"}, m.refreshes)
			require.Equal(t, []recordedDecision{{"access_expiring", "private", "allow"}}, m.decisions)
		})

		t.Run("refresh ok on auth route redirects home", func(t *testing.T) {
			rr, _, _ := serve(t, okRefresher(new(int)), "/vi/login", expiringAccess, validRefresh)

			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			require.Equal(t, "/vi", rr.Header().Get("Location"))
			require.Len(t, rr.Result().Cookies(), 2, "refreshed cookies should go with redirect")
		})

		t.Run("refresh failed on private route", func(t *testing.T) {
			calls := 0
			rr, seen, m := serve(t, failingRefresher(&calls), "/en/room/123", expiringAccess, validRefresh)

			require.Equal(t, 1, calls)
			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			require.Equal(t, "/en/login", rr.Header().Get("Location"))
			require.False(t, seen.called)
			requireCleared(t, rr)
			require.Equal(t, []string{"failed"}, m.refreshes)
		})

		t.Run("refresh failed on public route", func(t *testing.T) {
			rr, seen, _ := serve(t, failingRefresher(new(int)), "/en/pricing", expiringAccess, validRefresh)

			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, seen.called)
			require.Empty(t, seen.access, "stale credentials must not reach next handler")
			requireCleared(t, rr)
		})

		t.Run("refresh panic handled as failure", func(t *testing.T) {
			panicking := refreshFunc(func(ctx context.Context, refreshToken string) *session.RefreshResult {
				panic("backend client exploded")
			})

			rr, _, m := serve(t, panicking, "/en/profile", expiringAccess, validRefresh)

			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			require.Equal(t, "/en/login", rr.Header().Get("Location"))
			requireCleared(t, rr)
			require.Equal(t, []string{"failed"}, m.refreshes)
		})

		t.Run("malformed access with valid refresh is refreshed", func(t *testing.T) {
			calls := 0
			rr, _, _ := serve(t, okRefresher(&calls), "/en/dashboard", "not-a-jwt", validRefresh)

			require.Equal(t, 1, calls)
			require.Equal(t, http.StatusOK, rr.Code)
		})

		t.Run("missing access with valid refresh is refreshed", func(t *testing.T) {
			calls := 0
			rr, _, _ := serve(t, okRefresher(&calls), "/en/dashboard", "", validRefresh)

			require.Equal(t, 1, calls)
			require.Equal(t, http.StatusOK, rr.Code)
		})
	})

	t.Run("fully expired", func(t *testing.T) {
		t.Run("login page not redirected", func(t *testing.T) {
			calls := 0
			rr, seen, _ := serve(t, okRefresher(&calls), "/en/login", expiredAccess, expiredRefresh)

			require.Equal(t, http.StatusOK, rr.Code, "redirect from login page would loop")
			require.True(t, seen.called)
			require.Zero(t, calls, "expired refresh token must not be used")
			requireCleared(t, rr)
		})

		t.Run("private route redirected", func(t *testing.T) {
			rr, _, _ := serve(t, okRefresher(new(int)), "/en/house/abc", expiredAccess, expiredRefresh)

			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			require.Equal(t, "/en/login", rr.Header().Get("Location"))
			requireCleared(t, rr)
		})

		t.Run("public route allowed", func(t *testing.T) {
			rr, seen, _ := serve(t, okRefresher(new(int)), "/en/pricing", expiredAccess, expiredRefresh)

			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, seen.called)
			requireCleared(t, rr)
		})

		t.Run("valid access without refresh", func(t *testing.T) {
			calls := 0
			rr, _, _ := serve(t, okRefresher(&calls), "/en/room", validAccess, "")

			require.Zero(t, calls)
			require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			requireCleared(t, rr)
		})
	})
}
