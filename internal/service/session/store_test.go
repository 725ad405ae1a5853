package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func TestCookieStore_Write(t *testing.T) {
	store := &CookieStore{Secure: true, Now: func() time.Time { return now }}

	t.Run("set attributes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		expiresAt := now.Add(15 * time.Minute)

		store.Write(rec, AccessTokenCookie, "token-value", expiresAt)

		c := responseCookies(rec)[AccessTokenCookie]
		require.NotNil(t, c)
		require.Equal(t, "token-value", c.Value)
		require.Equal(t, "/", c.Path)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite, "lax is used when not set")
		require.Equal(t, 15*60, c.MaxAge)
		require.True(t, expiresAt.Equal(c.Expires), "expires must be absolute, got %s", c.Expires)
	})

	t.Run("not secure in development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		dev := NewCookieStore(false)
		dev.Now = func() time.Time { return now }

		dev.Write(rec, RefreshTokenCookie, "token-value", now.Add(time.Hour))

		c := responseCookies(rec)[RefreshTokenCookie]
		require.NotNil(t, c)
		require.False(t, c.Secure)
		require.True(t, c.HttpOnly)
	})

	t.Run("expiry in the past clears cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()

		store.Write(rec, AccessTokenCookie, "token-value", now.Add(-time.Second))

		c := responseCookies(rec)[AccessTokenCookie]
		require.NotNil(t, c)
		require.Equal(t, "", c.Value)
		require.Equal(t, -1, c.MaxAge)
	})
}

func TestCookieStore_SetTokens(t *testing.T) {
	store := &CookieStore{Now: func() time.Time { return now }}
	rec := httptest.NewRecorder()

	store.SetTokens(rec, RefreshResult{
		Token:          "access",
		RefreshToken:   "refresh",
		TokenExpires:   15 * time.Minute,
		RefreshExpires: 7 * 24 * time.Hour,
	}.Pair(now))

	cookies := responseCookies(rec)
	require.Len(t, cookies, 2)
	require.Equal(t, "access", cookies[AccessTokenCookie].Value)
	require.Equal(t, 15*60, cookies[AccessTokenCookie].MaxAge)
	require.Equal(t, "refresh", cookies[RefreshTokenCookie].Value)
	require.Equal(t, 7*24*60*60, cookies[RefreshTokenCookie].MaxAge)
	require.True(t, now.Add(7*24*time.Hour).Equal(cookies[RefreshTokenCookie].Expires))
}

func TestCookieStore_ClearTokens(t *testing.T) {
	store := NewCookieStore(true)
	rec := httptest.NewRecorder()

	store.ClearTokens(rec)

	cookies := responseCookies(rec)
	require.Len(t, cookies, 2)
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := cookies[name]
		require.NotNil(t, c, "cookie %s must be cleared", name)
		require.Equal(t, "", c.Value)
		require.Equal(t, "/", c.Path)
		require.Equal(t, -1, c.MaxAge)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
	}
}

func TestCookieStore_ReadTokens(t *testing.T) {
	store := NewCookieStore(true)

	t.Run("both present", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "access"})
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh"})

		access, refresh := store.ReadTokens(r)

		require.Equal(t, "access", access)
		require.Equal(t, "refresh", refresh)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})

		access, refresh := store.ReadTokens(r)

		require.Equal(t, "", access)
		require.Equal(t, "", refresh)

		_, ok := store.Read(r, "theme")
		require.True(t, ok)
	})
}

func TestRequestTokens(t *testing.T) {
	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "old-access"})
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "old-refresh"})
		return r
	}

	t.Run("replace", func(t *testing.T) {
		r := newRequest()

		ReplaceRequestTokens(r, TokenPair{
			Access:  IssuedToken{Value: "new-access"},
			Refresh: IssuedToken{Value: "new-refresh"},
		})

		access, refresh := NewCookieStore(true).ReadTokens(r)
		require.Equal(t, "new-access", access)
		require.Equal(t, "new-refresh", refresh)
		require.Len(t, r.Cookies(), 3)

		theme, err := r.Cookie("theme")
		require.NoError(t, err, "other cookies must be kept")
		require.Equal(t, "dark", theme.Value)
	})

	t.Run("drop", func(t *testing.T) {
		r := newRequest()

		DropRequestTokens(r)

		access, refresh := NewCookieStore(true).ReadTokens(r)
		require.Equal(t, "", access)
		require.Equal(t, "", refresh)
		require.Len(t, r.Cookies(), 1)
	})

	t.Run("drop last cookies", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "old-access"})

		DropRequestTokens(r)

		require.Empty(t, r.Header.Get("Cookie"))
	})
}
