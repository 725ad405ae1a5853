package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieStore reads and writes credentials in http only cookies
type CookieStore struct {
	// Set 'Secure' attribute, should be true in production
	Secure bool

	// SameSite policy for every write. Lax if not set
	SameSite http.SameSite

	// Clock, time.Now if not set
	Now func() time.Time
}

func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Now:      time.Now,
	}
}

func (s *CookieStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Read returns cookie value. Empty cookies are reported as missing
func (s *CookieStore) Read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ReadTokens returns access and refresh tokens, empty string if missing
func (s *CookieStore) ReadTokens(r *http.Request) (access string, refresh string) {
	access, _ = s.Read(r, AccessTokenCookie)
	refresh, _ = s.Read(r, RefreshTokenCookie)
	return access, refresh
}

func (s *CookieStore) Write(w http.ResponseWriter, name string, value string, expiresAt time.Time) {
	sameSite := s.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}

	maxAge := int(expiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		// Already expired cookie is the same as no cookie
		s.Clear(w, name)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: sameSite,
	})
}

func (s *CookieStore) SetTokens(w http.ResponseWriter, pair TokenPair) {
	s.Write(w, AccessTokenCookie, pair.Access.Value, pair.Access.ExpiresAt)
	s.Write(w, RefreshTokenCookie, pair.Refresh.Value, pair.Refresh.ExpiresAt)
}

func (s *CookieStore) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) ClearTokens(w http.ResponseWriter) {
	s.Clear(w, AccessTokenCookie)
	s.Clear(w, RefreshTokenCookie)
}

// ReplaceRequestTokens rewrites the request Cookie header with the new pair,
// so handlers after the gatekeeper see refreshed credentials
func ReplaceRequestTokens(r *http.Request, pair TokenPair) {
	replaceRequestCookies(r, map[string]string{
		AccessTokenCookie:  pair.Access.Value,
		RefreshTokenCookie: pair.Refresh.Value,
	})
}

// DropRequestTokens removes credentials from the request Cookie header
func DropRequestTokens(r *http.Request) {
	replaceRequestCookies(r, map[string]string{
		AccessTokenCookie:  "",
		RefreshTokenCookie: "",
	})
}

func replaceRequestCookies(r *http.Request, values map[string]string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")

	parts := make([]string, 0, len(cookies)+len(values))
	for _, c := range cookies {
		if _, ok := values[c.Name]; ok {
			continue
		}
		parts = append(parts, c.String())
	}
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		if v, ok := values[name]; ok && v != "" {
			parts = append(parts, (&http.Cookie{Name: name, Value: v}).String())
		}
	}

	if len(parts) > 0 {
		r.Header.Set("Cookie", strings.Join(parts, "; "))
	}
}
