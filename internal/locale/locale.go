package locale

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/nkiryanov/doorly/internal/apperrors"
)

// CookieName remembers the last locale the user visited
const CookieName = "NEXT_LOCALE"

const cookieMaxAge = 365 * 24 * time.Hour

var DefaultLocales = []string{"en", "vi"}

const DefaultLocale = "en"

// Router resolves the locale of a request and keeps it as the first path segment
type Router struct {
	// default locale goes first: matcher falls back to the first tag
	locales []string
	matcher language.Matcher
}

func New(locales []string, defaultLocale string) (*Router, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("%w: no locales configured", apperrors.ErrUnsupportedLocale)
	}
	if !slices.Contains(locales, defaultLocale) {
		return nil, fmt.Errorf("%w: default locale %q is not in %v", apperrors.ErrUnsupportedLocale, defaultLocale, locales)
	}

	ordered := []string{defaultLocale}
	for _, l := range locales {
		if l != defaultLocale && !slices.Contains(ordered, l) {
			ordered = append(ordered, l)
		}
	}

	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", apperrors.ErrUnsupportedLocale, l, err)
		}
		tags = append(tags, tag)
	}

	return &Router{
		locales: ordered,
		matcher: language.NewMatcher(tags),
	}, nil
}

func (lr *Router) Default() string {
	return lr.locales[0]
}

func (lr *Router) Supported(locale string) bool {
	return slices.Contains(lr.locales, locale)
}

// Split returns the locale prefix of the path and the rest of it.
// ok is false if the first segment is not a supported locale.
func (lr *Router) Split(path string) (locale string, rest string, ok bool) {
	segment, tail, found := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !lr.Supported(segment) {
		return "", path, false
	}
	if !found {
		return segment, "/", true
	}
	return segment, "/" + tail, true
}

// Resolve picks the locale: path prefix, then cookie, then Accept-Language, then default
func (lr *Router) Resolve(r *http.Request) string {
	if l, _, ok := lr.Split(r.URL.Path); ok {
		return l
	}

	if c, err := r.Cookie(CookieName); err == nil && lr.Supported(c.Value) {
		return c.Value
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(tags) > 0 {
			_, idx, confidence := lr.matcher.Match(tags...)
			if confidence != language.No {
				return lr.locales[idx]
			}
		}
	}

	return lr.Default()
}

// Handler redirects paths without supported locale prefix to the resolved one
// and passes prefixed ones through with the locale in the request context.
// Headers already set on w (cookies of earlier middleware) go out with either response.
func (lr *Router) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale, _, ok := lr.Split(r.URL.Path)
		if !ok {
			target := "/" + lr.Resolve(r)
			if r.URL.Path != "/" && r.URL.Path != "" {
				target += r.URL.Path
			}
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}

		if c, err := r.Cookie(CookieName); err != nil || c.Value != locale {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    locale,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), locale)))
	})
}

type ctxKey string

const localeKey ctxKey = "locale"

func NewContext(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

func FromContext(ctx context.Context) (string, bool) {
	l, ok := ctx.Value(localeKey).(string)
	return l, ok
}
