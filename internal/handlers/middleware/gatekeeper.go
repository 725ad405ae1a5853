package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/doorly/internal/handlers/sessionctx"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/metrics"
	"github.com/nkiryanov/doorly/internal/service/session"
)

const (
	loginPath = "/login"
	homePath  = "/"
)

type tokenStore interface {
	ReadTokens(r *http.Request) (access string, refresh string)
	SetTokens(w http.ResponseWriter, pair session.TokenPair)
	ClearTokens(w http.ResponseWriter)
}

type sessionRefresher interface {
	// Must return nil if refresh failed
	Refresh(ctx context.Context, refreshToken string) *session.RefreshResult
}

type localeResolver interface {
	Resolve(r *http.Request) string
}

type gatekeeperMetrics interface {
	ObserveDecision(state string, route string, action string)
	ObserveRefresh(outcome string, d time.Duration)
}

type action string

const (
	actionAllow         action = "allow"
	actionRedirectLogin action = "redirect_login"
	actionRedirectHome  action = "redirect_home"
)

// Gatekeeper decides on every page request whether to let it through,
// send the user to the login page or away from auth pages.
// Tokens about to expire are refreshed before the decision.
type Gatekeeper struct {
	store      tokenStore
	refresher  sessionRefresher
	locales    localeResolver
	classifier session.Classifier
	buffer     time.Duration
	now        func() time.Time

	logger  logger.Logger
	metrics gatekeeperMetrics
}

type GatekeeperOption func(*Gatekeeper)

func WithExpiryBuffer(d time.Duration) GatekeeperOption {
	return func(g *Gatekeeper) { g.buffer = d }
}

func WithClock(now func() time.Time) GatekeeperOption {
	return func(g *Gatekeeper) { g.now = now }
}

func WithClassifier(c session.Classifier) GatekeeperOption {
	return func(g *Gatekeeper) { g.classifier = c }
}

func NewGatekeeper(
	store tokenStore,
	refresher sessionRefresher,
	locales localeResolver,
	l logger.Logger,
	m gatekeeperMetrics,
	opts ...GatekeeperOption,
) *Gatekeeper {
	g := &Gatekeeper{
		store:      store,
		refresher:  refresher,
		locales:    locales,
		classifier: session.DefaultClassifier,
		buffer:     session.DefaultExpiryBuffer,
		now:        time.Now,
		logger:     l.WithGroup("gatekeeper"),
		metrics:    m,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Gatekeeper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, path := session.StripLocale(r.URL.Path)
		access, refresh := g.store.ReadTokens(r)

		info := sessionctx.Info{
			Route:  g.classifier.Classify(path),
			State:  session.Evaluate(access, refresh, g.buffer, g.now()),
			Locale: g.locales.Resolve(r),
		}

		act := g.decide(w, r, &info, refresh)

		g.metrics.ObserveDecision(info.State.String(), info.Route.String(), string(act))
		g.logger.Debug("Gatekeeper decision",
			"path", r.URL.Path,
			"state", info.State.String(),
			"route", info.Route.String(),
			"refreshed", info.Refreshed,
			"action", string(act),
		)

		switch act {
		case actionRedirectLogin:
			http.Redirect(w, r, localized(info.Locale, loginPath), http.StatusTemporaryRedirect)
		case actionRedirectHome:
			http.Redirect(w, r, localized(info.Locale, homePath), http.StatusTemporaryRedirect)
		default:
			next.ServeHTTP(w, r.WithContext(sessionctx.New(r.Context(), info)))
		}
	})
}

// decide applies the transition table. Cookie mutations go to w before any response is written
func (g *Gatekeeper) decide(w http.ResponseWriter, r *http.Request, info *sessionctx.Info, refresh string) action {
	switch info.State {
	case session.StateNoSession:
		return g.anonymous(info.Route)

	case session.StateValid:
		return authenticated(info.Route)

	case session.StateAccessExpiring:
		pair, ok := g.refresh(r.Context(), refresh)
		if ok {
			g.store.SetTokens(w, pair)
			session.ReplaceRequestTokens(r, pair)
			info.Refreshed = true
			return authenticated(info.Route)
		}

		g.expire(w, r)
		return g.anonymous(info.Route)

	default:
		g.expire(w, r)
		return g.anonymous(info.Route)
	}
}

// refresh never panics; any failure is reported as not ok
func (g *Gatekeeper) refresh(ctx context.Context, refreshToken string) (pair session.TokenPair, ok bool) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			g.logger.Error("Token refresh panicked", "panic", p)
			ok = false
		}

		outcome := metrics.RefreshFailed
		if ok {
			outcome = metrics.RefreshSucceeded
		}
		g.metrics.ObserveRefresh(outcome, time.Since(start))
	}()

	result := g.refresher.Refresh(ctx, refreshToken)
	if result == nil {
		return pair, false
	}

	g.logger.Info("Session refreshed")
	return result.Pair(g.now()), true
}

func (g *Gatekeeper) expire(w http.ResponseWriter, r *http.Request) {
	g.store.ClearTokens(w)
	session.DropRequestTokens(r)
}

// anonymous never redirects to login from the route class the login page belongs to
func (g *Gatekeeper) anonymous(route session.RouteClass) action {
	if route != session.RoutePrivate || route == g.classifier.Classify(loginPath) {
		return actionAllow
	}
	return actionRedirectLogin
}

func authenticated(route session.RouteClass) action {
	if route == session.RouteAuthOnly {
		return actionRedirectHome
	}
	return actionAllow
}

func localized(locale string, path string) string {
	if path == homePath {
		return "/" + locale
	}
	return "/" + locale + path
}
