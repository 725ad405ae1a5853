package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/nkiryanov/doorly/internal/apperrors"
	"github.com/nkiryanov/doorly/internal/handlers/render"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/service/session"
)

type Config struct {
	// Upstream base url, required
	Target string

	// Send access token cookie as bearer and don't leak browser cookies upstream.
	// Used for the backend API; the page renderer gets cookies as is.
	ForwardAccessToken bool
}

// New returns reverse proxy to the configured target.
// Fails if the target is missing: it is a deployment error, not a request one.
func New(cfg Config, l logger.Logger) (http.Handler, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return nil, apperrors.ErrMissingBaseURL
	}

	target, err := url.Parse(cfg.Target)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", apperrors.ErrMissingBaseURL, cfg.Target)
	}

	l = l.With("upstream", target.Host)

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			if !cfg.ForwardAccessToken {
				return
			}

			if pr.Out.Header.Get("Authorization") == "" {
				if c, err := pr.In.Cookie(session.AccessTokenCookie); err == nil && c.Value != "" {
					pr.Out.Header.Set("Authorization", "Bearer "+c.Value)
				}
			}
			pr.Out.Header.Del("Cookie")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			l.Warn("Upstream request failed", "path", r.URL.Path, "error", err)
			render.ServiceError(w, "Bad gateway", http.StatusBadGateway)
		},
	}, nil
}
