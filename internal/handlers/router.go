package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nkiryanov/doorly/internal/handlers/middleware"
	"github.com/nkiryanov/doorly/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Routes are the parts the router is built from
type Routes struct {
	// Auth actions, mounted at /api/auth
	Auth http.Handler

	// Pass through to the backend REST API, mounted at /api/doorly
	BackendProxy http.Handler

	// Page renderer, reached only through Gatekeeper and Locale
	Pages http.Handler

	// Prometheus exposition
	Metrics http.Handler

	Gatekeeper func(http.Handler) http.Handler
	Locale     func(http.Handler) http.Handler
}

func NewRouter(routes Routes, l logger.Logger) http.Handler {
	root := chi.NewRouter()

	root.Use(
		chimw.RequestID,
		middleware.LoggerMiddleware(l),
		chimw.Recoverer,
	)

	root.Get("/healthz", handleHealth)
	root.Handle("/metrics", routes.Metrics)

	root.Mount("/api/auth", routes.Auth)
	root.Handle("/api/doorly/*", http.StripPrefix("/api/doorly", routes.BackendProxy))

	// Assets are served without session checks
	root.Handle("/_next/*", routes.Pages)
	root.Handle("/favicon.ico", routes.Pages)

	root.Handle("/*", chain(routes.Pages,
		routes.Gatekeeper,
		routes.Locale,
	))

	return root
}
