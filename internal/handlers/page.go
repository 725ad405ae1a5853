package handlers

import (
	"net/http"

	"github.com/nkiryanov/doorly/internal/handlers/render"
	"github.com/nkiryanov/doorly/internal/handlers/sessionctx"
	"github.com/nkiryanov/doorly/internal/locale"
)

type PageResponse struct {
	Locale        string `json:"locale"`
	Path          string `json:"path"`
	Route         string `json:"route"`
	Session       string `json:"session"`
	Authenticated bool   `json:"authenticated"`
}

// NewPage answers allowed page requests when no renderer is configured
func NewPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ := sessionctx.FromContext(r.Context())

		l, ok := locale.FromContext(r.Context())
		if !ok {
			l = info.Locale
		}

		render.JSON(w, PageResponse{
			Locale:        l,
			Path:          r.URL.Path,
			Route:         info.Route.String(),
			Session:       info.State.String(),
			Authenticated: info.Authenticated(),
		})
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, map[string]string{"status": "ok"})
}
