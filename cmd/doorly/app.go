package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/doorly/internal/backend"
	"github.com/nkiryanov/doorly/internal/handlers"
	"github.com/nkiryanov/doorly/internal/handlers/middleware"
	"github.com/nkiryanov/doorly/internal/locale"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/metrics"
	"github.com/nkiryanov/doorly/internal/proxy"
	"github.com/nkiryanov/doorly/internal/service/session"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Metrics registry, the default one is not used to keep tests isolated
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize services
	client, err := backend.NewClient(backend.Config{
		BaseURL: c.BackendAddr,
		Timeout: c.BackendTimeout,
		Retries: c.BackendRetries,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating backend client: %w", err)
	}

	locales, err := locale.New(c.Locales, c.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("error while configuring locales: %w", err)
	}

	store := session.NewCookieStore(c.SecureCookies())
	refresher := session.NewRefresher(client, l)

	gatekeeper := middleware.NewGatekeeper(store, refresher, locales, l, m,
		middleware.WithExpiryBuffer(c.ExpiryBuffer),
	)

	backendProxy, err := proxy.New(proxy.Config{Target: c.BackendAddr, ForwardAccessToken: true}, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating backend proxy: %w", err)
	}

	pages := handlers.NewPage()
	if c.RendererAddr != "" {
		pages, err = proxy.New(proxy.Config{Target: c.RendererAddr}, l)
		if err != nil {
			return nil, fmt.Errorf("error while creating renderer proxy: %w", err)
		}
	}

	mux := handlers.NewRouter(handlers.Routes{
		Auth:         handlers.NewAuth(client, store, l).Handler(),
		BackendProxy: backendProxy,
		Pages:        pages,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Gatekeeper:   gatekeeper.Handler,
		Locale:       locales.Handler,
	}, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
