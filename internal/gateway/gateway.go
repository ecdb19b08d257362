// Package gateway is the HTTP surface of the context gateway.
//
// DESIGN: One http.Server, standard library mux, and a fixed middleware
// chain. The summarization filter runs in the request goroutine; the server
// itself is the only concurrency.
//
// FILES:
//   - gateway.go:    Gateway struct, lifecycle (New, Start, Shutdown, Run)
//   - router.go:     Route table and handlers
//   - filter.go:     Filter construction and per-request bookkeeping
//   - middleware.go: Panic recovery, request logging, security headers
//   - types.go:      Header names, limits, wire types
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/washu-tag/context-gateway/internal/config"
	"github.com/washu-tag/context-gateway/internal/monitoring"
	"github.com/washu-tag/context-gateway/internal/summarization"
)

// Gateway serves the filter and proxy endpoints.
type Gateway struct {
	config        *config.Config
	filter        *summarization.Filter
	server        *http.Server
	upstream      *url.URL
	proxy         *httputil.ReverseProxy
	transport     *http.Transport
	logger        *monitoring.Logger
	requestLogger *monitoring.RequestLogger
	metrics       *monitoring.MetricsCollector
	tracker       *monitoring.Tracker
	alerts        *monitoring.AlertManager
	lastStatus    atomic.Pointer[summarization.StatusData]
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithFilter replaces the filter built from config.
func WithFilter(f *summarization.Filter) Option {
	return func(g *Gateway) { g.filter = f }
}

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l *monitoring.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTracker sets the telemetry tracker. Defaults to one built from config.
func WithTracker(t *monitoring.Tracker) Option {
	return func(g *Gateway) { g.tracker = t }
}

// New creates a gateway for cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	upstream, err := url.Parse(cfg.Upstream.OllamaURL)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream.ollama_url %q", cfg.Upstream.OllamaURL)
	}

	g := &Gateway{
		config:   cfg,
		upstream: upstream,
		metrics:  monitoring.NewMetricsCollector(),
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: upstreamDialTimeout}).DialContext,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = monitoring.NewFromZerolog(log.Logger)
	}
	g.requestLogger = monitoring.NewRequestLogger(g.logger)
	g.alerts = monitoring.NewAlertManager(g.logger, cfg.Monitoring.AlertConfig())

	if g.tracker == nil {
		tracker, err := monitoring.NewTracker(cfg.Monitoring.TelemetryConfig())
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		g.tracker = tracker
	}

	if g.filter == nil {
		filter, err := NewFilter(ctx, cfg.Summarization, &http.Client{Transport: g.transport}, g.logger.Zerolog())
		if err != nil {
			return nil, err
		}
		g.filter = filter
	}

	g.proxy = g.newProxy()
	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g, nil
}

// Handler returns the fully wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	var h http.Handler = g.routes()
	h = g.security(h)
	h = g.loggingMiddleware(h)
	h = g.panicRecovery(h)
	return h
}

// Metrics returns the gateway's metrics collector.
func (g *Gateway) Metrics() *monitoring.MetricsCollector {
	return g.metrics
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (g *Gateway) Start() error {
	g.logger.Info().
		Str("addr", g.server.Addr).
		Str("upstream", g.upstream.String()).
		Int("token_threshold", g.filter.Config().TokenThreshold).
		Str("summarizer", g.filter.Config().Summarizer.Provider).
		Msg("gateway starting")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)
	g.transport.CloseIdleConnections()
	if cerr := g.tracker.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Run starts the server and shuts it down when ctx is cancelled, waiting up
// to server.shutdown_timeout for in-flight requests.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- g.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g.logger.Info().Dur("timeout", timeout).Msg("gateway shutting down")
	if err := g.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return <-errCh
}
