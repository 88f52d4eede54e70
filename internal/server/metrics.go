package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/bandavail/internal/instrumentation"
)

// DefaultMetricsAddr keeps /metrics off the public port.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig configures the metrics listener.
type MetricsServerConfig struct {
	Addr     string
	Provider *instrumentation.Provider
}

// MetricsServer exposes the Prometheus registry the instrumentation provider
// writes to, on its own port.
type MetricsServer struct {
	addr string
}

// NewMetricsServer validates that there is something to scrape.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	switch {
	case config.Provider == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !config.Provider.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	case !config.Provider.PrometheusEnabled():
		return nil, errors.New("metrics server requires the prometheus metrics exporter")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	return &MetricsServer{addr: addr}, nil
}

func (s *MetricsServer) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
	return r
}

// Run serves metrics until ctx is done, then shuts down gracefully.
func (s *MetricsServer) Run(ctx context.Context, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return Serve(ctx, srv, logger.With(slog.String("server", "metrics")))
}

// Addr returns the address the server binds to.
func (s *MetricsServer) Addr() string {
	return s.addr
}
