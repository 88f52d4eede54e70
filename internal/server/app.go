package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/bandavail/internal/instrumentation"
)

// HTTP server timeouts.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultReadTimeout       = 30 * time.Second
	// DefaultWriteTimeout covers an LLM call plus a sheet round trip.
	DefaultWriteTimeout = 90 * time.Second
	DefaultIdleTimeout  = 120 * time.Second

	DefaultShutdownTimeout = 30 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// AppConfig configures the web application.
type AppConfig struct {
	// BaseURL is the externally visible URL. HTTP is only allowed for
	// loopback hosts.
	BaseURL     string
	CORSOrigins []string

	// UpdateRatePerMinute limits availability updates per client IP; 0 disables.
	UpdateRatePerMinute int
	UpdateBurst         int

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// App is the bandavail web application.
type App struct {
	sc      *ServerContext
	router  chi.Router
	health  *HealthChecker
	limiter *IPRateLimiter
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	cors    []string
}

// NewApp creates the web application and registers its routes.
func NewApp(sc *ServerContext, cfg AppConfig) (*App, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	if err := validateHTTPSRequirement(cfg.BaseURL); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		sc:      sc,
		health:  NewHealthChecker(sc),
		limiter: NewIPRateLimiter(cfg.UpdateRatePerMinute, cfg.UpdateBurst),
		metrics: cfg.Metrics,
		logger:  logger,
		cors:    normalizeOrigins(cfg.CORSOrigins),
	}
	a.router = a.routes()
	return a, nil
}

func (a *App) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger))
	r.Use(instrument(a.metrics))
	r.Use(cors(a.cors))

	a.health.RegisterHealthEndpoints(r)

	r.Group(func(r chi.Router) {
		r.Use(loadSession(a.sc.sessions, a.logger))

		r.Get("/", a.handleIndex)
		r.Get("/authorize", a.handleAuthorize)
		r.Get("/oauth2callback", a.handleOAuthCallback)
		r.Get("/logout", a.handleLogout)

		r.Route("/api", func(r chi.Router) {
			r.Get("/members", a.requireCredentials(a.handleMembers))
			r.With(a.limiter.Middleware).
				Post("/update-availability", a.handleUpdateAvailability)
			r.Get("/view-schedule", a.requireCredentials(a.handleViewSchedule))
			r.Get("/export-schedule", a.requireCredentials(a.handleExportSchedule))
		})
	})

	return r
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Health returns the health checker, e.g. to mark the app not ready during
// shutdown.
func (a *App) Health() *HealthChecker {
	return a.health
}

// NewHTTPServer wraps h in an http.Server with the default timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	return ServeListener(ctx, srv, ln, logger)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server", slog.String("addr", ln.Addr().String()))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// validateHTTPSRequirement ensures OAuth redirects use HTTPS.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth requires HTTPS for non-loopback hosts (got: %s). Use HTTPS or localhost for development", baseURL)
		}
		return nil
	default:
		return fmt.Errorf("base URL must use http or https scheme (got: %s)", u.Scheme)
	}
}
