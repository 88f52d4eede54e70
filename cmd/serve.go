package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/config"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		addr           string
		baseURL        string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web application",
		Long: `Start the bandavail web application.

Members sign in with Google, pick their name and describe their availability
in plain language. The server exposes:
  - /                      the availability page
  - /authorize             Google sign-in
  - /api/...               the JSON API used by the page
  - /healthz, /readyz      health checks

OAuth Configuration:
  The OAuth client config comes from CLIENT_CONFIG (inline JSON) or
  CLIENT_CONFIG_FILE. The redirect URI <base-url>/oauth2callback must be
  registered for the client. HTTPS is required unless the base URL is a
  loopback address.

Sessions:
  Session cookies are encrypted with a key derived from SECRET_KEY. Without it
  a random key is used and sessions do not survive a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.Config) {
				if debugMode {
					cfg.Log.Level = "debug"
				}
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}
				if cmd.Flags().Changed("base-url") {
					cfg.Server.BaseURL = baseURL
				}
				if cmd.Flags().Changed("metrics-enabled") {
					cfg.Metrics.Enabled = metricsEnabled
				}
				if cmd.Flags().Changed("metrics-addr") {
					cfg.Metrics.Addr = metricsAddr
				}
			}

			rt, err := loadRuntime(os.Stderr, override, config.RequireGoogle, config.RequireServer)
			if err != nil {
				return err
			}
			return runServe(rt)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP server address. Can also use BANDAVAIL_ADDR or PORT env vars.")
	cmd.Flags().StringVar(&baseURL, "base-url", config.DefaultBaseURL, "Public base URL used for the OAuth redirect. Can also use BANDAVAIL_BASE_URL env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(rt *runtime) error {
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := rt.logger

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Logger = logger

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var (
		metrics *instrumentation.Metrics
		audit   *instrumentation.AuditLogger
	)
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	sessions, err := newSessionStore(rt)
	if err != nil {
		return err
	}

	service, err := rt.newService(metrics, audit)
	if err != nil {
		return err
	}

	sc, err := server.NewServerContext(ctx, server.Dependencies{
		Service:   service,
		OpenSheet: server.OpenerFunc(rt.newOpener(metrics)),
		Flow:      auth.NewFlow(rt.oauth),
		Sessions:  sessions,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	app, err := server.NewApp(sc, server.AppConfig{
		BaseURL:             rt.cfg.Server.BaseURL,
		CORSOrigins:         rt.cfg.Server.CORSOrigins,
		UpdateRatePerMinute: rt.cfg.Server.UpdateRatePerMinute,
		UpdateBurst:         rt.cfg.Server.UpdateBurst,
		Metrics:             metrics,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web application: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(gctx, server.NewHTTPServer(rt.cfg.Server.Addr, app), logger)
	})

	// Start metrics server if enabled
	if rt.cfg.Metrics.Enabled && !provider.PrometheusEnabled() {
		logger.Warn("metrics server not started, it needs METRICS_EXPORTER=prometheus",
			slog.String("exporter", instrConfig.MetricsExporter),
			slog.Bool("instrumentation_enabled", provider.Enabled()))
	}
	if rt.cfg.Metrics.Enabled && provider.PrometheusEnabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     rt.cfg.Metrics.Addr,
			Provider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		g.Go(func() error {
			return metricsServer.Run(gctx, logger)
		})
	}

	// Stop reporting ready as soon as shutdown begins
	g.Go(func() error {
		<-gctx.Done()
		app.Health().SetReady(false)
		return nil
	})

	logger.Info("bandavail web application starting",
		slog.String("addr", rt.cfg.Server.Addr),
		slog.String("base_url", rt.cfg.Server.BaseURL),
		slog.String("redirect_uri", rt.cfg.RedirectURL()),
		slog.Bool("updates_enabled", service.CanUpdate()),
		slog.Bool("metrics_enabled", rt.cfg.Metrics.Enabled))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("bandavail web application stopped")
	return nil
}

// newSessionStore builds the encrypted cookie store. A missing secret yields
// a random per-process key.
func newSessionStore(rt *runtime) (*auth.CookieStore, error) {
	var key []byte
	if secret := rt.cfg.Server.SessionSecret; secret != "" {
		key = auth.KeyFromSecret(secret)
	} else {
		var err error
		key, err = auth.GenerateKey()
		if err != nil {
			return nil, err
		}
		rt.logger.Warn("SECRET_KEY is not set; using a random session key, sessions will not survive a restart")
	}

	c, err := auth.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cipher: %w", err)
	}
	return auth.NewCookieStore(c, rt.cfg.UseSecureCookies()), nil
}
