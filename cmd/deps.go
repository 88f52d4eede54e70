package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/config"
	"github.com/teemow/bandavail/internal/google"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/parser"
	"github.com/teemow/bandavail/internal/sheets"
)

// runtime bundles what every command builds from the configuration.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	oauth  *oauth2.Config
}

// loadRuntime loads the configuration, lets override apply command flags,
// validates it and builds the logger, which writes to logOut.
func loadRuntime(logOut io.Writer, override func(*config.Config), reqs ...config.Requirement) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(reqs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}

	clientJSON, err := cfg.OAuthClientJSON()
	if err != nil {
		return nil, err
	}
	rt.oauth, err = google.ConfigFromJSON(clientJSON, cfg.RedirectURL())
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// newService builds the availability service. Without an OpenAI key the
// service only supports the read operations.
func (rt *runtime) newService(metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) (*availability.Service, error) {
	loc, err := rt.cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []availability.Option{
		availability.WithLocation(loc),
		availability.WithMetrics(metrics),
		availability.WithAuditLogger(audit),
		availability.WithLogger(rt.logger),
	}

	if rt.cfg.OpenAI.APIKey == "" {
		rt.logger.Warn("OPENAI_API_KEY is not set; availability updates are disabled")
		return availability.NewService(nil, opts...), nil
	}

	p, err := parser.New(parser.Config{
		APIKey:  rt.cfg.OpenAI.APIKey,
		Model:   rt.cfg.OpenAI.Model,
		BaseURL: rt.cfg.OpenAI.BaseURL,
		Timeout: rt.cfg.OpenAI.Timeout,
	}, parser.WithMetrics(metrics), parser.WithLogger(rt.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create availability parser: %w", err)
	}
	return availability.NewService(p, opts...), nil
}

// newOpener builds the Sheets client factory for the configured spreadsheet.
func (rt *runtime) newOpener(metrics *instrumentation.Metrics) *sheets.Opener {
	return sheets.NewOpener(rt.oauth, rt.cfg.Sheets.SpreadsheetID,
		sheets.WithRanges(sheets.Ranges{
			Grid:     rt.cfg.Sheets.GridRange,
			Header:   rt.cfg.Sheets.HeaderRange,
			Schedule: rt.cfg.Sheets.ScheduleRange,
		}),
		sheets.WithMetrics(metrics),
		sheets.WithLogger(rt.logger),
	)
}

// tokenStore is the token file shared by the CLI and the MCP server.
func (rt *runtime) tokenStore() *google.FileTokenStore {
	return google.NewFileTokenStore(rt.cfg.Google.TokenFile)
}

// newCodeLogin starts copy-paste logins against the configured client.
func (rt *runtime) newCodeLogin() *auth.CodeLogin {
	return auth.NewCodeLogin(auth.NewFlow(rt.oauth))
}

// localSheet opens the spreadsheet with the stored token.
func (rt *runtime) localSheet(ctx context.Context, opener *sheets.Opener) (availability.SheetClient, error) {
	ts, err := rt.tokenStore().TokenSource(ctx, rt.oauth)
	if err != nil {
		return nil, err
	}
	client, err := opener.OpenTokenSource(ctx, ts)
	if err != nil {
		return nil, err
	}
	return client, nil
}
