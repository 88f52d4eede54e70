package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/config"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/resources"
	"github.com/teemow/bandavail/internal/tools/availability_tools"
	"github.com/teemow/bandavail/internal/tools/common"
	"github.com/teemow/bandavail/internal/tools/google_tools"
)

func newMCPCmd() *cobra.Command {
	var (
		debugMode bool
		readOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output so
AI assistants can list members, view the schedule and update availability.

Authentication:
  The server uses the Google token written by 'bandavail login'. Assistants
  can also run the login through the google_get_auth_url and
  google_save_auth_code tools.

Safety Mode:
  Use --read-only to register only the tools that do not write to the sheet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.Config) {
				if debugMode {
					cfg.Log.Level = "debug"
				}
			}

			// stdout carries the protocol, so logs go to stderr
			rt, err := loadRuntime(os.Stderr, override, config.RequireGoogle)
			if err != nil {
				return err
			}
			return runMCP(rt, readOnly)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Only register tools that do not modify the sheet")

	return cmd
}

func runMCP(rt *runtime, readOnly bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Output = os.Stderr
	instrConfig.Logger = rt.logger

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var inst common.Instruments
	if provider.Enabled() {
		inst.Metrics = provider.Metrics()
		inst.Audit = instrumentation.NewAuditLoggerWithConfig(rt.logger, instrConfig.AuditLogging)
	}

	mcpSrv, err := newMCPServer(rt, inst, readOnly)
	if err != nil {
		return err
	}

	rt.logger.Info("bandavail MCP server starting on stdio",
		logging.Spreadsheet(rt.cfg.Sheets.SpreadsheetID),
		logging.Operation("mcp"))

	stdio := mcpserver.NewStdioServer(mcpSrv)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// newMCPServer creates the MCP server with all bandavail tools registered.
func newMCPServer(rt *runtime, inst common.Instruments, readOnly bool) (*mcpserver.MCPServer, error) {
	service, err := rt.newService(inst.Metrics, inst.Audit)
	if err != nil {
		return nil, err
	}
	opener := rt.newOpener(inst.Metrics)

	mcpSrv := mcpserver.NewMCPServer("bandavail", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	deps := toolDeps{
		google: google_tools.Deps{
			Login:       rt.newCodeLogin(),
			Tokens:      rt.tokenStore(),
			Instruments: inst,
		},
		availability: availability_tools.Deps{
			Service: service,
			Sheet: func(ctx context.Context) (availability.SheetClient, error) {
				return rt.localSheet(ctx, opener)
			},
			Instruments: inst,
			Logger:      rt.logger,
		},
	}
	if err := registerAllTools(mcpSrv, deps, readOnly || !service.CanUpdate()); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

// toolDeps are the collaborators of every tool group.
type toolDeps struct {
	google       google_tools.Deps
	availability availability_tools.Deps
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, d toolDeps, readOnly bool) error {
	// Define all tool registrations
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Google OAuth tools",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, d.google)
			},
		},
		{
			name: "Availability tools",
			register: func() error {
				return availability_tools.RegisterAvailabilityTools(mcpSrv, d.availability, readOnly)
			},
		},
		{
			name: "Schedule resources",
			register: func() error {
				return resources.RegisterScheduleResources(mcpSrv, d.availability.Service, resources.SheetProvider(d.availability.Sheet))
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
