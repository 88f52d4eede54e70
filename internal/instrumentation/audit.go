package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ToolInvocation is the audit record of one MCP tool call.
type ToolInvocation struct {
	Tool    string
	Member  string
	TraceID string

	Started  time.Time
	Duration time.Duration
	Success  bool
	Error    string
}

// NewToolInvocation starts the clock on a tool call. The trace id is taken
// from the span in ctx, if any.
func NewToolInvocation(ctx context.Context, tool, member string) *ToolInvocation {
	return &ToolInvocation{
		Tool:    tool,
		Member:  member,
		TraceID: GetTraceID(ctx),
		Started: time.Now(),
	}
}

// Finish stops the clock. A call fails when err is set or the handler
// returned an error result.
func (ti *ToolInvocation) Finish(failed bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.Started)
	ti.Success = !failed && err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) logArgs() []any {
	args := []any{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	for _, kv := range [][2]string{{"member", ti.Member}, {"trace_id", ti.TraceID}, {"error", ti.Error}} {
		if kv[1] != "" {
			args = append(args, slog.String(kv[0], kv[1]))
		}
	}
	return args
}

// AvailabilityChange is the audit record of one availability update that
// reached the spreadsheet.
type AvailabilityChange struct {
	EventID string

	Source string
	Member string
	Status string
	Dates  []string

	CellsWritten   int
	DatesUnmatched []string

	// Text is the submitted statement. Only logged with IncludePII.
	Text string

	TraceID string
}

// NewAvailabilityChange creates an audit record with a fresh event id.
func NewAvailabilityChange(ctx context.Context, source, member string) *AvailabilityChange {
	return &AvailabilityChange{
		EventID: uuid.NewString(),
		Source:  source,
		Member:  member,
		TraceID: GetTraceID(ctx),
	}
}

func (c *AvailabilityChange) logArgs(includeText bool) []any {
	args := []any{
		slog.String("event_id", c.EventID),
		slog.String("source", c.Source),
		slog.String("member", c.Member),
		slog.String("availability", c.Status),
		slog.Any("dates", c.Dates),
		slog.Int("cells_written", c.CellsWritten),
		slog.Any("dates_not_found", c.DatesUnmatched),
	}
	if c.TraceID != "" {
		args = append(args, slog.String("trace_id", c.TraceID))
	}
	if includeText && c.Text != "" {
		args = append(args, slog.String("text", c.Text))
	}
	return args
}

// AuditLogger writes audit events for tool calls and schedule changes. A nil
// or disabled AuditLogger drops them.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that omits submitted text.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a finished tool call, at warn level when it failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	if ti.Success {
		al.logger.Info("tool_executed", ti.logArgs()...)
		return
	}
	al.logger.Warn("tool_failed", ti.logArgs()...)
}

// LogAvailabilityChange logs an availability update written to the sheet.
func (al *AuditLogger) LogAvailabilityChange(c *AvailabilityChange) {
	if al == nil || !al.enabled {
		return
	}
	al.logger.Info("availability_changed", c.logArgs(al.includePII)...)
}
