package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/parser"
	"github.com/teemow/bandavail/internal/schedule"
)

// SheetClient reads and writes the schedule sheet for one credential.
type SheetClient interface {
	FetchGrid(ctx context.Context) (schedule.Grid, error)
	FetchHeader(ctx context.Context) ([]string, error)
	FetchSchedule(ctx context.Context) (schedule.Grid, error)
	ApplyUpdates(ctx context.Context, updates []schedule.CellUpdate) error
}

// Parser turns free text into dates and a status.
type Parser interface {
	Parse(ctx context.Context, text string, today time.Time) (*parser.Result, error)
}

// ErrParserUnavailable is returned by UpdateAvailability when no parser is
// configured.
var ErrParserUnavailable = errors.New("availability parser is not configured (OPENAI_API_KEY)")

// ErrMissingFields is returned when the member name or the availability text
// is empty.
var ErrMissingFields = apperr.New(apperr.KindInvalidInput, "Missing memberName or availabilityText")

// UpdateResult reports one availability update.
type UpdateResult struct {
	Message       string          `json:"message"`
	Dates         []string        `json:"dates"`
	Status        schedule.Status `json:"status"`
	UpdatedCount  int             `json:"updated_count"`
	DatesNotFound []string        `json:"dates_not_found"`
}

// Service implements the availability operations.
type Service struct {
	parser   Parser
	location *time.Location
	now      func() time.Time
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records availability update metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditLogger records every applied update.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(s *Service) {
		s.audit = a
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. p may be nil when only read operations are
// needed.
func NewService(p Parser, opts ...Option) *Service {
	s := &Service{
		parser:   p,
		location: time.Local,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanUpdate reports whether a parser is configured.
func (s *Service) CanUpdate() bool {
	return s.parser != nil
}

// Members returns the member names from the header row.
func (s *Service) Members(ctx context.Context, sheet SheetClient) ([]string, error) {
	header, err := sheet.FetchHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	if len(header) == 0 {
		return []string{}, nil
	}
	return schedule.Members(schedule.Grid{header})
}

// Schedule returns the schedule view grid.
func (s *Service) Schedule(ctx context.Context, sheet SheetClient) (schedule.Grid, error) {
	grid, err := sheet.FetchSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	return grid, nil
}

// UpdateAvailability parses text and writes the resulting markers into the
// member's column.
func (s *Service) UpdateAvailability(ctx context.Context, sheet SheetClient, memberName, text string) (*UpdateResult, error) {
	source := SourceFromContext(ctx)
	ctx, span := instrumentation.StartUpdateSpan(ctx, source, memberName)
	defer span.End()

	result, err := s.updateAvailability(ctx, sheet, memberName, text)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordAvailabilityUpdate(ctx, source, memberName, instrumentation.StatusError, 0, 0)
		return nil, err
	}
	instrumentation.AddSpanEvent(span, "reconciled",
		attribute.Int("cells_written", result.UpdatedCount),
		attribute.Int("dates_not_found", len(result.DatesNotFound)))
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordAvailabilityUpdate(ctx, source, memberName, instrumentation.StatusSuccess,
		result.UpdatedCount, len(result.DatesNotFound))

	change := instrumentation.NewAvailabilityChange(ctx, source, memberName)
	change.Status = string(result.Status)
	change.Dates = result.Dates
	change.CellsWritten = result.UpdatedCount
	change.DatesUnmatched = result.DatesNotFound
	change.Text = text
	s.audit.LogAvailabilityChange(change)

	return result, nil
}

func (s *Service) updateAvailability(ctx context.Context, sheet SheetClient, memberName, text string) (*UpdateResult, error) {
	if memberName == "" || text == "" {
		return nil, ErrMissingFields
	}
	if s.parser == nil {
		return nil, ErrParserUnavailable
	}

	today := s.now().In(s.location)
	parsed, err := s.parser.Parse(ctx, text, today)
	if err != nil {
		return nil, fmt.Errorf("failed to parse availability: %w", err)
	}

	grid, err := sheet.FetchGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	plan, err := schedule.Reconcile(grid, memberName, parsed.Dates, parsed.Status)
	if err != nil {
		return nil, err
	}

	if err := sheet.ApplyUpdates(ctx, plan.Updates); err != nil {
		return nil, fmt.Errorf("failed to write availability: %w", err)
	}

	s.logger.InfoContext(ctx, "availability updated",
		logging.Member(memberName),
		slog.String("availability", string(parsed.Status)),
		slog.Int("cells_written", len(plan.Updates)),
		slog.Int("dates_not_found", len(plan.Unmatched)))

	return &UpdateResult{
		Message:       FormatMessage(len(plan.Updates), plan.Unmatched),
		Dates:         parsed.Dates,
		Status:        parsed.Status,
		UpdatedCount:  len(plan.Updates),
		DatesNotFound: plan.Unmatched,
	}, nil
}

// FormatMessage builds the user-facing summary of an update.
func FormatMessage(updated int, notFound []string) string {
	msg := fmt.Sprintf("Updated %d date(s) successfully", updated)
	if len(notFound) > 0 {
		msg += ". Dates not found in sheet: " + strings.Join(notFound, ", ")
	}
	return msg
}

type sourceKey struct{}

// ContextWithSource tags ctx with the surface (web, mcp, cli) a request came
// from, for metrics and audit records.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the request surface, or "unknown".
func SourceFromContext(ctx context.Context) string {
	if source, ok := ctx.Value(sourceKey{}).(string); ok && source != "" {
		return source
	}
	return instrumentation.StatusUnknown
}
