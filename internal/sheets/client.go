package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/schedule"
)

// Default A1 ranges read from the first sheet.
const (
	DefaultGridRange     = "A1:Z1000"
	DefaultHeaderRange   = "A1:Z1"
	DefaultScheduleRange = "A1:Z100"
)

// valueInputRaw stores values exactly as sent.
const valueInputRaw = "RAW"

// ErrNoSheetsFound is returned when the spreadsheet has no sheets.
var ErrNoSheetsFound = apperr.New(apperr.KindNoSheetsFound, "no sheets found in spreadsheet")

// Ranges are the A1 ranges (without sheet title) the client reads.
type Ranges struct {
	Grid     string
	Header   string
	Schedule string
}

// DefaultRanges returns the default ranges.
func DefaultRanges() Ranges {
	return Ranges{
		Grid:     DefaultGridRange,
		Header:   DefaultHeaderRange,
		Schedule: DefaultScheduleRange,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithRanges overrides the ranges read. Empty fields keep their defaults.
func WithRanges(r Ranges) Option {
	return func(c *Client) {
		if r.Grid != "" {
			c.ranges.Grid = r.Grid
		}
		if r.Header != "" {
			c.ranges.Header = r.Header
		}
		if r.Schedule != "" {
			c.ranges.Schedule = r.Schedule
		}
	}
}

// WithMetrics records a google_api_operations_total sample per call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for per-call debug logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client accesses the first sheet of one spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	ranges        Ranges
	metrics       *instrumentation.Metrics
	logger        *slog.Logger

	// title caches the first sheet's title for the lifetime of the client.
	title string
}

// NewClient wraps an authenticated Sheets service.
func NewClient(svc *sheetsapi.Service, spreadsheetID string, opts ...Option) *Client {
	c := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ranges:        DefaultRanges(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchGrid reads the schedule grid used for reconciliation.
func (c *Client) FetchGrid(ctx context.Context) (schedule.Grid, error) {
	grid, err := c.readRange(ctx, c.ranges.Grid)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, schedule.ErrEmptySheet
	}
	return grid, nil
}

// FetchHeader reads the header row. An empty row yields an empty slice.
func (c *Client) FetchHeader(ctx context.Context) ([]string, error) {
	grid, err := c.readRange(ctx, c.ranges.Header)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return []string{}, nil
	}
	return grid[0], nil
}

// FetchSchedule reads the range shown in the schedule view.
func (c *Client) FetchSchedule(ctx context.Context) (schedule.Grid, error) {
	grid, err := c.readRange(ctx, c.ranges.Schedule)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, schedule.ErrEmptySheet
	}
	return grid, nil
}

// ApplyUpdates writes all updates in one batch request. No request is made
// for an empty batch.
func (c *Client) ApplyUpdates(ctx context.Context, updates []schedule.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	title, err := c.sheetTitle(ctx)
	if err != nil {
		return err
	}

	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheetsapi.ValueRange{
			Range:  CellRange(title, u.Row, u.Col),
			Values: [][]interface{}{{u.Value}},
		})
	}
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputRaw,
		Data:             data,
	}

	return c.observe(ctx, instrumentation.OperationBatchUpdate, "", func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update %d cell(s): %w", len(updates), err)
		}
		return nil
	})
}

// readRange reads an A1 range of the first sheet as strings.
func (c *Client) readRange(ctx context.Context, a1 string) (schedule.Grid, error) {
	title, err := c.sheetTitle(ctx)
	if err != nil {
		return nil, err
	}
	rng := QualifiedRange(title, a1)

	var grid schedule.Grid
	err = c.observe(ctx, instrumentation.OperationGetValues, rng, func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to read range %s: %w", rng, err)
		}
		grid = toGrid(resp.Values)
		return nil
	})
	return grid, err
}

// sheetTitle returns the title of the first sheet.
func (c *Client) sheetTitle(ctx context.Context) (string, error) {
	if c.title != "" {
		return c.title, nil
	}

	err := c.observe(ctx, instrumentation.OperationGetSpreadsheet, "", func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to get spreadsheet: %w", err)
		}
		if len(resp.Sheets) == 0 || resp.Sheets[0].Properties == nil {
			return ErrNoSheetsFound
		}
		c.title = resp.Sheets[0].Properties.Title
		return nil
	})
	return c.title, err
}

// observe runs one backend call inside a span and records its outcome.
func (c *Client) observe(ctx context.Context, operation, rng string, fn func(context.Context) error) error {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithSpreadsheet(logging.ShortHash(c.spreadsheetID)).
		WithRange(rng).
		WithReadOnly(operation != instrumentation.OperationBatchUpdate).
		Build()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceSheets, operation, attrs...)
	defer span.End()

	start := time.Now()
	err := classify(fn(ctx))
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceSheets, operation, status, duration)

	c.logger.DebugContext(ctx, "sheets call",
		logging.Operation(operation),
		logging.Spreadsheet(c.spreadsheetID),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
		logging.Err(err))
	return err
}

// classify tags credential failures as not authenticated.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return apperr.Wrap(apperr.KindNotAuthenticated, err, "Google rejected the credentials")
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return apperr.Wrap(apperr.KindNotAuthenticated, err, "failed to refresh Google token")
	}
	return err
}

func toGrid(values [][]interface{}) schedule.Grid {
	grid := make(schedule.Grid, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			if s, ok := v.(string); ok {
				cells[i] = s
			} else if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		grid = append(grid, cells)
	}
	return grid
}
