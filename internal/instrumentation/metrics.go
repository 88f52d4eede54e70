package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrProvider  = "provider"
	attrModel     = "model"
	attrResult    = "result"
	attrTool      = "tool"
	attrSource    = "source"
	attrMember    = "member"
)

// Bucket boundaries in seconds.
var (
	httpBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	remoteBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	llmBuckets    = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}
)

// timed is a call counter paired with a latency histogram.
type timed struct {
	calls   metric.Int64Counter
	seconds metric.Float64Histogram
}

func (t timed) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if t.calls == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	t.calls.Add(ctx, 1, opt)
	t.seconds.Record(ctx, d.Seconds(), opt)
}

// Metrics records bandavail's counters and histograms. The zero value and a
// nil *Metrics record nothing.
type Metrics struct {
	http      timed
	googleAPI timed
	llm       timed
	tools     timed

	availabilityUpdates metric.Int64Counter
	cellsWritten        metric.Int64Counter
	datesUnmatched      metric.Int64Counter
	oauthAuth           metric.Int64Counter

	// detailedLabels adds the member name to availability metrics.
	detailedLabels bool
}

// meterBuilder collects instrument creation errors so NewMetrics
// reads as a list of instruments.
type meterBuilder struct {
	meter metric.Meter
	errs  []error
}

func (b *meterBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s counter: %w", name, err))
	}
	return c
}

func (b *meterBuilder) timed(prefix, what, unit string, buckets []float64) timed {
	h, err := b.meter.Float64Histogram(prefix+"_duration_seconds",
		metric.WithDescription(what+" duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s_duration_seconds histogram: %w", prefix, err))
	}
	return timed{
		calls:   b.counter(prefix+"s_total", "Total number of "+what+"s", unit),
		seconds: h,
	}
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := &meterBuilder{meter: meter}
	m := &Metrics{
		http:      b.timed("http_request", "HTTP request", "{request}", httpBuckets),
		googleAPI: b.timed("google_api_operation", "Google API operation", "{operation}", remoteBuckets),
		llm:       b.timed("llm_request", "language model request", "{request}", llmBuckets),
		tools:     b.timed("mcp_tool_invocation", "MCP tool invocation", "{invocation}", remoteBuckets),

		availabilityUpdates: b.counter("availability_updates_total", "Total number of availability update requests", "{update}"),
		cellsWritten:        b.counter("availability_cells_written_total", "Total number of schedule cells written", "{cell}"),
		datesUnmatched:      b.counter("availability_dates_unmatched_total", "Total number of parsed dates without a row in the schedule", "{date}"),
		oauthAuth:           b.counter("oauth_auth_total", "Total number of OAuth authentication attempts", "{attempt}"),

		detailedLabels: detailedLabels,
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHTTPRequest records one request. path should be a route pattern, not
// the raw URL path; see PathLabel.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.http.record(ctx, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, PathLabel(path)),
		attribute.String(attrStatus, strconv.Itoa(statusCode)))
}

// RecordGoogleAPIOperation records one call to a Google API. operation is one
// of the Operation constants.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.googleAPI.record(ctx, duration,
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status))
}

// RecordLLMRequest records one language model call.
func (m *Metrics) RecordLLMRequest(ctx context.Context, provider, model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llm.record(ctx, duration,
		attribute.String(attrProvider, provider),
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status))
}

// RecordToolInvocation records one MCP tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tools.record(ctx, duration,
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status))
}

// RecordAvailabilityUpdate records the outcome of one availability update.
// The member label is only attached when detailed labels are enabled.
func (m *Metrics) RecordAvailabilityUpdate(ctx context.Context, source, member, status string, cellsWritten, datesUnmatched int) {
	if m == nil || m.availabilityUpdates == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && member != "" {
		attrs = append(attrs, attribute.String(attrMember, member))
	}
	opt := metric.WithAttributes(attrs...)

	m.availabilityUpdates.Add(ctx, 1, opt)
	if cellsWritten > 0 {
		m.cellsWritten.Add(ctx, int64(cellsWritten), opt)
	}
	if datesUnmatched > 0 {
		m.datesUnmatched.Add(ctx, int64(datesUnmatched), opt)
	}
}

// RecordOAuthAuth records an OAuth callback outcome, one of the OAuthResult
// constants.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuth == nil {
		return
	}
	m.oauthAuth.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
