package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every bandavail span.
const TracerName = "github.com/teemow/bandavail"

// Span attribute keys.
const (
	SpanAttrTool        = "mcp.tool"
	SpanAttrService     = "google.service"
	SpanAttrOperation   = "google.operation"
	SpanAttrSpreadsheet = "sheets.spreadsheet" // hashed, never the raw id
	SpanAttrRange       = "sheets.range"
	SpanAttrReadOnly    = "op.read_only"
	SpanAttrMember      = "band.member"
	SpanAttrSource      = "band.source"
	SpanAttrLLMProvider = "llm.provider"
	SpanAttrLLMModel    = "llm.model"
)

// SpanAttributeBuilder collects optional span attributes, skipping empty
// values.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

func (b *SpanAttributeBuilder) str(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// WithSpreadsheet adds the spreadsheet attribute. Pass a hashed id.
func (b *SpanAttributeBuilder) WithSpreadsheet(id string) *SpanAttributeBuilder {
	return b.str(SpanAttrSpreadsheet, id)
}

// WithRange adds the A1 range read or written.
func (b *SpanAttributeBuilder) WithRange(a1 string) *SpanAttributeBuilder {
	return b.str(SpanAttrRange, a1)
}

// WithMember adds the band member.
func (b *SpanAttributeBuilder) WithMember(member string) *SpanAttributeBuilder {
	return b.str(SpanAttrMember, member)
}

// WithReadOnly marks whether the operation writes to the sheet.
func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func startSpan(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(extra...),
		trace.WithAttributes(attrs...),
	)
}

// StartToolSpan starts a server span named tool.<name> for an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "tool."+toolName, trace.SpanKindServer, attrs,
		attribute.String(SpanAttrTool, toolName))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "google."+service+"."+operation, trace.SpanKindClient, attrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation))
}

// StartLLMSpan starts a client span named llm.<provider>.chat.
func StartLLMSpan(ctx context.Context, provider, model string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "llm."+provider+".chat", trace.SpanKindClient, attrs,
		attribute.String(SpanAttrLLMProvider, provider),
		attribute.String(SpanAttrLLMModel, model))
}

// StartUpdateSpan starts the span that parents the parse, read and write of
// one availability update.
func StartUpdateSpan(ctx context.Context, source, member string) (context.Context, trace.Span) {
	return startSpan(ctx, "availability.update", trace.SpanKindInternal,
		NewSpanAttributeBuilder().WithMember(member).Build(),
		attribute.String(SpanAttrSource, source))
}

// SetSpanError records err on the span. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds a named event to the span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace id of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
