// Package instrumentation provides OpenTelemetry instrumentation for bandavail.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Sheets API calls by operation and status
//   - google_api_operation_duration_seconds: Histogram of Sheets API call durations
//
// Language Model Metrics:
//   - llm_requests_total: Counter of chat completion calls by provider, model, status
//   - llm_request_duration_seconds: Histogram of chat completion latencies
//
// Availability Metrics:
//   - availability_updates_total: Counter of update requests by source and status
//   - availability_cells_written_total: Counter of schedule cells written
//   - availability_dates_unmatched_total: Counter of parsed dates with no sheet row
//
// OAuth and MCP Metrics:
//   - oauth_auth_total: Counter of OAuth callback outcomes
//   - mcp_tool_invocations_total, mcp_tool_invocation_duration_seconds
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>), Sheets API calls
// (google.sheets.<operation>) and language model calls (llm.openai.chat).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: bandavail)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
package instrumentation
