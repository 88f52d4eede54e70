package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestMetrics_Record(t *testing.T) {
	provider := newTestProvider(t)
	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}
	ctx := context.Background()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/members", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "", 404, 5*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceSheets, OperationGetValues, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceSheets, OperationBatchUpdate, StatusError, 500*time.Millisecond)
	metrics.RecordLLMRequest(ctx, ProviderOpenAI, "gpt-4o-mini", StatusSuccess, 2*time.Second)
	metrics.RecordAvailabilityUpdate(ctx, SourceWeb, "Alice", StatusSuccess, 3, 1)
	metrics.RecordAvailabilityUpdate(ctx, SourceMCP, "", StatusError, 0, 0)
	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthAuth(ctx, OAuthResultStateMismatch)
	metrics.RecordToolInvocation(ctx, "availability_update", StatusSuccess, time.Second)
}

func TestMetrics_NoopRecorder(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"zero value": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			// Should not panic
			m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
			m.RecordGoogleAPIOperation(ctx, ServiceSheets, OperationGetSpreadsheet, StatusSuccess, time.Millisecond)
			m.RecordLLMRequest(ctx, ProviderOpenAI, "gpt-4o-mini", StatusError, time.Millisecond)
			m.RecordAvailabilityUpdate(ctx, SourceCLI, "Bob", StatusSuccess, 1, 0)
			m.RecordOAuthAuth(ctx, OAuthResultFailure)
			m.RecordToolInvocation(ctx, "availability_list_members", StatusSuccess, time.Millisecond)
		})
	}
}
