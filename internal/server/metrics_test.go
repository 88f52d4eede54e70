package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bandavail/internal/instrumentation"
)

func newProvider(t *testing.T, cfg instrumentation.Config) *instrumentation.Provider {
	t.Helper()
	cfg.ServiceName = "bandavail-test"
	provider, err := instrumentation.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func prometheusProvider(t *testing.T) *instrumentation.Provider {
	return newProvider(t, instrumentation.Config{
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
}

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      func(t *testing.T) MetricsServerConfig
		wantAddr    string
		errContains string
	}{
		{
			name: "explicit addr",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Addr: ":9091", Provider: prometheusProvider(t)}
			},
			wantAddr: ":9091",
		},
		{
			name: "default addr",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Provider: prometheusProvider(t)}
			},
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:        "nil provider",
			config:      func(t *testing.T) MetricsServerConfig { return MetricsServerConfig{} },
			errContains: "instrumentation provider is required",
		},
		{
			name: "disabled provider",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Provider: newProvider(t, instrumentation.Config{})}
			},
			errContains: "not enabled",
		},
		{
			name: "push exporter",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Provider: newProvider(t, instrumentation.Config{
					Enabled:         true,
					MetricsExporter: instrumentation.ExporterStdout,
					TracingExporter: instrumentation.ExporterNone,
					Output:          io.Discard,
					Logger:          slog.New(slog.DiscardHandler),
				})}
			},
			errContains: "prometheus metrics exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewMetricsServer(tt.config(t))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, server.Addr())
		})
	}
}

func TestMetricsServerHandler(t *testing.T) {
	provider := prometheusProvider(t)
	server, err := NewMetricsServer(MetricsServerConfig{Provider: provider})
	require.NoError(t, err)

	provider.Metrics().RecordAvailabilityUpdate(context.Background(), instrumentation.SourceWeb, "Alice", instrumentation.StatusSuccess, 2, 1)

	rec := httptest.NewRecorder()
	server.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "availability_updates_total")

	rec = httptest.NewRecorder()
	server.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsServerRunStopsOnCancel(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Provider: prometheusProvider(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, slog.New(slog.DiscardHandler)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
