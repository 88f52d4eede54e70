package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "", AppConfig{})

	get := func(path string) (*httptest.ResponseRecorder, map[string]any) {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil), nil)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec, body
	}

	rec, body := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, body["status"])

	rec, body = get("/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, body["status"])

	rec, body = get("/healthz/detailed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, body["parser"])
	assert.NotEmpty(t, body["uptime"])

	env.app.Health().SetReady(false)
	rec, body = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, body["checks"].(map[string]any)["ready"])
	env.app.Health().SetReady(true)

	require.NoError(t, env.sc.Shutdown())
	assert.True(t, env.sc.IsShutdown())
	assert.Error(t, env.sc.Context().Err())

	rec, body = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, body["checks"].(map[string]any)["shutdown"])

	rec, body = get("/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])

	// Liveness is unaffected by shutdown.
	rec, _ = get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheckerWithoutContext(t *testing.T) {
	h := NewHealthChecker(nil)
	assert.True(t, h.IsReady())
	assert.Equal(t, healthStatusUnconfigured, h.parserStatus())

	rec := httptest.NewRecorder()
	h.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	rec = httptest.NewRecorder()
	h.handleDetailed(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), healthStatusNotReady)
}

func TestIPRateLimiter(t *testing.T) {
	assert.Nil(t, NewIPRateLimiter(0, 5))

	var disabled *IPRateLimiter
	assert.True(t, disabled.Allow("192.0.2.1"))

	l := NewIPRateLimiter(60, 2)
	assert.True(t, l.Allow("192.0.2.1"))
	assert.True(t, l.Allow("192.0.2.1"))
	assert.False(t, l.Allow("192.0.2.1"))
	assert.True(t, l.Allow("192.0.2.2"))
}
