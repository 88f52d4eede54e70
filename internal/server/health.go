package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnconfigured = "not configured"
)

// HealthChecker serves the liveness and readiness probes. None of the probes
// call Google or OpenAI.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady marks the app ready or draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the app should receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	// Parser is "ok" when availability updates can be served.
	Parser string `json:"parser"`
}

// RegisterHealthEndpoints mounts the probes on r, outside any session
// middleware.
func (h *HealthChecker) RegisterHealthEndpoints(r chi.Router) {
	r.Get("/healthz", h.handleLiveness)
	r.Get("/readyz", h.handleReadiness)
	r.Get("/healthz/detailed", h.handleDetailed)
}

func (h *HealthChecker) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
}

func (h *HealthChecker) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	if !h.IsReady() {
		checks["ready"] = healthStatusNotReady
	}
	if h.shuttingDown() {
		checks["shutdown"] = healthStatusShuttingDown
	}

	resp := HealthResponse{Status: healthStatusOK, Checks: checks}
	status := http.StatusOK
	if h.status() != healthStatusOK {
		resp.Status = healthStatusNotReady
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthChecker) handleDetailed(w http.ResponseWriter, _ *http.Request) {
	resp := DetailedHealthResponse{
		Status: h.status(),
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
		Parser: h.parserStatus(),
	}
	status := http.StatusOK
	if resp.Status != healthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// status folds readiness and shutdown into one value; shutdown wins.
func (h *HealthChecker) status() string {
	switch {
	case h.shuttingDown():
		return healthStatusShuttingDown
	case !h.IsReady():
		return healthStatusNotReady
	default:
		return healthStatusOK
	}
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

func (h *HealthChecker) parserStatus() string {
	if h.sc == nil || h.sc.Service() == nil || !h.sc.Service().CanUpdate() {
		return healthStatusUnconfigured
	}
	return healthStatusOK
}
