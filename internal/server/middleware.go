package server

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
)

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int(logging.KeyStatus, responseStatus(ww)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration(logging.KeyDuration, time.Since(start)),
				logging.RequestID(middleware.GetReqID(r.Context())))
		})
	}
}

// instrument records request count and latency labelled by route pattern.
func instrument(metrics *instrumentation.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, responseStatus(ww), time.Since(start))
		})
	}
}

func responseStatus(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// cors answers preflight requests and sets the CORS headers for allowed
// origins. "*" allows any origin but never with credentials.
func cors(allowed []string) func(http.Handler) http.Handler {
	wildcard := len(allowed) == 0 || slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch {
				case slices.Contains(allowed, origin):
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type sessionKey struct{}

// loadSession decodes the session cookie into the request context. An
// undecodable cookie is treated as no session.
func loadSession(store *auth.CookieStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Load(r)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid session cookie", logging.Err(err))
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		})
	}
}

// sessionFrom returns the request session. It is never nil.
func sessionFrom(r *http.Request) *auth.Session {
	if sess, ok := r.Context().Value(sessionKey{}).(*auth.Session); ok && sess != nil {
		return sess
	}
	return &auth.Session{}
}

// credentialedHandler is an API handler that needs Google credentials.
type credentialedHandler func(w http.ResponseWriter, r *http.Request, creds auth.Credentials)

// requireCredentials passes the session credentials to h, or answers 401.
func (a *App) requireCredentials(h credentialedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := sessionFrom(r).Authenticated()
		if !ok {
			writeError(w, r, a.logger, apperr.ErrNotAuthenticated)
			return
		}
		h(w, r, creds)
	}
}

// normalizeOrigins trims the configured origin list.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
