package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/schedule"
)

// errorResponse is the JSON body of every failed API call.
type errorResponse struct {
	Error   string   `json:"error"`
	Members []string `json:"members,omitempty"`
}

// statusForError maps an error kind to its HTTP status.
func statusForError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindEmptySheet, apperr.KindNoSheetsFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		// member_not_found and parse_error included
		return http.StatusInternalServerError
	}
}

// errorMessage returns the user-facing message for err.
func errorMessage(err error) string {
	var appErr *apperr.Error
	switch {
	case apperr.Is(err, apperr.KindNotAuthenticated):
		return "Not authenticated"
	case errors.As(err, &appErr) && statusForError(err) < http.StatusInternalServerError:
		// Client-facing kinds answer with their own message, not the wrap chain.
		return appErr.Message
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON error response and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusForError(err)
	resp := errorResponse{Error: errorMessage(err)}

	var notFound *schedule.MemberNotFoundError
	if errors.As(err, &notFound) {
		resp.Members = notFound.Members
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Int(logging.KeyStatus, status),
			logging.Err(err))
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.Int(logging.KeyStatus, status),
			logging.Err(err))
	}

	writeJSON(w, status, resp)
}
