package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/export"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/schedule"
)

// maxUpdateBody bounds the update request body.
const maxUpdateBody = 64 << 10

// exportFilename is the attachment name of the xlsx export.
const exportFilename = "schedule.xlsx"

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFrom(r).Authenticated(); !ok {
		http.Redirect(w, r, "/authorize", http.StatusFound)
		return
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, nil); err != nil {
		a.logger.ErrorContext(r.Context(), "failed to render index", logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (a *App) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	authURL := a.sc.flow.Begin(sess)
	if err := a.sc.sessions.Save(w, sess); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *App) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if reason := query.Get("error"); reason != "" {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultDenied)
		writeError(w, r, a.logger, apperr.Newf(apperr.KindInvalidInput, "Authorization failed: %s", reason))
		return
	}

	sess := sessionFrom(r)
	creds, err := a.sc.flow.Complete(ctx, sess, query.Get("state"), query.Get("code"))
	if saveErr := a.sc.sessions.Save(w, sess); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		result := instrumentation.OAuthResultFailure
		if errors.Is(err, auth.ErrStateMismatch) {
			result = instrumentation.OAuthResultStateMismatch
		}
		a.metrics.RecordOAuthAuth(ctx, result)
		writeError(w, r, a.logger, err)
		return
	}

	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	a.logger.InfoContext(ctx, "google account authorized",
		slog.Int("scopes", len(creds.Scopes)),
		slog.Bool("refresh_token", creds.Token.RefreshToken != ""))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.sc.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleMembers(w http.ResponseWriter, r *http.Request, creds auth.Credentials) {
	sheet, err := a.sc.openSheet(r.Context(), creds)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	members, err := a.sc.service.Members(r.Context(), sheet)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"members": members})
}

// updateRequest is the body of POST /api/update-availability.
type updateRequest struct {
	MemberName       string `json:"memberName"`
	AvailabilityText string `json:"availabilityText"`
}

// handleUpdateAvailability validates the body before it looks at the session,
// so a malformed request is a 400 even without credentials.
func (a *App) handleUpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&req); err != nil {
		writeError(w, r, a.logger, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid JSON body"))
		return
	}
	if req.MemberName == "" || req.AvailabilityText == "" {
		writeError(w, r, a.logger, availability.ErrMissingFields)
		return
	}

	creds, ok := sessionFrom(r).Authenticated()
	if !ok {
		writeError(w, r, a.logger, apperr.ErrNotAuthenticated)
		return
	}

	sheet, err := a.sc.openSheet(r.Context(), creds)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	ctx := availability.ContextWithSource(r.Context(), instrumentation.SourceWeb)
	result, err := a.sc.service.UpdateAvailability(ctx, sheet, req.MemberName, req.AvailabilityText)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *App) handleViewSchedule(w http.ResponseWriter, r *http.Request, creds auth.Credentials) {
	grid, err := a.fetchSchedule(r, creds)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]schedule.Grid{"schedule": grid})
}

func (a *App) handleExportSchedule(w http.ResponseWriter, r *http.Request, creds auth.Credentials) {
	grid, err := a.fetchSchedule(r, creds)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, grid, export.DefaultSheetName); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (a *App) fetchSchedule(r *http.Request, creds auth.Credentials) (schedule.Grid, error) {
	sheet, err := a.sc.openSheet(r.Context(), creds)
	if err != nil {
		return nil, err
	}
	return a.sc.service.Schedule(r.Context(), sheet)
}
