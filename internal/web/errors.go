package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted for the client: JSON for the API, the page with an alert for
//     browsers
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. statusFor picks the HTTP status and core.MapError the user message
//  4. Technical error + context is logged with request and session IDs
//  5. User message is rendered in the format the client asked for

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/logging"
	"github.com/JonMunkholm/custedit/internal/records"
	"github.com/JonMunkholm/custedit/internal/web/templates"
)

// errBadRequest marks request bodies and path values that could not be read.
var errBadRequest = errors.New("invalid request")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		verrs   records.ValidationErrors
		perr    *records.ParseError
		tooLong *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, records.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, records.ErrNotConfirmed),
		errors.Is(err, records.ErrInvalidPageSize),
		errors.Is(err, records.ErrNotCSV),
		errors.Is(err, records.ErrEmptyCSV),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, errBadRequest),
		errors.As(err, &perr):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrEmptySelection), errors.Is(err, records.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (JSON or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	logger.Log(r.Context(), logLevelFor(status, err), "request error", attrs...)

	if wantsJSON(r) {
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		var verrs records.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = verrs.ByField()
		}
		writeJSON(w, status, resp)
		return
	}

	alert := &templates.Alert{Message: userMsg.Message, Action: userMsg.Action, Code: userMsg.Code}
	if sessionID(r) == "" {
		// Rejected before a workspace was attached.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(alert.Message, alert.Action, alert.Code).Render(r.Context(), w); err != nil {
			logger.Error("render error alert", "error", err)
		}
		return
	}
	s.renderPage(w, r, status, templates.PageData{Alert: alert})
}

// logLevelFor picks how loudly a failed request is logged. Client errors with
// no mapped user message are warnings.
func logLevelFor(status int, err error) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case !core.IsUserFacing(err):
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	// API routes default to JSON
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}

	// Check Accept header
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// Check if request is sending JSON
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
