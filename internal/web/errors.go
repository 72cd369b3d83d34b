package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to a user-facing message and code
//  4. Technical error is logged with the request ID for correlation
//  5. The client gets a JSON ErrorResponse
//
// Rejected exchange files keep their localized message, so clients can show
// Message as-is.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"` // Per-field problems of a rejected record
	RunID   string            `json:"run_id,omitempty"` // Import run, for log lookup
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var (
		invalid *core.InvalidFile
		record  *core.RecordInvalid
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrExchangeClosed), errors.Is(err, core.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &record):
		var verrs core.ValidationErrors
		if errors.As(err, &verrs) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes a JSON ErrorResponse.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	s.respondErrorWith(w, r, err, statusCode, ErrorResponse{})
}

// respondErrorWith is respondError with extra response fields preset in base.
func (s *Server) respondErrorWith(w http.ResponseWriter, r *http.Request, err error, statusCode int, base ErrorResponse) {
	userMsg := core.MapError(err)

	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if cause := errors.Unwrap(err); cause != nil {
		args = append(args, "cause", cause.Error())
	}
	logger := logging.FromContext(r.Context())
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := base
	resp.Error = userMsg.Message
	resp.Message = userMsg.Message
	resp.Action = userMsg.Action
	resp.Code = userMsg.Code

	// Request errors are built by the handlers and safe to echo.
	if statusCode == http.StatusBadRequest {
		resp.Message = err.Error()
	}

	var verrs core.ValidationErrors
	if statusCode == http.StatusUnprocessableEntity && !isInvalidFile(err) && errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for _, v := range verrs {
			resp.Fields[v.Field] = v.Message
		}
		resp.Message = "The record is invalid"
		resp.Error = resp.Message
		resp.Action = "Correct the listed fields and try again"
	}

	writeJSON(w, r, statusCode, resp)
}

func isInvalidFile(err error) bool {
	var invalid *core.InvalidFile
	return errors.As(err, &invalid)
}

// writeJSON encodes v as the response body with the given status.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
