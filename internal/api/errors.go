package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-home/internal/home"
	"github.com/nerrad567/gray-logic-home/internal/scripting"
	"github.com/nerrad567/gray-logic-home/internal/scripting/lua"
	"github.com/nerrad567/gray-logic-home/internal/scripting/native"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps errors from the home and scripting layers to a
// status code. Unrecognised errors are logged and reported as 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, home.ErrEntityNotFound),
		errors.Is(err, home.ErrRoomNotFound),
		errors.Is(err, scripting.ErrSourceNotFound),
		errors.Is(err, scripting.ErrProviderNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, home.ErrInvalidType),
		errors.Is(err, home.ErrInvalidName),
		errors.Is(err, script.ErrInvalidJSON),
		errors.Is(err, lua.ErrNoContent):
		writeBadRequest(w, err.Error())

	case errors.Is(err, scripting.ErrSourceExists),
		errors.Is(err, lua.ErrSourceConsumed),
		errors.Is(err, native.ErrSourceConsumed),
		errors.Is(err, native.ErrUnknownSource),
		errors.Is(err, script.ErrReadOnlyContent),
		errors.Is(err, home.ErrNoScript):
		writeConflict(w, err.Error())

	case errors.Is(err, scripting.ErrUnsupportedType),
		errors.Is(err, scripting.ErrScriptCreation),
		errors.Is(err, home.ErrScriptInit),
		errors.Is(err, lua.ErrCompile):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())

	case errors.Is(err, home.ErrNoScripts),
		errors.Is(err, scripting.ErrNoRepository):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())

	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
