package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kaleidoswap/desktop-app/internal/logcache"
	"github.com/kaleidoswap/desktop-app/internal/node"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeUnauthorized     = "unauthorised"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeNotImplemented   = "not_implemented"
	ErrCodeDecryptionFailed = "decryption_failed"
	ErrCodeLockUnavailable  = "state_unavailable"
)

// Messages the shell shows verbatim.
const (
	msgNodeNotRunning     = "RGB Lightning Node is not running."
	msgNodeAlreadyRunning = "RGB Lightning Node is already running."
	msgNoAccountSelected  = "No account is currently selected. Please select an account first."
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

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeNodeError maps supervisor and log cache errors to responses.
func writeNodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, node.ErrAlreadyRunning):
		writeConflict(w, msgNodeAlreadyRunning)
	case errors.Is(err, node.ErrNotRunning):
		writeConflict(w, msgNodeNotRunning)
	case errors.Is(err, node.ErrPlatformUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, err.Error())
	case errors.Is(err, node.ErrInvalidParams), errors.Is(err, logcache.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, node.ErrLockUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeLockUnavailable, err.Error())
	default:
		// ErrSpawnFailed, ErrIO, ErrForceKillFailed
		writeInternalError(w, err.Error())
	}
}
