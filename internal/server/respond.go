package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koustreak/FileDock/internal/errs"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps an error kind to an HTTP status and emits the
// human-readable message as {"error": ...}. Store-level causes stay in the
// logs, never in the response body.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusOf(err), map[string]string{"error": messageOf(err)})
}

func statusOf(err error) int {
	switch {
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsPermissionDenied(err):
		return http.StatusForbidden
	case errs.IsDecodeFailed(err):
		return http.StatusUnprocessableEntity
	case errs.IsConnectionFailed(err):
		return http.StatusBadGateway
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
