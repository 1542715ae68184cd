// Package respond writes the JSON bodies and error statuses shared by every
// screen handler.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"car-rental/internal/api"
	"car-rental/pkg/validation"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes {"error": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Status maps an error to the HTTP status the screens answer with.
func Status(err error) int {
	var verr validation.Errors
	var aerr *api.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &aerr), errors.Is(err, api.ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with its mapped status. Validation failures carry the
// per-field messages.
func Error(w http.ResponseWriter, err error) {
	var verr validation.Errors
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr})
		return
	}
	Message(w, Status(err), err.Error())
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validation.Errors{"body": "invalid JSON"}
	}
	return nil
}
