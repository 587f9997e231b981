package api

import (
	"encoding/json"
	"net/http"

	"cix/internal/envelope"
	"cix/internal/errors"
)

// StatusFor maps an error code to an HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ValidationError:
		return http.StatusBadRequest
	case errors.NotFound:
		return http.StatusNotFound
	case errors.StoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes an error envelope with the status its code maps to.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, envelope.Error(err), StatusFor(errors.CodeOf(err)))
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
