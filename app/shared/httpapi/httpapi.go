package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/aceclub-io/ace-engine/app/shared/results"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// WriteJSON writes v with the given status. Encoding errors are ignored; the
// header is already gone.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error body.
func WriteError(w http.ResponseWriter, status int, message, reason string) {
	WriteJSON(w, status, ErrorBody{Error: message, Reason: reason})
}

// StatusForKind maps a business failure kind to an HTTP status. Race losses
// and stale preconditions are conflicts, not client mistakes.
func StatusForKind(kind results.FailureKind) int {
	switch kind {
	case results.FailureValidation:
		return http.StatusUnprocessableEntity
	case results.FailurePrecondition, results.FailureRaceLost:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
