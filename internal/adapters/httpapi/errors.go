package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tirecore/pkg/domain"
)

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	var violation domain.RuleViolationError
	switch {
	case errors.Is(err, domain.ErrUnknownSpecCode),
		errors.Is(err, domain.ErrUnknownCombination),
		errors.Is(err, domain.ErrUnknownOrder),
		errors.Is(err, domain.ErrUnknownFieldKey):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoEligibleOrder),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.As(err, &violation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDirection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		writeJSON(w, status, map[string]any{"error": err.Error(), "violations": violation.Result.Violations})
		return
	}
	if status == http.StatusInternalServerError {
		h.logger().Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
