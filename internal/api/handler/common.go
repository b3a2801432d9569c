package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/domain"
	"github.com/bcnelson/console-cache/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// handleError converts domain and backend errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		respondValidationErrors(w, verrs)
		return
	}

	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest, http.StatusForbidden, http.StatusConflict:
			respondError(w, httpErr.StatusCode, httpErr.Message)
		default:
			respondJSON(w, http.StatusBadGateway, &domain.APIError{
				Code:    http.StatusBadGateway,
				Message: "backend request failed",
				Details: httpErr.Error(),
			})
		}
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}

// queryBool parses a boolean query parameter. ok is false when it is absent or malformed.
func queryBool(r *http.Request, key string) (value, ok bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
