package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finledger/internal/core"
	"finledger/internal/log"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Message string `json:"message"`
}

// listResponse wraps paginated collections.
type listResponse struct {
	Data any `json:"data"`
	Meta any `json:"meta"`
}

// cachedResponse wraps cacheable reads and reports whether the payload was
// served from cache.
type cachedResponse struct {
	Data   any  `json:"data"`
	Cached bool `json:"cached"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes. Unknown errors map to
// 500 and their detail stays out of the response body.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrDuplicateEmail),
		errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Message: message})
}
