package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/reporting"
)

// errorResponse is the error envelope every endpoint returns.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidAttempt), errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, errBadRequest), errors.As(err, &verrs):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrSessionRevoked):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrTriviaRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrTriviaUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, domain.ErrStoreDisposed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		reporting.Report(r.Context(), err, map[string]string{"path": r.URL.Path})
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
