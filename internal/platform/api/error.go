package api

import (
	"net/http"

	"github.com/example/animehub/internal/platform/httpserver"
)

// Error codes returned by the JSON endpoints.
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeInvalidID    = "INVALID_ID"
	CodeInvalidJSON  = "INVALID_JSON"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL"
)

// ErrorResponse keeps the success flag so browser scripts can check one field
// for both outcomes.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Fail writes an error body tagged with the request's id.
func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   message,
		RequestID: httpserver.RequestIDFromContext(r.Context()),
	}})
}

func BadRequest(w http.ResponseWriter, r *http.Request, code, message string) {
	Fail(w, r, http.StatusBadRequest, code, message)
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Fail(w, r, http.StatusUnauthorized, CodeAuthRequired, "Login required")
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Fail(w, r, http.StatusNotFound, CodeNotFound, message)
}

func RateLimited(w http.ResponseWriter, r *http.Request) {
	Fail(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many attempts, try again later")
}

func Internal(w http.ResponseWriter, r *http.Request) {
	Fail(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
