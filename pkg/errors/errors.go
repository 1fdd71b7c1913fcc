package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is across layers.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrMalformed      = errors.New("malformed response")
)

// Error codes written into JSON error bodies.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeMalformed          = "MALFORMED_RESPONSE"
	CodeUpstream           = "UPSTREAM_ERROR"
)

// AppError carries an error code and the HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound reports a missing category, article or cache entry.
func NotFound(resource, id string) *AppError {
	return newAppError(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id), ErrNotFound)
}

func InvalidInput(message string) *AppError {
	return newAppError(CodeInvalidInput, http.StatusBadRequest, message, ErrInvalidInput)
}

// Unauthorized is returned for shopkey mismatches.
func Unauthorized(message string) *AppError {
	return newAppError(CodeUnauthorized, http.StatusUnauthorized, message, ErrUnauthorized)
}

// ServiceUnavailable wraps the cause of an unreachable upstream.
func ServiceUnavailable(service string, err error) *AppError {
	return newAppError(CodeServiceUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("%s is unavailable", service), errors.Join(ErrServiceUnavail, err))
}

// Malformed wraps a payload that could not be parsed.
func Malformed(what string, err error) *AppError {
	return newAppError(CodeMalformed, http.StatusBadGateway,
		fmt.Sprintf("malformed %s", what), errors.Join(ErrMalformed, err))
}

// Upstream reports an unexpected upstream answer with no better mapping.
func Upstream(message string) *AppError {
	return newAppError(CodeUpstream, http.StatusBadGateway, message, nil)
}

// HTTPStatus maps err to a status code. AppErrors carry their own status;
// wrapped sentinels are mapped, anything else is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
