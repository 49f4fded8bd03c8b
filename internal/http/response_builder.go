// Package http provides the JSON API over the ledger.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"recur/internal/core"
	"recur/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// StatusCode returns the configured status code.
func (b *JSONResponseBuilder) StatusCode() int {
	return b.statusCode
}

// Write sends headers, status and the encoded body. 204 responses carry no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// OK is a 200 response carrying v.
func OK(v any) *JSONResponseBuilder {
	return NewJSONResponse().Data(v)
}

// Created is a 201 response carrying v.
func Created(v any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Data(v)
}

// NoContent is an empty 204 response.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// ErrorResponse creates an error response with the given status and code.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: message, Code: code})
}

// BadRequestError creates a 400 Bad Request response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// UnauthorizedError creates a 401 response for requests without an owner.
func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "auth_required", "authentication required")
}

// NotFoundError creates a 404 Not Found response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

// RequestTooLargeError creates a 413 response.
func RequestTooLargeError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge, "too_large", "request body too large")
}

// ValidationError creates a 422 Unprocessable Entity response.
func ValidationError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "validation_failure", message)
}

// TooManyRequestsError creates a 429 response; the limiter sets Retry-After.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later")
}

// InternalError creates a 500 Internal Server Error response.
func InternalError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "persistence_failure", message)
}

// UnavailableError creates a 503 response. Fetch failures never leak details.
func UnavailableError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, "fetch_failure", "data is temporarily unavailable, please retry")
}

// FromError maps a ledger error to its response.
func FromError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrAuthRequired):
		return UnauthorizedError()
	case errors.Is(err, core.ErrValidation):
		return ValidationError(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrFetchFailure):
		return UnavailableError()
	case errors.Is(err, core.ErrPersistenceFailure):
		return InternalError(err.Error())
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// errorType classifies err for the error_type log field.
func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrAuthRequired):
		return log.ErrorTypeAuth
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrFetchFailure):
		return log.ErrorTypeUnavailable
	case errors.Is(err, core.ErrPersistenceFailure):
		return log.ErrorTypeDatabase
	default:
		return log.ErrorTypeInternal
	}
}
