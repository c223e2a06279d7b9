// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes and client-visible bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

var errBodyTooLarge = errors.New("request body too large")

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

// Body sets the value encoded as the response body. A nil body writes
// headers only.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) error {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return nil
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, err = w.Write(append(payload, '\n'))
	return err
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message})
}

// writeJSON writes v with status and logs encoding failures.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := NewJSONResponse().Status(status).Body(v).Write(w); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write response",
			log.FieldError, err.Error())
	}
}

// errorResponseFor maps err to the response the client sees. ok is false for
// unexpected faults.
func errorResponseFor(err error) (resp *JSONResponseBuilder, ok bool) {
	if ve, isValidation := core.AsValidationError(err); isValidation {
		return NewJSONResponse().
			Status(http.StatusBadRequest).
			Body(ErrorBody{Error: "Invalid input", Details: ve.Fields}), true
	}

	switch {
	case errors.Is(err, core.ErrDuplicateUser):
		return ErrorResponse(http.StatusConflict, "User already exists"), true
	case errors.Is(err, core.ErrInvalidCredentials):
		return ErrorResponse(http.StatusUnauthorized, "Invalid credentials"), true
	case errors.Is(err, core.ErrMissingToken):
		return ErrorResponse(http.StatusUnauthorized, "Access token required"), true
	case errors.Is(err, core.ErrInvalidToken):
		return ErrorResponse(http.StatusForbidden, "Invalid or expired token"), true
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, "Expense not found"), true
	case errors.Is(err, errBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large"), true
	}
	return ErrorResponse(http.StatusInternalServerError, "Internal server error"), false
}

// writeError reports err to the client. Unexpected faults are logged in full
// and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp, ok := errorResponseFor(err)
	logger := log.FromContext(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			"error_type", log.ErrorTypeInternal)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err.Error())
	}
	if werr := resp.Write(w); werr != nil {
		logger.ErrorContext(r.Context(), "Failed to write error response", log.FieldError, werr.Error())
	}
}
