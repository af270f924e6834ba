// Package http serves the ledger JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses, and the mapping from domain errors to status codes.

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// Error kinds reported in the "kind" field of error bodies.
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindRateLimited  = "rate_limited"
	KindInternal     = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// MessageBody acknowledges writes that return no entity.
type MessageBody struct {
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(MessageBody{Message: msg})
}

// Write encodes the body before touching w, so an encoding failure still
// produces a clean 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var buf bytes.Buffer
	if b.body != nil {
		if err := json.NewEncoder(&buf).Encode(b.body); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
			buf.Reset()
			_ = json.NewEncoder(&buf).Encode(ErrorBody{Error: "internal server error", Kind: KindInternal})
			b.statusCode = http.StatusInternalServerError
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if buf.Len() > 0 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if buf.Len() > 0 {
		_, _ = w.Write(buf.Bytes())
	}
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Kind: kind})
}

// UnauthorizedError creates a 401 response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, KindUnauthorized, message)
}

// InternalServerError creates a 500 response. Details stay in the logs.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, KindInternal, "internal server error")
}

// FromError maps domain errors onto status codes: validation 400, not found
// 404, conflict 409, anything else 500.
func FromError(err error) *JSONResponseBuilder {
	var (
		validation *core.ValidationError
		notFound   *core.NotFoundError
		conflict   *core.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		b := ErrorResponse(http.StatusBadRequest, KindValidation, validation.Error())
		b.body = ErrorBody{Error: validation.Error(), Kind: KindValidation, Field: validation.Field}
		return b
	case errors.As(err, &notFound):
		return ErrorResponse(http.StatusNotFound, KindNotFound, notFound.Error())
	case errors.As(err, &conflict):
		return ErrorResponse(http.StatusConflict, KindConflict, conflict.Error())
	default:
		return InternalServerError()
	}
}

// errorType classifies err for the error_type log attribute.
func errorType(err error) string {
	switch {
	case core.IsValidation(err):
		return applog.ErrorTypeValidation
	case core.IsNotFound(err):
		return applog.ErrorTypeNotFound
	case core.IsConflict(err):
		return applog.ErrorTypeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError logs the failure with its class and writes the mapped response.
// Only 5xx are logged at error level.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	b := FromError(err)
	fields := applog.NewFields().WithError(err).WithErrorType(errorType(err))
	logger := applog.FromContext(ctx)
	if b.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(ctx, "Request rejected", append(fields.ToSlice(), applog.FieldStatusCode, b.statusCode)...)
	}
	b.Write(w)
}
