// Package apperror defines the coded errors of the employee id service.
// Each carries the HTTP status the API answers with; the CLI prints the
// message and details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Configuration errors. Raised at load time and fatal to startup.
	CodeUnknownToken   = "UNKNOWN_TOKEN"
	CodeInvalidPattern = "INVALID_PATTERN"

	// Business rule violations (422)
	CodeMissingAbbreviation = "MISSING_ABBREVIATION"
	CodeGenerationDisabled  = "GENERATION_DISABLED"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Conflict (409)
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeGenerationExhausted = "GENERATION_EXHAUSTED"
)

// AppError is the error type returned by the service and its adapters.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (token, entity, scope, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewUnknownToken reports a pattern placeholder that names no known token.
func NewUnknownToken(token string) *AppError {
	return &AppError{
		Code:       CodeUnknownToken,
		Message:    fmt.Sprintf("unknown token: {%s}", token),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"token": token},
	}
}

// NewInvalidPattern reports a structural problem with a pattern string.
func NewInvalidPattern(pattern, reason string) *AppError {
	return &AppError{
		Code:       CodeInvalidPattern,
		Message:    reason,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"pattern": pattern},
	}
}

// NewMissingAbbreviation is returned when a token cannot be resolved for the
// referenced entity (entity absent or no strategy yielded a value).
func NewMissingAbbreviation(token, entityKind, entityName string) *AppError {
	msg := fmt.Sprintf("cannot resolve {%s}: %s is not set", token, entityKind)
	if entityName != "" {
		msg = fmt.Sprintf("cannot resolve {%s} for %s %q", token, entityKind, entityName)
	}
	return &AppError{
		Code:       CodeMissingAbbreviation,
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"token": token, "entity_kind": entityKind, "entity": entityName},
	}
}

// NewGenerationExhausted is returned when no unique identifier was found
// within the attempt budget.
func NewGenerationExhausted(scope, period string, attempts int) *AppError {
	return &AppError{
		Code:       CodeGenerationExhausted,
		Message:    fmt.Sprintf("failed to generate a unique identifier after %d attempts", attempts),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"scope": scope, "period": period, "attempts": attempts},
	}
}

// NewGenerationDisabled is returned when identifier generation is switched off.
func NewGenerationDisabled() *AppError {
	return NewBusinessRule(CodeGenerationDisabled, "employee id generation is disabled")
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsUnknownToken checks if error is CodeUnknownToken
func IsUnknownToken(err error) bool {
	return HasCode(err, CodeUnknownToken)
}

// IsMissingAbbreviation checks if error is CodeMissingAbbreviation
func IsMissingAbbreviation(err error) bool {
	return HasCode(err, CodeMissingAbbreviation)
}

// IsGenerationExhausted checks if error is CodeGenerationExhausted
func IsGenerationExhausted(err error) bool {
	return HasCode(err, CodeGenerationExhausted)
}
