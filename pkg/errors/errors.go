package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeRenderFailure     ErrorType = "render_failure"
	ErrorTypeHandleClosed      ErrorType = "handle_closed"
	ErrorTypeInvalidAnchor     ErrorType = "invalid_anchor"
	ErrorTypeStreamFailure     ErrorType = "stream_failure"
	ErrorTypeStorageFailure    ErrorType = "storage_failure"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeInternal          ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewUnsupportedFormatError creates an error for files the reader cannot open
func NewUnsupportedFormatError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnsupportedFormat,
		Message:    message,
		StatusCode: http.StatusUnsupportedMediaType,
	}
}

// NewRenderFailureError creates an error for documents that failed to parse or paginate
func NewRenderFailureError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeRenderFailure,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewHandleClosedError creates an error for operations on a closed reading surface
func NewHandleClosedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeHandleClosed,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInvalidAnchorError creates an error for anchors the surface cannot resolve
func NewInvalidAnchorError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidAnchor,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewStreamFailureError creates an error for failed or interrupted AI streams
func NewStreamFailureError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStreamFailure,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewStorageFailureError creates an error for persistence reads and writes
func NewStorageFailureError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorageFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
