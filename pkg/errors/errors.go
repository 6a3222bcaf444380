package errors

import (
	"errors"
	"fmt"
	"net/http"

	"pdf-layer-service/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeProcessing   ErrorType = "processing"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
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

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProcessing,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
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

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
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
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// FromDomain maps domain errors to typed application errors. Errors that are
// already typed are returned as is; anything unknown becomes internal.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return withCause(NewValidationError(validationErr.Message, validationErr.Field), err)
	case errors.Is(err, domain.ErrInvalidFile):
		return withCause(NewValidationError("Invalid file", "only PDF documents are accepted"), err)
	case errors.Is(err, domain.ErrDocumentNotFound):
		return withCause(NewNotFoundError("Document not found"), err)
	case errors.Is(err, domain.ErrPageNotFound):
		return withCause(NewNotFoundError("Page not found"), err)
	case errors.Is(err, domain.ErrAccessDenied):
		return &AppError{
			Type:       ErrorTypeUnauthorized,
			Message:    "Access denied",
			StatusCode: http.StatusForbidden,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUserNotFound):
		return withCause(NewUnauthorizedError("Invalid token"), err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return &AppError{
			Type:       ErrorTypeProcessing,
			Message:    "Document is already processing",
			StatusCode: http.StatusConflict,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrSourceNotFound):
		return NewProcessingError("Document could not be processed", err)
	}
	return NewInternalError("Internal server error", err)
}

func withCause(e *AppError, cause error) *AppError {
	e.Cause = cause
	return e
}
