package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrPageNotFound      = errors.New("page not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidFile       = errors.New("invalid file")
	ErrSourceNotFound    = errors.New("source document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrKindMismatch      = errors.New("primitive kind does not match layer")
	ErrDuplicateLayer    = errors.New("duplicate layer z-index")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// RenderError reports a raster that could not be produced. Range is nil for
// full-page renders.
type RenderError struct {
	Page   int
	ZIndex int
	Range  *IDRange
	Err    error
}

func (e *RenderError) Error() string {
	if e.Range == nil {
		return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("render page %d layer %d range %s: %v", e.Page, e.ZIndex, e.Range, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
