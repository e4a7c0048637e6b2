package domain

import "errors"

// Domain errors
var (
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrRenderFailure      = errors.New("document failed to render")
	ErrHandleClosed       = errors.New("reading surface is closed")
	ErrInvalidAnchor      = errors.New("anchor does not resolve")
	ErrStreamFailure      = errors.New("ai stream failed")
	ErrStorageFailure     = errors.New("storage operation failed")
	ErrBookNotFound       = errors.New("book not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrNoActiveSession    = errors.New("no active reading session")
	ErrNoActiveSearch     = errors.New("no active search")
	ErrNoSelection        = errors.New("no selection menu open")
	ErrKeyNotFound        = errors.New("key not found")
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
