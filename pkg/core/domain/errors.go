package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrSlugTaken     = errors.New("slug already taken")
	ErrInvalidRange  = errors.New("invalid range")
	ErrSlugExhausted = errors.New("could not generate a unique slug")
	ErrLinkExists    = errors.New("link id already exists")
)

// ValidationError reports caller-correctable input, pointing at the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Kind is the stable classification of an error surfaced by the core.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindSlugTaken    Kind = "slug_taken"
	KindNotFound     Kind = "not_found"
	KindInvalidRange Kind = "invalid_range"
	KindExhausted    Kind = "exhausted"
	KindInternal     Kind = "internal"
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrSlugTaken):
		return KindSlugTaken
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidRange):
		return KindInvalidRange
	case errors.Is(err, ErrSlugExhausted):
		return KindExhausted
	default:
		return KindInternal
	}
}
