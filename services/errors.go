package services

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors. Handlers classify with errors.Is and never retry them.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failed")
)

var (
	ErrSessionNotFound  = fmt.Errorf("session not found: %w", ErrNotFound)
	ErrSessionForbidden = fmt.Errorf("session belongs to another user: %w", ErrForbidden)
	ErrSessionFinished  = fmt.Errorf("session already finished: %w", ErrInvalidState)
	ErrUserNotFound     = fmt.Errorf("user not found: %w", ErrNotFound)
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the per-field reasons and unwraps to ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalidField(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// rangeCheck collects out-of-range integer fields.
type rangeCheck struct {
	fields []FieldError
}

func (c *rangeCheck) intRange(field string, v, min, max int) {
	if v < min || v > max {
		c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)})
	}
}

func (c *rangeCheck) intMin(field string, v, min int) {
	if v < min {
		c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf("must be at least %d", min)})
	}
}

func (c *rangeCheck) floatRange(field string, v, min, max float64) {
	if v < min || v > max {
		c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf("must be between %g and %g", min, max)})
	}
}

func (c *rangeCheck) required(field string, missing bool) {
	if missing {
		c.fields = append(c.fields, FieldError{Field: field, Message: "is required"})
	}
}

func (c *rangeCheck) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields}
}
