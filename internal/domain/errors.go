package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by adapters with errors.Is. They carry no transport
// detail; the HTTP layer decides what status each one becomes.
var (
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError rejects an input to an order or identity operation.
// Field is empty when the rule concerns the input as a whole.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrValidation, e.Message)
	}

	return fmt.Sprintf("%v for %s: %s", ErrValidation, e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError reports that field breaks a rule.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue is NewValidationError keeping the rejected value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports a component that cannot take work right now,
// such as a closed worker pool or one whose backlog is full.
type UnavailableError struct {
	Component string
	Reason    string
}

func (e *UnavailableError) Error() string {
	msg := e.Component + " " + ErrUnavailable.Error()
	if e.Reason == "" {
		return msg
	}

	return msg + ": " + e.Reason
}

// Is matches ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// NewUnavailableError reports that component refused work for reason.
func NewUnavailableError(component, reason string) error {
	return &UnavailableError{Component: component, Reason: reason}
}

// IsValidation reports whether err is or wraps a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnavailable reports whether err is or wraps an unavailable component.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
