// Package utils provides utility functions for the cookpulse application.
package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies a CustomError independently of its HTTP status.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindConflict          ErrorKind = "conflict"
	KindTransient         ErrorKind = "transient_store"
	KindInvalidRecurrence ErrorKind = "invalid_recurrence_rule"
	KindInternal          ErrorKind = "internal"
)

// Common error types for reuse. Treat them as templates: WithCause returns a copy.
var (
	ErrBadRequest          = NewError(fiber.StatusBadRequest, "invalid_request")
	ErrUnauthorized        = NewError(fiber.StatusUnauthorized, "unauthorized")
	ErrForbidden           = NewError(fiber.StatusForbidden, "forbidden")
	ErrNotFound            = NewError(fiber.StatusNotFound, "not_found")
	ErrServiceUnavailable  = NewError(fiber.StatusServiceUnavailable, "try_again")
	ErrInternalServerError = NewError(fiber.StatusInternalServerError, "internal_error")
)

// CustomError represents a structured error for the web app. Message is the short
// machine-readable code returned to clients.
type CustomError struct {
	Code    int       `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewError creates a new Error with a status code, message, and optional details.
// The kind is derived from the status code.
func NewError(code int, message string, details ...string) *CustomError {
	e := &CustomError{
		Code:    code,
		Kind:    kindForStatus(code),
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func kindForStatus(code int) ErrorKind {
	switch code {
	case fiber.StatusBadRequest:
		return KindValidation
	case fiber.StatusNotFound:
		return KindNotFound
	case fiber.StatusUnauthorized:
		return KindUnauthorized
	case fiber.StatusForbidden:
		return KindForbidden
	case fiber.StatusConflict:
		return KindConflict
	case fiber.StatusServiceUnavailable:
		return KindTransient
	default:
		return KindInternal
	}
}

// Validation reports missing or malformed input.
func Validation(message string, details ...string) *CustomError {
	return NewError(fiber.StatusBadRequest, message, details...)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(message string) *CustomError {
	return NewError(fiber.StatusNotFound, message)
}

// Unauthorized reports a missing user context.
func Unauthorized(message string) *CustomError {
	return NewError(fiber.StatusUnauthorized, message)
}

// Forbidden reports an authenticated user acting on something they do not own.
func Forbidden(message string) *CustomError {
	return NewError(fiber.StatusForbidden, message)
}

// Conflict reports a uniqueness violation. It is surfaced as a 400 with a friendly code.
func Conflict(message string) *CustomError {
	e := NewError(fiber.StatusBadRequest, message)
	e.Kind = KindConflict
	return e
}

// Transient reports a store failure that is safe to retry as a whole.
func Transient(message string, details ...string) *CustomError {
	return NewError(fiber.StatusServiceUnavailable, message, details...)
}

// InvalidRecurrenceRule reports a malformed repeat mode or custom rule.
func InvalidRecurrenceRule(details string) *CustomError {
	e := NewError(fiber.StatusBadRequest, "invalid_recurrence_rule", details)
	e.Kind = KindInvalidRecurrence
	return e
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("status %d: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// WithCause returns a copy of e carrying err as its details.
func (e *CustomError) WithCause(err error) *CustomError {
	cp := *e
	if err != nil {
		cp.Details = err.Error()
	}
	return &cp
}

// Is matches errors of the same kind and message, so errors.Is works against the templates.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// IsKind reports whether err is a CustomError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *CustomError
	return As(err, &appErr) && appErr.Kind == kind
}

// HandleError sends a standardized `{error: <code>}` response using GoFiber.
func HandleError(c *fiber.Ctx, err error) error {
	var appErr *CustomError

	if As(err, &appErr) {
		body := fiber.Map{"error": appErr.Message}
		if appErr.Code < 500 && appErr.Details != "" {
			body["details"] = appErr.Details
		}
		return c.Status(appErr.Code).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": ErrInternalServerError.Message,
	})
}

// WrapError wraps an existing error with a custom status and message.
func WrapError(err error, code int, message string) *CustomError {
	if err == nil {
		return NewError(code, message)
	}
	return NewError(code, message, err.Error())
}

// As unwraps err looking for a *CustomError.
func As(err error, target **CustomError) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}

// Is reports whether err matches target, CustomError templates included.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
