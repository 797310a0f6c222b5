package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// Symbolic error codes shared across repositories and handlers. Codes are
// stable API surface; messages are free text.
const (
	CodeConditionViolated    = "condition_violated"
	CodeTooManyAttempts      = "too_many_attempts"
	CodeUsernameExists       = "username_exists"
	CodeEmailExists          = "email_exists"
	CodeCategoryExists       = "category_exists"
	CodeCategoryNotFound     = "category_not_found"
	CodeSystemIDExists       = "systemid_exists"
	CodeSystemIDNotFound     = "systemid_not_found"
	CodeBadVenue             = "bad_venue"
	CodeBadRoom              = "bad_room"
	CodeBadCategories        = "bad_categories"
	CodeRoomHasEvents        = "room_has_events"
	CodeVenueHasEvents       = "venue_has_events"
	CodeSortOrderUnsupported = "sort_order_unsupported"
	CodeLocationNotFound     = "location_not_found"
	CodeAgendaNotFound       = "agenda_not_found"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation creates a validation error with a symbolic code
func NewValidation(code, message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewConflict creates a conflict error with a symbolic code
func NewConflict(code, message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewNotFound creates a not found error with a symbolic code
func NewNotFound(code, message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context, preserving type and code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Code extracts the symbolic code from an error, or "" when it has none
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether an error carries the given symbolic code
func HasCode(err error, code string) bool {
	return Code(err) == code
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeValidation
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeConflict
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeNotFound
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeInternal
}
