package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type is a machine-readable error category returned to API clients.
type Type string

const (
	TypeMissingRequiredFields Type = "MissingRequiredFields"
	TypeInvalidItemPrice      Type = "InvalidItemPrice"
	TypeInvalidQuantity       Type = "InvalidQuantity"
	TypeInvalidExchangeRate   Type = "InvalidExchangeRate"
	TypeValidation            Type = "ValidationFailed"
	TypePersistenceFailure    Type = "PersistenceFailure"
	TypeNotFound              Type = "NotFound"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Type    Type         `json:"type,omitempty"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	cause   error
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    Type   `json:"type,omitempty"`
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Type: TypeNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict           = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
	ErrTokenExpired       = &AppError{Code: http.StatusUnauthorized, Message: "Token has expired"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Message: "Invalid token"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error. The error type is taken
// from the first field error that carries one.
func NewValidationError(fieldErrors []FieldError) *AppError {
	errType := TypeValidation
	for _, fe := range fieldErrors {
		if fe.Type != "" {
			errType = fe.Type
			break
		}
	}
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    errType,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewMissingFieldsError reports required fields absent from a request.
func NewMissingFieldsError(fields []string) *AppError {
	fieldErrors := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		fieldErrors = append(fieldErrors, FieldError{Field: f, Message: "is required", Type: TypeMissingRequiredFields})
	}
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeMissingRequiredFields,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Errors:  fieldErrors,
	}
}

// NewPersistenceError hides a storage failure behind a generic message.
// The cause stays reachable through Unwrap for logging.
func NewPersistenceError(op string, cause error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Type:    TypePersistenceFailure,
		Message: "Internal server error",
		cause:   fmt.Errorf("%s: %w", op, cause),
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t Type) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// GetAppError converts an error to AppError if possible. Unknown errors become
// a generic 500 so internal details never reach the client.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		cause:   err,
	}
}
