package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. Callers branch on these rather than on
// error string contents.
const (
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"
	ErrCodeStoreUnavailable      = "STORE_UNAVAILABLE"
	ErrCodeMalformedContent      = "MALFORMED_CONTENT"
	ErrCodeVersionConflict       = "VERSION_CONFLICT"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewClassifierUnavailableError wraps a transient failure of a classifier
// backend. backend is "text" or "image".
func NewClassifierUnavailableError(backend string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeClassifierUnavailable,
		Message: fmt.Sprintf("%s classifier unavailable", backend),
		Err:     err,
	}
}

// NewStoreUnavailableError wraps a transient failure of the post store.
func NewStoreUnavailableError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeStoreUnavailable,
		Message: "post store unavailable",
		Err:     err,
	}
}

// NewMalformedContentError marks content a classifier permanently cannot
// process. Retrying without changing the content will not help.
func NewMalformedContentError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedContent,
		Message: message,
	}
}

// NewVersionConflictError signals that a conditional verification write lost
// a concurrent update race.
func NewVersionConflictError(postID string) *AppError {
	return &AppError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("post %s was modified concurrently", postID),
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
