package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeInvalidImage       ErrorType = "invalid_image"
	ErrorTypeSegmentation       ErrorType = "segmentation"
	ErrorTypeConversion         ErrorType = "conversion"
	ErrorTypeExecutableNotFound ErrorType = "executable_not_found"
	ErrorTypeWrite              ErrorType = "write"
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewInvalidImageError reports a malformed buffer reaching the engine
func NewInvalidImageError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidImage,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewSegmentationError reports a failure of the segmentation collaborator
func NewSegmentationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeSegmentation,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewConversionError reports a failed XCF to PNG conversion
func NewConversionError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConversion,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewExecutableNotFoundError reports that no GIMP executable could be resolved
func NewExecutableNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExecutableNotFound,
		Message:    message,
		StatusCode: http.StatusFailedDependency,
		Cause:      cause,
	}
}

// NewWriteError reports a failure persisting an output image
func NewWriteError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeWrite,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
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
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
