package errors

import (
	"fmt"
)

// ErrorType classifies an AppError. The value doubles as the error_code of
// the problem response.
type ErrorType string

const (
	ErrTypeParsing ErrorType = "INVALID_GRADEBOOK"
	ErrTypeExport  ErrorType = "EXPORT_FAILED"
	ErrTypeConfig  ErrorType = "CONFIG_ERROR"
)

// AppError is an internal failure with a cause and optional context that
// is reported to clients by type
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair that is rendered as problem details
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewParsingError reports an upload that is not a usable gradebook
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewExportError reports a report that could not be rendered
func NewExportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeExport, message, cause)
}

// NewConfigError reports configuration that could not be loaded
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
