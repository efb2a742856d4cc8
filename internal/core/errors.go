package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeDatabase      = "DATABASE_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeFeature       = "FEATURE_ERROR"
	ErrCodeNoData        = "NO_DATA"
	ErrCodeRender        = "RENDER_ERROR"
	ErrCodePublish       = "PUBLISH_ERROR"
	ErrCodeBuildRunning  = "BUILD_RUNNING"
)

// Common error constructors
func NewValidationError(message string, err error) *AppError {
	return NewAppError(ErrCodeValidation, message, err)
}

func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(ErrCodeNotFound, message, err)
}

func NewInternalError(message string, err error) *AppError {
	return NewAppError(ErrCodeInternal, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrCodeDatabase, message, err)
}

func NewConfigurationError(message string, err error) *AppError {
	return NewAppError(ErrCodeConfiguration, message, err)
}

func NewFeatureError(featureName, message string, err error) *AppError {
	return NewAppError(ErrCodeFeature, fmt.Sprintf("[%s] %s", featureName, message), err)
}

// NewRenderError reports a template failure for the named artifact.
func NewRenderError(artifact string, err error) *AppError {
	return NewAppError(ErrCodeRender, fmt.Sprintf("failed to render %s", artifact), err)
}

// NewPublishError reports a filesystem failure for the named artifact.
func NewPublishError(artifact string, err error) *AppError {
	return NewAppError(ErrCodePublish, fmt.Sprintf("failed to publish %s", artifact), err)
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ErrorResponse represents an error response for API endpoints
type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteErrorResponse writes an error response to an HTTP response writer
func WriteErrorResponse(w http.ResponseWriter, statusCode int, err *AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := &ErrorResponse{Error: err, Success: false}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// GetHTTPStatusCode returns the appropriate HTTP status code for an error
func GetHTTPStatusCode(err *AppError) int {
	switch err.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeNoData:
		return http.StatusNotFound
	case ErrCodeBuildRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleError handles an error and writes an appropriate HTTP response
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError("An unexpected error occurred", err)
	}

	WriteErrorResponse(w, GetHTTPStatusCode(appErr), appErr)
}
