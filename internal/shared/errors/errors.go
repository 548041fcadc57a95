package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeAuthorization  ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict       ErrorType = "CONFLICT_ERROR"
	ErrorTypeSession        ErrorType = "SESSION_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

// detailBackendMessage marks the message a remote API supplied in its error body.
const detailBackendMessage = "backend_message"

// Common application errors
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
)

// Session lifecycle errors
var (
	ErrNotAuthenticated  = errors.New("no authenticated session")
	ErrSessionSuperseded = errors.New("session changed while the request was in flight")
	ErrAlreadyRestored   = errors.New("session has already been restored")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusServiceUnavailable)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

// NewSessionError creates an error for an operation the current session state does not allow.
func NewSessionError(message string) *AppError {
	return NewAppError(ErrorTypeSession, message, http.StatusConflict)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// FromHTTPStatus maps a non-2xx response from the remote API onto the taxonomy.
// backendMessage is the message the API put in its error body, possibly empty.
func FromHTTPStatus(status int, backendMessage string) *AppError {
	var errorType ErrorType
	switch {
	case status == http.StatusUnauthorized:
		errorType = ErrorTypeAuthentication
	case status == http.StatusForbidden:
		errorType = ErrorTypeAuthorization
	case status == http.StatusNotFound:
		errorType = ErrorTypeNotFound
	case status == http.StatusConflict:
		errorType = ErrorTypeConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		errorType = ErrorTypeValidation
	case status >= 500:
		errorType = ErrorTypeInfrastructure
	default:
		errorType = ErrorTypeInternal
	}

	message := backendMessage
	if message == "" {
		message = http.StatusText(status)
	}

	appErr := NewAppError(errorType, message, status).WithCode(fmt.Sprintf("HTTP_%d", status))
	if backendMessage != "" {
		appErr.WithDetail(detailBackendMessage, backendMessage)
	}
	if status == http.StatusUnauthorized {
		appErr.WithCause(ErrUnauthorized)
	}
	return appErr
}

// BackendMessage returns the message a remote API supplied for err, if any.
func BackendMessage(err error) (string, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "", false
	}
	msg, ok := appErr.Details[detailBackendMessage].(string)
	return msg, ok && msg != ""
}

// UserMessage prefers the backend-supplied message and falls back to the given text.
func UserMessage(err error, fallback string) string {
	if msg, ok := BackendMessage(err); ok {
		return msg
	}
	return fallback
}

// HTTPStatus returns the status carried by an AppError, or 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

func isType(err error, errorType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errorType
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation) || errors.Is(err, ErrInvalidInput)
}

// IsAuthentication checks if an error is an authentication error
func IsAuthentication(err error) bool {
	if isType(err, ErrorTypeAuthentication) {
		return true
	}
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenExpired)
}

// IsAuthorization checks if an error is an authorization error
func IsAuthorization(err error) bool {
	return isType(err, ErrorTypeAuthorization) || errors.Is(err, ErrForbidden)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound) || errors.Is(err, ErrNotFound)
}

// IsSession checks if an error was caused by the current session state.
func IsSession(err error) bool {
	if isType(err, ErrorTypeSession) {
		return true
	}
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionSuperseded) || errors.Is(err, ErrAlreadyRestored)
}
