package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Behavior(t *testing.T) {
	err := NewValidationError("invalid input").WithCode("VAL001").WithDetail("field", "email").WithComponent("session")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "VAL001", err.Code)
	assert.Equal(t, "session", err.Component)
	assert.Equal(t, "email", err.Details["field"])
	assert.Equal(t, "invalid input", err.Error())
}

func TestAppError_WithCause_Unwrap(t *testing.T) {
	err := NewInfrastructureError("storage unavailable").WithCause(ErrNotFound)
	assert.Equal(t, ErrNotFound, err.Unwrap())
	assert.Equal(t, "storage unavailable: resource not found", err.Error())
}

func TestFromHTTPStatus(t *testing.T) {
	testCases := []struct {
		status   int
		expected ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuthentication},
		{http.StatusForbidden, ErrorTypeAuthorization},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusConflict, ErrorTypeConflict},
		{http.StatusBadRequest, ErrorTypeValidation},
		{http.StatusUnprocessableEntity, ErrorTypeValidation},
		{http.StatusBadGateway, ErrorTypeInfrastructure},
		{http.StatusTeapot, ErrorTypeInternal},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := FromHTTPStatus(tc.status, "")
			assert.Equal(t, tc.expected, err.Type)
			assert.Equal(t, tc.status, err.HTTPCode)
			assert.Equal(t, fmt.Sprintf("HTTP_%d", tc.status), err.Code)
			assert.Equal(t, http.StatusText(tc.status), err.Message)
		})
	}
}

func TestBackendMessage(t *testing.T) {
	withMessage := FromHTTPStatus(http.StatusBadRequest, "Email already registered")
	msg, ok := BackendMessage(fmt.Errorf("register: %w", withMessage))
	assert.True(t, ok)
	assert.Equal(t, "Email already registered", msg)
	assert.Equal(t, "Email already registered", UserMessage(withMessage, "Registration failed"))

	withoutMessage := FromHTTPStatus(http.StatusBadRequest, "")
	_, ok = BackendMessage(withoutMessage)
	assert.False(t, ok)
	assert.Equal(t, "Registration failed", UserMessage(withoutMessage, "Registration failed"))
	assert.Equal(t, "Login failed", UserMessage(errors.New("dial tcp: refused"), "Login failed"))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewSessionError("busy")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsAuthentication(FromHTTPStatus(http.StatusUnauthorized, "")))
	assert.True(t, IsAuthentication(fmt.Errorf("restore: %w", ErrTokenExpired)))
	assert.True(t, errors.Is(FromHTTPStatus(http.StatusUnauthorized, ""), ErrUnauthorized))
	assert.True(t, IsAuthorization(FromHTTPStatus(http.StatusForbidden, "")))
	assert.True(t, IsNotFound(FromHTTPStatus(http.StatusNotFound, "")))
	assert.True(t, IsValidation(NewValidationError("identifier is required")))
	assert.True(t, IsSession(NewSessionError("not signed in").WithCause(ErrNotAuthenticated)))
	assert.True(t, IsSession(ErrSessionSuperseded))
	assert.False(t, IsValidation(errors.New("plain")))
}
