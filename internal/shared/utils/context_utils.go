package utils

import (
	"context"
	"errors"

	"flashcards-client/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrUserIDNotFound    = errors.New("userID not found in context")
	ErrRequestIDNotFound = errors.New("requestID not found in context")
	ErrScreenNotFound    = errors.New("screen not found in context")
)

func stringValue(ctx context.Context, key interface{}, notFound error) (string, error) {
	val, ok := ctx.Value(key).(string)
	if !ok || val == "" {
		return "", notFound
	}
	return val, nil
}

// GetUserIDFromContext retrieves the signed-in user's id.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.UserIDKey, ErrUserIDNotFound)
}

// GetRequestIDFromContext retrieves the X-Request-ID of the current call.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound)
}

// GetScreenFromContext retrieves the screen that issued the call.
func GetScreenFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.ScreenKey, ErrScreenNotFound)
}

// WithUserID returns a context carrying the user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithScreen returns a context carrying the calling screen.
func WithScreen(ctx context.Context, screen string) context.Context {
	return context.WithValue(ctx, contextkeys.ScreenKey, screen)
}
