package usecase

import (
	apperrors "flashcards-client/internal/shared/errors"
)

// OperationError is returned by failed session operations. Message is fit to show
// the user; the wrapped error keeps the cause and its HTTP status.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func errSuperseded(op string) error {
	return &OperationError{
		Op:      op,
		Message: "Session changed while the request was in flight",
		Err:     apperrors.NewSessionError("superseded").WithCause(apperrors.ErrSessionSuperseded).WithComponent("session"),
	}
}
