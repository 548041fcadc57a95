package repository

import (
	"context"

	"flashcards-client/internal/session/domain/model"
)

// AuthAPI is the remote auth backend.
type AuthAPI interface {
	// Me returns the profile behind the credential currently attached to requests.
	Me(ctx context.Context) (*model.User, error)
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error)
}

// CredentialHolder owns the bearer credential attached to outgoing requests.
type CredentialHolder interface {
	SetToken(token string)
	ClearToken()
	HasToken() bool
}

// Notifier shows user-visible notices.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}
