package api

import (
	"context"
	"net/http"

	"flashcards-client/internal/session/domain/model"
	apperrors "flashcards-client/internal/shared/errors"
)

// Me fetches the profile behind the current credential.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	var result model.AuthResult
	if err := c.Do(ctx, http.MethodPost, "/auth/login", creds, &result); err != nil {
		return nil, err
	}
	return checkAuthResult(&result)
}

// Register creates an account and returns its token and profile.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error) {
	var result model.AuthResult
	if err := c.Do(ctx, http.MethodPost, "/auth/register", reg, &result); err != nil {
		return nil, err
	}
	return checkAuthResult(&result)
}

// UpdateProfile merges the given fields into the backend profile.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, http.MethodPut, "/auth/profile", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func checkAuthResult(result *model.AuthResult) (*model.AuthResult, error) {
	if result.Token == "" || result.User == nil {
		return nil, apperrors.NewInfrastructureError("auth response is missing token or user").WithComponent("api")
	}
	return result, nil
}
