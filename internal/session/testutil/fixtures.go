package testutil

import (
	"encoding/base64"
	"time"

	"flashcards-client/internal/session/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

const signingKey = "test-signing-key-that-the-client-never-checks"

// TokenFixture mints bearer tokens shaped like the backend's.
type TokenFixture struct{}

// NewTokenFixture creates a new TokenFixture instance
func NewTokenFixture() *TokenFixture {
	return &TokenFixture{}
}

// ExpiringAt returns a signed token whose exp claim is the given instant.
func (f *TokenFixture) ExpiringAt(exp time.Time) string {
	return f.WithClaims(jwt.MapClaims{
		"sub":   "user-1",
		"email": "test@example.com",
		"iat":   exp.Add(-24 * time.Hour).Unix(),
		"exp":   exp.Unix(),
	})
}

// Valid returns a token that expires in one hour.
func (f *TokenFixture) Valid() string {
	return f.ExpiringAt(time.Now().Add(time.Hour))
}

// Expired returns a token that expired one second ago.
func (f *TokenFixture) Expired() string {
	return f.ExpiringAt(time.Now().Add(-time.Second))
}

// WithClaims signs arbitrary claims with HS256.
func (f *TokenFixture) WithClaims(claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return token
}

// WithRawPayload builds a token around an arbitrary payload segment.
func (f *TokenFixture) WithRawPayload(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".c2lnbmF0dXJl"
}

// UserFixture provides profile records.
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// Student returns a regular user.
func (f *UserFixture) Student() *model.User {
	return &model.User{
		ID:       "user-1",
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Username: "ada",
		Role:     model.RoleUser,
	}
}

// Admin returns a user with the admin role.
func (f *UserFixture) Admin() *model.User {
	return &model.User{
		ID:    "admin-1",
		Name:  "Grace Hopper",
		Email: "grace@example.com",
		Role:  model.RoleAdmin,
	}
}
