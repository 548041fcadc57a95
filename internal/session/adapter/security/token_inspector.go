package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"flashcards-client/internal/session/domain/repository"
	apperrors "flashcards-client/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsInspector reads the payload segment of a bearer token. The signature is never
// checked: the client does not hold the signing key, and the backend remains the only
// authority on whether a token is valid.
type ClaimsInspector struct {
	parser *jwt.Parser
	now    func() time.Time
}

// Option configures a ClaimsInspector.
type Option func(*ClaimsInspector)

// WithClock replaces the wall clock used for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(i *ClaimsInspector) {
		i.now = now
	}
}

// NewClaimsInspector creates an inspector that tolerates padded base64url segments.
func NewClaimsInspector(opts ...Option) *ClaimsInspector {
	i := &ClaimsInspector{
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect returns ErrTokenMalformed unless the token has three dot-separated segments
// and a JSON object as its middle segment, and ErrTokenExpired when exp is at or before now.
// A payload without exp is accepted and left for the backend to judge.
func (i *ClaimsInspector) Inspect(token string) (*repository.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", apperrors.ErrTokenMalformed, len(parts))
	}

	payload, err := i.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", apperrors.ErrTokenMalformed, err)
	}

	var claims jwt.MapClaims
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not JSON: %v", apperrors.ErrTokenMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON payload", apperrors.ErrTokenMalformed)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", apperrors.ErrTokenMalformed)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", apperrors.ErrTokenMalformed, err)
	}
	subject, _ := claims.GetSubject()

	result := &repository.Claims{
		Subject: subject,
		Raw:     claims,
	}
	if exp != nil {
		expiresAt := exp.Time
		result.ExpiresAt = &expiresAt
		if !expiresAt.After(i.now()) {
			return result, fmt.Errorf("%w: expired at %s", apperrors.ErrTokenExpired, expiresAt.UTC().Format(time.RFC3339))
		}
	}

	return result, nil
}
