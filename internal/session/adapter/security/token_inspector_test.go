package security_test

import (
	"errors"
	"testing"
	"time"

	"flashcards-client/internal/session/adapter/security"
	"flashcards-client/internal/session/testutil"
	apperrors "flashcards-client/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InspectorTestSuite struct {
	suite.Suite
	now       time.Time
	tokens    *testutil.TokenFixture
	inspector *security.ClaimsInspector
}

func (suite *InspectorTestSuite) SetupTest() {
	suite.now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	suite.tokens = testutil.NewTokenFixture()
	suite.inspector = security.NewClaimsInspector(security.WithClock(func() time.Time { return suite.now }))
}

func (suite *InspectorTestSuite) TestInspect_FutureExpiry() {
	token := suite.tokens.ExpiringAt(suite.now.Add(time.Hour))

	claims, err := suite.inspector.Inspect(token)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), claims.ExpiresAt)
	assert.True(suite.T(), claims.ExpiresAt.Equal(suite.now.Add(time.Hour)))
	assert.Equal(suite.T(), "user-1", claims.Subject)
	assert.Equal(suite.T(), "test@example.com", claims.Raw["email"])
}

func (suite *InspectorTestSuite) TestInspect_TrailingWhitespaceIsAccepted() {
	claims, err := suite.inspector.Inspect(suite.tokens.WithRawPayload("{\"exp\":4102444800}\n "))

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), claims.ExpiresAt)
}

func (suite *InspectorTestSuite) TestInspect_ExpiredTokens() {
	testCases := []struct {
		name string
		exp  time.Time
	}{
		{name: "one second ago", exp: suite.now.Add(-time.Second)},
		{name: "exactly now", exp: suite.now},
		{name: "last year", exp: suite.now.AddDate(-1, 0, 0)},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			claims, err := suite.inspector.Inspect(suite.tokens.ExpiringAt(tc.exp))

			assert.True(suite.T(), errors.Is(err, apperrors.ErrTokenExpired))
			require.NotNil(suite.T(), claims)
			assert.True(suite.T(), apperrors.IsAuthentication(err))
		})
	}
}

func (suite *InspectorTestSuite) TestInspect_MissingExpIsAccepted() {
	token := suite.tokens.WithClaims(jwt.MapClaims{"sub": "user-9"})

	claims, err := suite.inspector.Inspect(token)

	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), claims.ExpiresAt)
	assert.Equal(suite.T(), "user-9", claims.Subject)
}

func (suite *InspectorTestSuite) TestInspect_SignatureIsNotVerified() {
	token := suite.tokens.ExpiringAt(suite.now.Add(time.Minute))
	tampered := token[:len(token)-4] + "AAAA"

	_, err := suite.inspector.Inspect(tampered)

	assert.NoError(suite.T(), err)
}

func (suite *InspectorTestSuite) TestInspect_MalformedTokens() {
	testCases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "one segment", token: "opaque-token"},
		{name: "two segments", token: "a.b"},
		{name: "four segments", token: "a.b.c.d"},
		{name: "payload not base64", token: "eyJhbGciOiJIUzI1NiJ9.***.sig"},
		{name: "payload not json", token: suite.tokens.WithRawPayload("not json")},
		{name: "payload is array", token: suite.tokens.WithRawPayload(`[1,2,3]`)},
		{name: "payload is null", token: suite.tokens.WithRawPayload(`null`)},
		{name: "trailing garbage after object", token: suite.tokens.WithRawPayload(`{"exp":4102444800}not-json`)},
		{name: "two json objects", token: suite.tokens.WithRawPayload(`{"exp":4102444800}{"sub":"x"}`)},
		{name: "exp is a string", token: suite.tokens.WithRawPayload(`{"exp":"tomorrow"}`)},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			claims, err := suite.inspector.Inspect(tc.token)

			assert.Nil(suite.T(), claims)
			assert.True(suite.T(), errors.Is(err, apperrors.ErrTokenMalformed), "got %v", err)
		})
	}
}

func (suite *InspectorTestSuite) TestInspect_HeaderIsNotDecoded() {
	token := "not-a-header." + suite.tokens.WithRawPayload(`{"exp":4102444800}`)[len("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9."):]

	_, err := suite.inspector.Inspect(token)

	assert.NoError(suite.T(), err)
}

func TestInspectorTestSuite(t *testing.T) {
	suite.Run(t, new(InspectorTestSuite))
}
