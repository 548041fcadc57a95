package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sessionhttp "flashcards-client/internal/session/adapter/http"
	"flashcards-client/internal/session/domain/model"
	"flashcards-client/internal/session/testutil"
	"flashcards-client/internal/session/usecase"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Mock session manager
type mockSessionManager struct {
	mock.Mock
}

func (m *mockSessionManager) Restore(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSessionManager) Login(ctx context.Context, identifier, secret string) error {
	return m.Called(ctx, identifier, secret).Error(0)
}

func (m *mockSessionManager) Register(ctx context.Context, reg model.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

func (m *mockSessionManager) Logout(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockSessionManager) UpdateProfile(ctx context.Context, update model.ProfileUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func (m *mockSessionManager) View() model.View {
	return m.Called().Get(0).(model.View)
}

func (m *mockSessionManager) WaitReady(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type GatewayTestSuite struct {
	suite.Suite
	manager *mockSessionManager
	bus     *eventbus.EventBus
	hub     *sessionhttp.EventHub
	screens *usecase.ScreenTracker
	app     *fiber.App
	users   *testutil.UserFixture
}

func (suite *GatewayTestSuite) SetupTest() {
	log := logger.NewNopLogger()
	suite.manager = &mockSessionManager{}
	suite.bus = eventbus.NewEventBus(log)
	suite.hub = sessionhttp.NewEventHub(suite.bus, log)
	suite.screens = usecase.NewScreenTracker()
	suite.users = testutil.NewUserFixture()

	gate, err := usecase.NewScreenGate(nil, log)
	require.NoError(suite.T(), err)

	gateway := sessionhttp.NewGateway(suite.manager, gate, suite.screens, suite.hub, log)
	middleware := sessionhttp.NewSessionMiddleware(suite.manager, log)
	suite.app = sessionhttp.NewApp(gateway, middleware, "http://localhost:3000")
}

func (suite *GatewayTestSuite) TearDownTest() {
	suite.hub.Close()
}

func (suite *GatewayTestSuite) anonymous() model.View {
	return model.View{State: model.StateAnonymous}
}

func (suite *GatewayTestSuite) authenticated(user *model.User) model.View {
	return model.View{State: model.StateAuthenticated, User: user, IsAuthenticated: true, Generation: 3}
}

func (suite *GatewayTestSuite) request(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req, -1)
	require.NoError(suite.T(), err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func (suite *GatewayTestSuite) TestHealth() {
	suite.manager.On("View").Return(model.View{State: model.StateRestoring, Loading: true})

	resp, body := suite.request(http.MethodGet, "/health", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "ok", body["status"])
	assert.Equal(suite.T(), "RESTORING", body["state"])
	assert.Equal(suite.T(), true, body["loading"])
	assert.NotEmpty(suite.T(), resp.Header.Get("X-Request-ID"))
}

func (suite *GatewayTestSuite) TestGetSession() {
	suite.manager.On("View").Return(suite.authenticated(suite.users.Student()))

	resp, body := suite.request(http.MethodGet, "/session", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "AUTHENTICATED", body["state"])
	assert.Equal(suite.T(), true, body["isAuthenticated"])
	user := body["user"].(map[string]interface{})
	assert.Equal(suite.T(), "ada@example.com", user["email"])
}

func (suite *GatewayTestSuite) TestLogin_Success() {
	suite.manager.On("Login", mock.Anything, "ada@example.com", "secret").Return(nil).Once()
	suite.manager.On("View").Return(suite.authenticated(suite.users.Student()))

	resp, body := suite.request(http.MethodPost, "/session/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret",
	})

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "AUTHENTICATED", body["state"])
	suite.manager.AssertExpectations(suite.T())
}

func (suite *GatewayTestSuite) TestLogin_RejectedCredentials() {
	suite.manager.On("Login", mock.Anything, "ada@example.com", "wrong").Return(&usecase.OperationError{
		Op:      model.ReasonLogin,
		Message: "Invalid credentials",
		Err:     apperrors.FromHTTPStatus(401, "Invalid credentials"),
	}).Once()

	resp, body := suite.request(http.MethodPost, "/session/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})

	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(suite.T(), "Invalid credentials", body["error"])
}

func (suite *GatewayTestSuite) TestLogin_BackendDown() {
	suite.manager.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(&usecase.OperationError{
		Op:      model.ReasonLogin,
		Message: "Login failed",
		Err:     apperrors.NewInfrastructureError("connection refused"),
	}).Once()

	resp, body := suite.request(http.MethodPost, "/session/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret",
	})

	assert.Equal(suite.T(), http.StatusBadGateway, resp.StatusCode)
	assert.Equal(suite.T(), "Login failed", body["error"])
}

func (suite *GatewayTestSuite) TestLogin_InvalidBody() {
	req := httptest.NewRequest(http.MethodPost, "/session/login", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req, -1)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	suite.manager.AssertNotCalled(suite.T(), "Login", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *GatewayTestSuite) TestRegister_Created() {
	reg := model.Registration{Email: "new@example.com", Username: "newbie", Password: "secret", Name: "New"}
	suite.manager.On("Register", mock.Anything, reg).Return(nil).Once()
	suite.manager.On("View").Return(suite.authenticated(&model.User{ID: "9", Email: reg.Email}))

	resp, body := suite.request(http.MethodPost, "/session/register", reg)

	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	assert.Equal(suite.T(), "AUTHENTICATED", body["state"])
}

func (suite *GatewayTestSuite) TestRegister_ForwardsUnknownFields() {
	reg := model.Registration{
		Email:    "new@example.com",
		Password: "secret",
		Extra:    map[string]interface{}{"institution": "Open University"},
	}
	suite.manager.On("Register", mock.Anything, reg).Return(nil).Once()
	suite.manager.On("View").Return(suite.authenticated(&model.User{ID: "9", Email: reg.Email}))

	resp, _ := suite.request(http.MethodPost, "/session/register", map[string]string{
		"email":       "new@example.com",
		"password":    "secret",
		"institution": "Open University",
	})

	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	suite.manager.AssertExpectations(suite.T())
}

func (suite *GatewayTestSuite) TestLogout() {
	suite.manager.On("Logout", mock.Anything).Return().Once()
	suite.manager.On("View").Return(suite.anonymous())

	resp, body := suite.request(http.MethodPost, "/session/logout", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "ANONYMOUS", body["state"])
	suite.manager.AssertExpectations(suite.T())
}

func (suite *GatewayTestSuite) TestUpdateProfile_RequiresSession() {
	suite.manager.On("View").Return(suite.anonymous()).Once()
	resp, _ := suite.request(http.MethodPut, "/session/profile", map[string]string{"name": "X"})
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)

	suite.manager.On("View").Return(model.View{State: model.StateRestoring, Loading: true}).Once()
	resp, _ = suite.request(http.MethodPut, "/session/profile", map[string]string{"name": "X"})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(suite.T(), "1", resp.Header.Get("Retry-After"))

	suite.manager.AssertNotCalled(suite.T(), "UpdateProfile", mock.Anything, mock.Anything)
}

func (suite *GatewayTestSuite) TestUpdateProfile_Success() {
	updated := suite.users.Student()
	updated.Name = "Countess Ada"
	suite.manager.On("View").Return(suite.authenticated(suite.users.Student())).Once()
	suite.manager.On("UpdateProfile", mock.Anything, model.ProfileUpdate{Name: "Countess Ada"}).Return(nil).Once()
	suite.manager.On("View").Return(suite.authenticated(updated))

	resp, body := suite.request(http.MethodPut, "/session/profile", map[string]string{"name": "Countess Ada"})

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "Countess Ada", body["user"].(map[string]interface{})["name"])
}

func (suite *GatewayTestSuite) TestUpdateProfile_OnlyUnknownFields() {
	update := model.ProfileUpdate{Extra: map[string]interface{}{"bio": "Learning Spanish"}}
	suite.manager.On("View").Return(suite.authenticated(suite.users.Student()))
	suite.manager.On("UpdateProfile", mock.Anything, update).Return(nil).Once()

	resp, _ := suite.request(http.MethodPut, "/session/profile", map[string]string{"bio": "Learning Spanish"})

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	suite.manager.AssertExpectations(suite.T())
}

func (suite *GatewayTestSuite) TestUpdateProfile_EmptyBody() {
	suite.manager.On("View").Return(suite.authenticated(suite.users.Student()))

	resp, body := suite.request(http.MethodPut, "/session/profile", map[string]string{})

	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "Nothing to update", body["error"])
}

func (suite *GatewayTestSuite) TestCheckScreen() {
	tests := []struct {
		name   string
		view   model.View
		screen string
		status int
		want   string
	}{
		{"pending while restoring", model.View{State: model.StateRestoring, Loading: true}, "decks", http.StatusServiceUnavailable, "pending"},
		{"login needed", suite.anonymous(), "study", http.StatusUnauthorized, "login_required"},
		{"login screen open", suite.anonymous(), "login", http.StatusOK, "allowed"},
		{"student on admin", suite.authenticated(suite.users.Student()), "admin", http.StatusForbidden, "forbidden"},
		{"admin on admin", suite.authenticated(suite.users.Admin()), "ADMIN", http.StatusOK, "allowed"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.manager.On("View").Return(tt.view).Once()

			resp, body := suite.request(http.MethodGet, "/screens/"+tt.screen, nil)

			assert.Equal(suite.T(), tt.status, resp.StatusCode)
			assert.Equal(suite.T(), tt.want, body["decision"])
		})
	}
	assert.Equal(suite.T(), "admin", suite.screens.Current())
}

func (suite *GatewayTestSuite) TestCheckScreen_Unknown() {
	suite.manager.On("View").Return(suite.anonymous())

	resp, _ := suite.request(http.MethodGet, "/screens/billing", nil)

	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Empty(suite.T(), suite.screens.Current())
}

func (suite *GatewayTestSuite) TestListScreens() {
	resp, body := suite.request(http.MethodGet, "/screens", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Len(suite.T(), body["screens"], len(usecase.DefaultScreenRules))
}

func (suite *GatewayTestSuite) TestMetrics() {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := suite.app.Test(req, -1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), string(raw), "flashcards_session_authenticated")
}

func (suite *GatewayTestSuite) TestEventsRequireUpgrade() {
	resp, _ := suite.request(http.MethodGet, "/session/events", nil)
	assert.Equal(suite.T(), http.StatusUpgradeRequired, resp.StatusCode)
}

func (suite *GatewayTestSuite) TestEventStream() {
	suite.manager.On("View").Return(suite.anonymous())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(suite.T(), err)
	go func() { _ = suite.app.Listener(ln) }()
	defer func() { _ = suite.app.Shutdown() }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/session/events", nil)
	require.NoError(suite.T(), err)
	defer conn.Close()
	require.NoError(suite.T(), conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot sessionhttp.StreamMessage
	require.NoError(suite.T(), conn.ReadJSON(&snapshot))
	assert.Equal(suite.T(), sessionhttp.MessageTypeSnapshot, snapshot.Type)
	require.Eventually(suite.T(), func() bool { return suite.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	transition := model.Transition{From: model.StateAnonymous, To: model.StateAuthenticated, Reason: model.ReasonLogin, Generation: 4}
	require.NoError(suite.T(), suite.bus.Publish(context.Background(),
		eventbus.NewBasicEventWithSource(eventbus.EventTypeSessionStateChanged, transition, "session-manager")))

	var frame struct {
		Type string           `json:"type"`
		Data model.Transition `json:"data"`
	}
	require.NoError(suite.T(), conn.ReadJSON(&frame))
	assert.Equal(suite.T(), eventbus.EventTypeSessionStateChanged, frame.Type)
	assert.Equal(suite.T(), model.ReasonLogin, frame.Data.Reason)
	assert.Equal(suite.T(), uint64(4), frame.Data.Generation)
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}
