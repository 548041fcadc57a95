package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"flashcards-client/internal/session/domain/model"
	"flashcards-client/internal/session/domain/repository"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"
	"flashcards-client/internal/shared/metrics"

	"go.uber.org/zap"
)

// User-visible notices
const (
	msgLoginSuccess    = "Login successful!"
	msgLoginFailed     = "Login failed"
	msgRegisterSuccess = "Registration successful!"
	msgRegisterFailed  = "Registration failed"
	msgLogoutSuccess   = "Logged out successfully"
	msgLogoutFailed    = "Error during logout"
	msgProfileSuccess  = "Profile updated successfully!"
	msgProfileFailed   = "Profile update failed"
	msgSessionExpired  = "Session expired. Please log in again."
	msgMissingCreds    = "Email and password are required"
)

// StorageKeys names the two persisted session entries.
type StorageKeys struct {
	Token string
	User  string
}

// ManagerDeps are the collaborators of a Manager.
type ManagerDeps struct {
	Storage     repository.Storage
	API         repository.AuthAPI
	Credentials repository.CredentialHolder
	Inspector   repository.TokenInspector
	Notifier    repository.Notifier
	Bus         eventbus.EventBusInterface
	Screens     *ScreenTracker
	Keys        StorageKeys
	Logger      logger.Logger
}

// SessionManagerInterface is what screens and the gateway may call.
type SessionManagerInterface interface {
	Restore(ctx context.Context) error
	Login(ctx context.Context, identifier, secret string) error
	Register(ctx context.Context, reg model.Registration) error
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) error
	View() model.View
	WaitReady(ctx context.Context) error
}

// Manager is the single writer of the session. Fields live behind mu, which is only held
// for field access. commitMu serializes storage writes, credential changes and generation
// bumps, so a slow store never blocks View. Neither lock is held across a call to the
// remote API. Every change of identity bumps generation, and operations that started
// under an older generation drop their result. Lock order is commitMu then mu.
type Manager struct {
	storage     repository.Storage
	api         repository.AuthAPI
	credentials repository.CredentialHolder
	inspector   repository.TokenInspector
	notifier    repository.Notifier
	bus         eventbus.EventBusInterface
	screens     *ScreenTracker
	keys        StorageKeys
	log         logger.Logger

	commitMu sync.Mutex

	mu             sync.Mutex
	state          model.State
	user           *model.User
	token          string
	loading        bool
	generation     uint64
	restoreStarted bool

	ready     chan struct{}
	readyOnce sync.Once
	deniedSub eventbus.Subscription
}

// NewManager creates a manager in UNINITIALIZED with loading set, and subscribes it to
// authorization-denied events from the API client.
func NewManager(deps ManagerDeps) *Manager {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	screens := deps.Screens
	if screens == nil {
		screens = NewScreenTracker()
	}

	m := &Manager{
		storage:     deps.Storage,
		api:         deps.API,
		credentials: deps.Credentials,
		inspector:   deps.Inspector,
		notifier:    deps.Notifier,
		bus:         deps.Bus,
		screens:     screens,
		keys:        deps.Keys,
		log:         log.WithComponent("session-manager"),
		state:       model.StateUninitialized,
		loading:     true,
		ready:       make(chan struct{}),
	}
	if m.bus != nil {
		m.deniedSub = m.bus.Subscribe(eventbus.EventTypeAuthorizationDenied, m.handleAuthorizationDenied)
	}
	return m
}

// Close detaches the manager from the event bus.
func (m *Manager) Close() {
	if m.bus != nil {
		m.bus.Cancel(m.deniedSub)
	}
}

// View returns a read-only snapshot of the session.
func (m *Manager) View() model.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Manager) viewLocked() model.View {
	return model.View{
		State:           m.state,
		User:            m.user.Clone(),
		IsAuthenticated: m.isAuthenticatedLocked(),
		Loading:         m.loading,
		Generation:      m.generation,
	}
}

func (m *Manager) isAuthenticatedLocked() bool {
	return m.state == model.StateAuthenticated && m.token != "" && m.user != nil
}

// WaitReady blocks until Restore has cleared loading.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restore rebuilds the session from storage. It runs once per process; it makes one
// call to the backend when a well-formed, unexpired token is stored and none otherwise.
// Failures fall back to ANONYMOUS silently.
func (m *Manager) Restore(ctx context.Context) error {
	m.commitMu.Lock()
	m.mu.Lock()
	if m.restoreStarted {
		m.mu.Unlock()
		m.commitMu.Unlock()
		return apperrors.NewSessionError("session restore runs once per process").WithCause(apperrors.ErrAlreadyRestored)
	}
	m.restoreStarted = true
	started := m.transitionLocked(model.StateRestoring, model.ReasonRestoreStarted)
	gen := m.generation
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.publish(ctx, started)
	defer m.finishLoading(ctx)

	token, cachedUser, err := m.readStored(ctx)
	if err != nil || token == "" || cachedUser == "" {
		if err != nil {
			m.log.With(zap.Error(err)).Warn("Could not read stored session")
		}
		m.settleAnonymous(ctx, gen, model.ReasonNoStoredSession, false)
		return nil
	}

	if _, err := m.inspector.Inspect(token); err != nil {
		reason := model.ReasonTokenMalformed
		if errors.Is(err, apperrors.ErrTokenExpired) {
			reason = model.ReasonTokenExpired
		}
		m.log.With(zap.String("reason", reason)).Info("Stored token rejected locally")
		m.settleAnonymous(ctx, gen, reason, true)
		return nil
	}

	if !m.attachStoredToken(gen, token) {
		m.log.Info("Restore dropped before verification, session changed meanwhile")
		return nil
	}
	user, err := m.api.Me(ctx)
	if err != nil {
		m.log.With(zap.Error(err)).Info("Backend rejected stored session")
		m.settleAnonymous(ctx, gen, model.ReasonVerificationFailed, true)
		return nil
	}

	m.commitMu.Lock()
	if m.currentGeneration() != gen {
		m.syncCredential()
		m.commitMu.Unlock()
		m.log.Info("Restore result dropped, session changed meanwhile")
		return nil
	}
	if err := m.persistUser(ctx, user); err != nil {
		m.log.With(zap.Error(err)).Warn("Could not re-persist verified profile")
	}
	m.mu.Lock()
	m.token = token
	m.user = user
	tr := m.transitionLocked(model.StateAuthenticated, model.ReasonRestored)
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.publish(ctx, tr)
	return nil
}

// attachStoredToken hands the stored token to the credential holder unless the session
// moved on after gen.
func (m *Manager) attachStoredToken(gen uint64, token string) bool {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	if m.currentGeneration() != gen {
		return false
	}
	m.credentials.SetToken(token)
	return true
}

// syncCredential points the credential holder back at the session's own token.
// Callers hold commitMu.
func (m *Manager) syncCredential() {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		m.credentials.ClearToken()
		return
	}
	m.credentials.SetToken(token)
}

func (m *Manager) readStored(ctx context.Context) (string, string, error) {
	token, err := m.storage.Get(ctx, m.keys.Token)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	user, err := m.storage.Get(ctx, m.keys.User)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return token, "", nil
	}
	return token, user, err
}

// settleAnonymous ends a restore in ANONYMOUS unless something else already moved the session.
func (m *Manager) settleAnonymous(ctx context.Context, gen uint64, reason string, purge bool) {
	m.commitMu.Lock()
	if m.currentGeneration() != gen {
		m.syncCredential()
		m.commitMu.Unlock()
		return
	}
	var storageErr error
	if purge {
		storageErr = m.storage.Remove(ctx, m.keys.Token, m.keys.User)
		m.credentials.ClearToken()
	}
	m.mu.Lock()
	m.token = ""
	m.user = nil
	tr := m.transitionLocked(model.StateAnonymous, reason)
	m.mu.Unlock()
	m.commitMu.Unlock()

	if storageErr != nil {
		m.log.With(zap.Error(storageErr)).Warn("Could not purge stored session")
	}
	m.publish(ctx, tr)
}

func (m *Manager) finishLoading(ctx context.Context) {
	m.mu.Lock()
	m.loading = false
	view := m.viewLocked()
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })
	m.log.With(zap.String("state", view.State.String())).Info("Session restore finished")
}

// Login exchanges credentials for a session. Prior state is kept on failure.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		m.notifyError(ctx, msgMissingCreds)
		return &OperationError{
			Op:      model.ReasonLogin,
			Message: msgMissingCreds,
			Err:     apperrors.NewValidationError(msgMissingCreds).WithComponent("session"),
		}
	}

	gen := m.currentGeneration()
	result, err := m.api.Login(ctx, model.Credentials{Identifier: strings.TrimSpace(identifier), Secret: secret})
	if err != nil {
		return m.fail(ctx, model.ReasonLogin, err, msgLoginFailed)
	}
	return m.establish(ctx, gen, result, model.ReasonLogin, msgLoginSuccess, msgLoginFailed)
}

// Register creates an account and signs it in. Field validation is the backend's.
func (m *Manager) Register(ctx context.Context, reg model.Registration) error {
	gen := m.currentGeneration()
	result, err := m.api.Register(ctx, reg)
	if err != nil {
		return m.fail(ctx, model.ReasonRegister, err, msgRegisterFailed)
	}
	return m.establish(ctx, gen, result, model.ReasonRegister, msgRegisterSuccess, msgRegisterFailed)
}

// establish persists the new token and profile, then attaches the credential, then
// moves to AUTHENTICATED.
func (m *Manager) establish(ctx context.Context, gen uint64, result *model.AuthResult, reason, successMsg, failMsg string) error {
	m.commitMu.Lock()
	if m.currentGeneration() != gen {
		m.commitMu.Unlock()
		m.log.With(zap.String("operation", reason)).Info("Auth result dropped, session changed meanwhile")
		return errSuperseded(reason)
	}

	if err := m.storage.Set(ctx, m.keys.Token, result.Token); err != nil {
		m.commitMu.Unlock()
		return m.fail(ctx, reason, err, failMsg)
	}
	if err := m.persistUser(ctx, result.User); err != nil {
		_ = m.storage.Remove(ctx, m.keys.Token, m.keys.User)
		m.commitMu.Unlock()
		return m.fail(ctx, reason, err, failMsg)
	}

	m.credentials.SetToken(result.Token)
	m.mu.Lock()
	m.token = result.Token
	m.user = result.User
	tr := m.transitionLocked(model.StateAuthenticated, reason)
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.publish(ctx, tr)
	m.notifySuccess(ctx, successMsg)
	return nil
}

// Logout clears the session unconditionally. It never fails; storage errors are
// reported as a notice and the session still ends up ANONYMOUS.
func (m *Manager) Logout(ctx context.Context) {
	m.commitMu.Lock()
	tr, storageErr := m.clearCommitted(ctx, model.ReasonLogout)
	m.commitMu.Unlock()

	m.publish(ctx, tr)
	if storageErr != nil {
		m.log.With(zap.Error(storageErr)).Error("Error during logout")
		m.notifyError(ctx, msgLogoutFailed)
		return
	}
	m.notifySuccess(ctx, msgLogoutSuccess)
}

// clearCommitted ends the session. Callers hold commitMu.
func (m *Manager) clearCommitted(ctx context.Context, reason string) (model.Transition, error) {
	storageErr := m.storage.Remove(ctx, m.keys.Token, m.keys.User)
	m.credentials.ClearToken()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return m.transitionLocked(model.StateAnonymous, reason), storageErr
}

// UpdateProfile replaces the cached profile with the backend's answer.
func (m *Manager) UpdateProfile(ctx context.Context, update model.ProfileUpdate) error {
	m.mu.Lock()
	if m.state != model.StateAuthenticated {
		m.mu.Unlock()
		return &OperationError{
			Op:      model.ReasonProfileUpdated,
			Message: "Sign in to update your profile",
			Err:     apperrors.NewSessionError("profile update without a session").WithCause(apperrors.ErrNotAuthenticated),
		}
	}
	gen := m.generation
	m.mu.Unlock()

	user, err := m.api.UpdateProfile(ctx, update)
	if err != nil {
		return m.fail(ctx, model.ReasonProfileUpdated, err, msgProfileFailed)
	}

	m.commitMu.Lock()
	if view := m.View(); view.Generation != gen || view.State != model.StateAuthenticated {
		m.commitMu.Unlock()
		return errSuperseded(model.ReasonProfileUpdated)
	}
	if err := m.persistUser(ctx, user); err != nil {
		m.commitMu.Unlock()
		return m.fail(ctx, model.ReasonProfileUpdated, err, msgProfileFailed)
	}
	m.mu.Lock()
	m.user = user
	tr := model.Transition{
		From:       model.StateAuthenticated,
		To:         model.StateAuthenticated,
		Reason:     model.ReasonProfileUpdated,
		Generation: m.generation,
		At:         time.Now(),
	}
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.publish(ctx, tr)
	m.notifySuccess(ctx, msgProfileSuccess)
	return nil
}

// handleAuthorizationDenied runs inside the API client's response path. Only an
// authenticated session reacts, so a 401 during restore or a failed login is a no-op.
func (m *Manager) handleAuthorizationDenied(ctx context.Context, event eventbus.Event) error {
	m.commitMu.Lock()
	if m.View().State != model.StateAuthenticated {
		m.commitMu.Unlock()
		return nil
	}
	tr, storageErr := m.clearCommitted(ctx, model.ReasonAuthorizationDenied)
	m.commitMu.Unlock()

	if storageErr != nil {
		m.log.With(zap.Error(storageErr)).Error("Could not purge storage after authorization denied")
	}
	m.log.Infof("Session ended by authorization-denied response (%v)", event.Data())
	m.publish(ctx, tr)

	if !m.screens.OnAuthScreen() {
		m.notifyError(ctx, msgSessionExpired)
	}
	return nil
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Manager) persistUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.storage.Set(ctx, m.keys.User, string(data))
}

// transitionLocked moves to state "to" and starts a new generation.
func (m *Manager) transitionLocked(to model.State, reason string) model.Transition {
	from := m.state
	m.state = to
	m.generation++

	metrics.SessionTransitionsTotal.WithLabelValues(from.String(), to.String(), reason).Inc()
	if m.isAuthenticatedLocked() {
		metrics.SessionAuthenticated.Set(1)
	} else {
		metrics.SessionAuthenticated.Set(0)
	}

	return model.Transition{From: from, To: to, Reason: reason, Generation: m.generation, At: time.Now()}
}

func (m *Manager) publish(ctx context.Context, tr model.Transition) {
	m.log.With(
		zap.String("from", tr.From.String()),
		zap.String("to", tr.To.String()),
		zap.String("reason", tr.Reason),
		zap.Uint64("generation", tr.Generation),
	).Debug("Session transition")

	if m.bus == nil {
		return
	}
	event := eventbus.NewBasicEventWithSource(eventbus.EventTypeSessionStateChanged, tr, "session-manager")
	if err := m.bus.Publish(ctx, event); err != nil {
		m.log.With(zap.Error(err)).Warn("State change subscriber failed")
	}
}

func (m *Manager) fail(ctx context.Context, op string, err error, fallback string) error {
	message := apperrors.UserMessage(err, fallback)
	m.log.With(zap.String("operation", op), zap.Error(err)).Warn("Session operation failed")
	m.notifyError(ctx, message)
	return &OperationError{Op: op, Message: message, Err: err}
}

func (m *Manager) notifySuccess(ctx context.Context, message string) {
	if m.notifier != nil {
		m.notifier.Success(ctx, message)
	}
}

func (m *Manager) notifyError(ctx context.Context, message string) {
	if m.notifier != nil {
		m.notifier.Error(ctx, message)
	}
}
