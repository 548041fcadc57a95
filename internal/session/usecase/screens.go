package usecase

import (
	"strings"
	"sync"
)

// Screens of the flashcards UI.
const (
	ScreenLogin     = "login"
	ScreenRegister  = "register"
	ScreenDashboard = "dashboard"
	ScreenDecks     = "decks"
	ScreenDeck      = "deck"
	ScreenStudy     = "study"
	ScreenQuiz      = "quiz"
	ScreenFeedback  = "feedback"
	ScreenAdmin     = "admin"
)

// ScreenTracker remembers which screen the user is looking at.
type ScreenTracker struct {
	mu      sync.RWMutex
	current string
}

// NewScreenTracker creates a tracker with no current screen.
func NewScreenTracker() *ScreenTracker {
	return &ScreenTracker{}
}

// Set records the current screen. Route paths such as "/login" are accepted too.
func (t *ScreenTracker) Set(screen string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = screen
}

// Current returns the last recorded screen.
func (t *ScreenTracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// OnAuthScreen reports whether the user is on the login or registration screen,
// where a session-expired notice would only be noise.
func (t *ScreenTracker) OnAuthScreen() bool {
	current := strings.ToLower(t.Current())
	return strings.Contains(current, ScreenLogin) || strings.Contains(current, ScreenRegister)
}
