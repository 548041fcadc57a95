package model

import (
	"fmt"
	"time"
)

// State is the position of the session in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRestoring:
		return "RESTORING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateAnonymous:
		return "ANONYMOUS"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateUninitialized, StateRestoring, StateAuthenticated, StateAnonymous} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// Transition reasons
const (
	ReasonRestoreStarted      = "restore_started"
	ReasonRestored            = "restored"
	ReasonNoStoredSession     = "no_stored_session"
	ReasonTokenMalformed      = "token_malformed"
	ReasonTokenExpired        = "token_expired"
	ReasonVerificationFailed  = "verification_failed"
	ReasonLogin               = "login"
	ReasonRegister            = "register"
	ReasonLogout              = "logout"
	ReasonAuthorizationDenied = "authorization_denied"
	ReasonProfileUpdated      = "profile_updated"
)

// View is a read-only snapshot of the session handed to consumers.
type View struct {
	State           State  `json:"state"`
	User            *User  `json:"user,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"loading"`
	Generation      uint64 `json:"generation"`
}

// Transition describes one committed change of session state.
type Transition struct {
	From       State     `json:"from"`
	To         State     `json:"to"`
	Reason     string    `json:"reason"`
	Generation uint64    `json:"generation"`
	At         time.Time `json:"at"`
}
