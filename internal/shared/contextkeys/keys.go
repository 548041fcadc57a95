package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "flashcards-client context key " + string(c)
}

// RequestIDKey carries the X-Request-ID of an outgoing API call.
const RequestIDKey = contextKey("requestID")

// UserIDKey carries the id of the signed-in user.
const UserIDKey = contextKey("userID")

// ScreenKey carries the screen that issued a request (login, decks, admin, ...).
const ScreenKey = contextKey("screen")

// ComponentKey and OperationKey are used by the logger to tag entries.
const (
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)
