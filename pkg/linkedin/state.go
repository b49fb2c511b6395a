package linkedin

// SessionState tracks where the auth controller is in its lifecycle. State
// only moves forward through a login attempt; a detected challenge or an
// invalidated session routes back through Login.
type SessionState string

const (
	StateUninitialized    SessionState = "UNINITIALIZED"
	StateCookiesLoaded    SessionState = "COOKIES_LOADED"
	StateSessionValid     SessionState = "SESSION_VALID"
	StateSessionInvalid   SessionState = "SESSION_INVALID"
	StateLoggingIn        SessionState = "LOGGING_IN"
	StateLoggedIn         SessionState = "LOGGED_IN"
	StateChallengePending SessionState = "CHALLENGE_PENDING"
	StateClosed           SessionState = "CLOSED"
)

// Authenticated reports whether the controller currently holds a usable
// session.
func (s SessionState) Authenticated() bool {
	return s == StateSessionValid || s == StateLoggedIn
}
