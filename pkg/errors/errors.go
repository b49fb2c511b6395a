package errors

import (
	"fmt"
	"time"
)

// ErrorType represents different types of failures that can occur while
// scraping LinkedIn. The set is closed: every failure maps to exactly one
// of these values, with ErrorTypeUnknown as the catch-all.
type ErrorType string

const (
	ErrorTypeVerificationRequired ErrorType = "verification_required"
	ErrorTypeCaptchaDetected      ErrorType = "captcha_detected"
	ErrorTypeRateLimited          ErrorType = "rate_limited"
	ErrorTypeAccountLocked        ErrorType = "account_locked"
	ErrorTypeInvalidCredentials   ErrorType = "invalid_credentials"
	ErrorTypeSessionExpired       ErrorType = "session_expired"
	ErrorTypeNetwork              ErrorType = "network_error"
	ErrorTypeNotLoggedIn          ErrorType = "not_logged_in"
	ErrorTypeLoginFailed          ErrorType = "login_failed"
	ErrorTypeUnknown              ErrorType = "unknown"
)

// Error represents a classified LinkedIn scraping error
type Error struct {
	Type     ErrorType
	Message  string
	URL      string
	Evidence string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("linkedin %s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("linkedin %s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with the given type and message
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a classified error wrapping an underlying cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// WithURL attaches the page URL the error was observed on
func (e *Error) WithURL(url string) *Error {
	e.URL = url
	return e
}

// WithEvidence attaches the matched text that triggered classification
func (e *Error) WithEvidence(evidence string) *Error {
	e.Evidence = evidence
	return e
}

// Challenge records a detected anti-automation challenge
type Challenge struct {
	Category   ErrorType `json:"category"`
	Evidence   string    `json:"evidence"`
	DetectedAt time.Time `json:"detected_at"`
	URL        string    `json:"url"`
}

// recoveryInstructions maps each error type to a static operator instruction.
// These are looked up, never generated.
var recoveryInstructions = map[ErrorType]string{
	ErrorTypeVerificationRequired: "Log in manually in a browser and complete the identity verification, then re-run with a fresh session.",
	ErrorTypeCaptchaDetected:      "Run with headless mode disabled and solve the CAPTCHA manually, or wait several hours before retrying.",
	ErrorTypeRateLimited:          "Stop scraping for at least an hour and reduce the configured requests per minute.",
	ErrorTypeAccountLocked:        "The account has been restricted. Follow LinkedIn's account recovery process before retrying.",
	ErrorTypeInvalidCredentials:   "Check the configured email and password. Update stored credentials with 'liscraper auth login'.",
	ErrorTypeSessionExpired:       "The saved session is no longer valid. Delete the cookie file or re-run login to re-authenticate.",
	ErrorTypeNetwork:              "Check network connectivity and proxy settings, then retry.",
	ErrorTypeNotLoggedIn:          "No authenticated session is available. Run 'liscraper auth login' or configure credentials first.",
	ErrorTypeLoginFailed:          "Login did not reach an authenticated page. Verify credentials and check for challenges in non-headless mode.",
	ErrorTypeUnknown:              "Inspect the error log and a debug screenshot of the page to determine the cause.",
}

// Instruction returns the static recovery instruction for an error type
func Instruction(errorType ErrorType) string {
	if inst, ok := recoveryInstructions[errorType]; ok {
		return inst
	}
	return recoveryInstructions[ErrorTypeUnknown]
}

// IsRetryable checks if an error type should be retried. Only transient
// network failures are worth a blind retry; challenges and credential
// problems cannot be resolved by retrying.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeNetwork
}
