package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected ErrorType
	}{
		{
			name:     "identity verification prompt",
			text:     "Let's do a quick security check to verify your identity",
			expected: ErrorTypeVerificationRequired,
		},
		{
			name:     "captcha puzzle",
			text:     "Please complete this CAPTCHA to continue. Start Puzzle",
			expected: ErrorTypeCaptchaDetected,
		},
		{
			name:     "rate limiting",
			text:     "You've made too many requests. Try again later.",
			expected: ErrorTypeRateLimited,
		},
		{
			name:     "account restriction",
			text:     "Your account has been restricted due to suspicious activity",
			expected: ErrorTypeAccountLocked,
		},
		{
			name:     "wrong password",
			text:     "That's the wrong email or password. Try again.",
			expected: ErrorTypeInvalidCredentials,
		},
		{
			name:     "expired session",
			text:     "Your session expired. Please sign in again.",
			expected: ErrorTypeSessionExpired,
		},
		{
			name:     "chrome network failure",
			text:     "page load error net::ERR_CONNECTION_RESET",
			expected: ErrorTypeNetwork,
		},
		{
			name:     "context timeout",
			text:     "context deadline exceeded",
			expected: ErrorTypeNetwork,
		},
		{
			name:     "unmatched text",
			text:     "everything looks perfectly normal here",
			expected: ErrorTypeUnknown,
		},
		{
			name:     "empty string",
			text:     "",
			expected: ErrorTypeUnknown,
		},
		{
			name:     "case insensitive match",
			text:     "TOO MANY REQUESTS",
			expected: ErrorTypeRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// When multiple categories match, the fixed priority order decides.
	tests := []struct {
		name     string
		text     string
		expected ErrorType
	}{
		{
			name:     "verification beats captcha",
			text:     "verify your identity by solving this captcha",
			expected: ErrorTypeVerificationRequired,
		},
		{
			name:     "captcha beats rate limit",
			text:     "captcha required, too many requests from your network",
			expected: ErrorTypeCaptchaDetected,
		},
		{
			name:     "credentials beat session expiry",
			text:     "wrong email or password, please sign in",
			expected: ErrorTypeInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))
	})

	t.Run("classified error keeps its type", func(t *testing.T) {
		err := New(ErrorTypeAccountLocked, "some unrelated message text")
		assert.Equal(t, ErrorTypeAccountLocked, ClassifyError(err))
	})

	t.Run("wrapped classified error keeps its type", func(t *testing.T) {
		inner := New(ErrorTypeRateLimited, "throttled")
		wrapped := Wrap(ErrorTypeUnknown, "outer", inner)
		// The outer wrapper already carries a type, so that wins
		assert.Equal(t, ErrorTypeUnknown, ClassifyError(wrapped))
	})

	t.Run("plain error is classified by message", func(t *testing.T) {
		err := errors.New("dial tcp: no such host")
		assert.Equal(t, ErrorTypeNetwork, ClassifyError(err))
	})
}

func TestDetect(t *testing.T) {
	t.Run("returns challenge with evidence", func(t *testing.T) {
		ch := Detect("please complete the security check", "https://www.linkedin.com/checkpoint/challenge/x")
		assert.NotNil(t, ch)
		assert.Equal(t, ErrorTypeCaptchaDetected, ch.Category)
		assert.NotEmpty(t, ch.Evidence)
		assert.Equal(t, "https://www.linkedin.com/checkpoint/challenge/x", ch.URL)
		assert.False(t, ch.DetectedAt.IsZero())
	})

	t.Run("returns nil for clean text", func(t *testing.T) {
		assert.Nil(t, Detect("welcome to your feed", "https://www.linkedin.com/feed/"))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))

	nonRetryable := []ErrorType{
		ErrorTypeVerificationRequired,
		ErrorTypeCaptchaDetected,
		ErrorTypeRateLimited,
		ErrorTypeAccountLocked,
		ErrorTypeInvalidCredentials,
		ErrorTypeSessionExpired,
		ErrorTypeUnknown,
	}
	for _, et := range nonRetryable {
		assert.False(t, IsRetryable(et), "expected %s to be non-retryable", et)
	}
}

func TestInstruction(t *testing.T) {
	// Every known type has an instruction
	for et := range recoveryInstructions {
		assert.NotEmpty(t, Instruction(et))
	}

	// Unknown types fall back to the generic instruction
	assert.Equal(t, Instruction(ErrorTypeUnknown), Instruction(ErrorType("made_up")))
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("underlying")
	err := Wrap(ErrorTypeNetwork, "fetch failed", base).WithURL("https://example.com")

	assert.Contains(t, err.Error(), "network_error")
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Equal(t, base, errors.Unwrap(err))
	assert.Equal(t, "https://example.com", err.URL)
}
