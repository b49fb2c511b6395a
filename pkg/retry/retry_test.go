package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "liscraper/pkg/errors"
)

func instantConfig(maxAttempts int) *Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	cfg.Backoff = &ConstantBackoff{Delay: time.Millisecond}
	return cfg
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, instantConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return apperrors.New(apperrors.ErrorTypeNetwork, "net::ERR_CONNECTION_RESET")
		}
		return nil
	}, instantConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	challenge := apperrors.New(apperrors.ErrorTypeCaptchaDetected, "captcha on page")
	calls := 0
	err := Do(func() error {
		calls++
		return challenge
	}, instantConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, challenge)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return apperrors.New(apperrors.ErrorTypeNetwork, "no such host")
	}, instantConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls == 1 {
			return "", apperrors.New(apperrors.ErrorTypeNetwork, "context deadline exceeded while loading")
		}
		return "payload", nil
	}, instantConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, 2, calls)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := instantConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	calls := 0
	_ = Do(func() error {
		calls++
		return apperrors.New(apperrors.ErrorTypeNetwork, "no such host")
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := instantConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	err := Do(func() error {
		return apperrors.New(apperrors.ErrorTypeNetwork, "no such host")
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.False(t, DefaultRetryIf(errors.New("wrong email or password")))
	assert.False(t, DefaultRetryIf(apperrors.New(apperrors.ErrorTypeRateLimited, "too many requests")))
	assert.True(t, DefaultRetryIf(apperrors.New(apperrors.ErrorTypeNetwork, "connection refused")))
	assert.True(t, DefaultRetryIf(errors.New("net::ERR_NAME_NOT_RESOLVED")))
}

func TestExponentialBackoffNextDelay(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	// Capped at MaxDelay
	assert.Equal(t, 10*time.Second, eb.NextDelay(10))
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := DefaultExponentialBackoff()

	for attempt := 1; attempt <= 6; attempt++ {
		for i := 0; i < 20; i++ {
			d := eb.NextDelay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			// MaxDelay plus the 10% jitter band
			assert.LessOrEqual(t, d, 33*time.Second)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 5 * time.Second}
	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, 5*time.Second, cb.NextDelay(1))
	assert.Equal(t, 5*time.Second, cb.NextDelay(9))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Minute), context.Canceled)
}

func TestRetrierWithMaxAttempts(t *testing.T) {
	base := NewRetrier(instantConfig(1))
	r := base.WithMaxAttempts(4)

	calls := 0
	err := r.Do(func() error {
		calls++
		return apperrors.New(apperrors.ErrorTypeNetwork, "no such host")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	// The original retrier keeps its own limit
	calls = 0
	_ = base.Do(func() error {
		calls++
		return apperrors.New(apperrors.ErrorTypeNetwork, "no such host")
	})
	assert.Equal(t, 1, calls)
}
