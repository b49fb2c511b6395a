package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Hour)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)
	tb.Wait()

	start := time.Now()
	tb.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSlidingWindowAllow(t *testing.T) {
	sw := NewSlidingWindow(2, time.Hour)

	assert.True(t, sw.Allow())
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 20*time.Millisecond)

	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, sw.Allow())
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)

	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	sw.Reset()
	assert.True(t, sw.Allow())
}

func TestSlidingWindowWait(t *testing.T) {
	sw := NewSlidingWindow(1, 20*time.Millisecond)
	sw.Wait()

	start := time.Now()
	sw.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
