package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRespectsCapacity(t *testing.T) {
	tb := NewTokenBucket(60, 2)
	current := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	tb.now = func() time.Time { return current }
	tb.lastRefillTime = current

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "桶已空")

	current = current.Add(time.Second)
	assert.True(t, tb.Allow(), "一秒后补充一个令牌")
	assert.False(t, tb.Allow())
}

func TestDefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(120, 0)
	assert.Equal(t, 60.0, tb.capacity)

	tb = NewTokenBucket(1, 0)
	assert.Equal(t, 1.0, tb.capacity)
}

func TestUnlimited(t *testing.T) {
	tb := NewTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, tb.Allow())
	}
	assert.NoError(t, tb.Wait(context.Background()))

	var nilBucket *TokenBucket
	assert.True(t, nilBucket.Allow())
}

func TestWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryWithBackoff(t *testing.T) {
	tb := NewTokenBucket(6000, 100).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: 503}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	tb := NewTokenBucket(6000, 100).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return &StatusError{StatusCode: 400, Body: "bad text"}
	})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	tb := NewTokenBucket(6000, 100).WithRetryPolicy(time.Millisecond, 2)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("read: connection reset by peer")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("call: %w", context.Canceled)))
	assert.True(t, IsRetryable(fmt.Errorf("call: %w", &StatusError{StatusCode: 429})))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 502}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 422}))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryable(errors.New("invalid character 'x'")))
}
