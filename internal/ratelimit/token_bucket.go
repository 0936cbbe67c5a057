// Package ratelimit 为外部推理服务调用提供令牌桶限流与退避重试
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	retryWaitTime  time.Duration
	maxRetries     int
	now            func() time.Time
}

// NewTokenBucket 按每分钟请求数创建限流器，capacity<=0 时取 qpm 的一半
// qpm<=0 表示不限流
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	tb := &TokenBucket{
		rate:          float64(qpm) / 60.0,
		capacity:      float64(capacity),
		tokens:        float64(capacity),
		retryWaitTime: 500 * time.Millisecond,
		maxRetries:    2,
		now:           time.Now,
	}
	tb.lastRefillTime = tb.now()
	return tb
}

// WithRetryPolicy 设置重试间隔基数和最大重试次数
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.retryWaitTime = waitTime
	if maxRetries < 0 {
		maxRetries = 0
	}
	tb.maxRetries = maxRetries
	return tb
}

func (tb *TokenBucket) unlimited() bool {
	return tb == nil || tb.rate <= 0
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 非阻塞地尝试获取一个令牌
func (tb *TokenBucket) Allow() bool {
	if tb.unlimited() {
		return true
	}
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到获得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if tb.unlimited() {
		return ctx.Err()
	}
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 获取令牌后执行 fn，可重试的错误按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	maxRetries, baseWait := 0, time.Duration(0)
	if tb != nil {
		maxRetries, baseWait = tb.maxRetries, tb.retryWaitTime
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(baseWait * time.Duration(1<<uint(attempt)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// StatusError 远端返回的非2xx状态
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable 429 与 5xx 可重试
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable 判断错误是否值得重试
// 调用方自身的取消不重试；网络超时、429/5xx 和常见的连接错误重试
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"timeout",
		"connection reset",
		"connection refused",
		"eof",
		"no such host",
		"rate limit",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
