package rest

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 控制单 venue 的提交速率，避免触发对端限流。
// Wait 在拿到令牌前阻塞，ctx 取消时立刻放弃，
// 这样派单截止时间能穿透限流等待。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// TokenBucketLimiter 令牌桶限流：rate 为每秒补充速率，burst 为桶容量。
type TokenBucketLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait 消耗一个令牌，不足时按补充速率推算等待时长。
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		wait := l.take()
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take 尝试扣减一个令牌；不足时返回需要等待的时长。
func (l *TokenBucketLimiter) take() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}
