package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter - token bucket на запросы в минуту. В отличие от жесткого отказа,
// Wait ждет освобождения слота, пока жив ctx.
type RateLimiter struct {
	requestsPerMinute int

	mu        sync.Mutex
	tokens    float64
	capacity  float64
	lastCheck time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60 // дефолт: 60 запросов в минуту
	}

	rl := &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokens:            float64(requestsPerMinute),
		capacity:          float64(requestsPerMinute),
		now:               time.Now,
		sleep:             sleepCtx,
	}
	rl.lastCheck = rl.now()
	return rl
}

// refill пополняет токены пропорционально прошедшему времени
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastCheck)

	rl.tokens += elapsed.Minutes() * float64(rl.requestsPerMinute)
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}

	rl.lastCheck = now
}

// reserve забирает токен или говорит, сколько ждать до следующего.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	missing := 1 - rl.tokens
	return time.Duration(missing / float64(rl.requestsPerMinute) * float64(time.Minute))
}

func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := rl.reserve()
		if wait == 0 {
			return nil
		}
		if err := rl.sleep(ctx, wait); err != nil {
			return fmt.Errorf("ожидание лимита запросов (%d RPM): %w", rl.requestsPerMinute, err)
		}
	}
}

// Available возвращает число свободных запросов прямо сейчас.
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return int(rl.tokens)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
