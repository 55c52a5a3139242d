package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/stellaephile/whats-up-doc/internal/model"

	"golang.org/x/time/rate"
)

// Limiter admits one model call per Acquire.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// TokenBucket refills at rps tokens per second up to burst. Acquire blocks
// until a token is free or the acquire timeout passes.
type TokenBucket struct {
	limiter *rate.Limiter
	rps     float64
	timeout time.Duration
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(rps float64, burst int, timeout time.Duration) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		timeout: timeout,
	}
}

// Acquire takes one token. It fails with ErrRateLimitTimeout when no token
// can be obtained before the acquire timeout, and with the context error if
// the caller gives up first.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	waitCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &model.RetryAfterError{
			RetryAfter: b.retryAfter(),
			Err:        fmt.Errorf("%w after %s", model.ErrRateLimitTimeout, b.timeout),
		}
	}
	return nil
}

// Tokens reports the tokens currently available.
func (b *TokenBucket) Tokens() float64 {
	return b.limiter.Tokens()
}

func (b *TokenBucket) retryAfter() time.Duration {
	if b.rps <= 0 {
		return time.Minute
	}
	secs := math.Ceil(1 / b.rps)
	return time.Duration(secs) * time.Second
}

// DailyQuota caps admitted calls per UTC day. A nil *DailyQuota or a
// non-positive limit means unlimited.
type DailyQuota struct {
	mu    sync.Mutex
	limit int
	day   string
	used  int
	now   func() time.Time
}

// NewDailyQuota creates a quota of limit calls per UTC day.
func NewDailyQuota(limit int) *DailyQuota {
	return &DailyQuota{limit: limit, now: time.Now}
}

// Reserve counts one call against today's quota or fails with ErrQuotaExceeded.
func (q *DailyQuota) Reserve() error {
	if q == nil || q.limit <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.rollover()
	if q.used >= q.limit {
		return &model.RetryAfterError{
			RetryAfter: untilNextUTCDay(now),
			Err:        fmt.Errorf("%w: %d calls used today", model.ErrQuotaExceeded, q.used),
		}
	}
	q.used++
	return nil
}

// Release returns a reservation that never reached the vendor.
func (q *DailyQuota) Release() {
	if q == nil || q.limit <= 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	if q.used > 0 {
		q.used--
	}
}

// Remaining reports calls left today; ok is false when the quota is unlimited.
func (q *DailyQuota) Remaining() (remaining int, ok bool) {
	if q == nil || q.limit <= 0 {
		return 0, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	return q.limit - q.used, true
}

// rollover resets the counter on a new UTC day. Caller holds mu.
func (q *DailyQuota) rollover() time.Time {
	now := q.now().UTC()
	day := now.Format(time.DateOnly)
	if day != q.day {
		q.day = day
		q.used = 0
	}
	return now
}

func untilNextUTCDay(now time.Time) time.Duration {
	y, m, d := now.UTC().Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
