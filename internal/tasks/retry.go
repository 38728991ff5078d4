package tasks

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"jobingest-engine/internal/domain"
)

// RetryPolicy decides retries by error kind: source_unavailable backs off
// exponentially, render_timeout gets RenderTimeoutRetries more tries, anything
// else runs once.
type RetryPolicy struct {
	MaxAttempts          int
	InitialDelay         time.Duration
	MaxDelay             time.Duration
	Multiplier           float64
	RenderTimeoutRetries int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          4,
		InitialDelay:         time.Second,
		MaxDelay:             time.Minute,
		Multiplier:           2,
		RenderTimeoutRetries: 1,
	}
}

// NoRetry runs every task exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) attemptsFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindSourceUnavailable:
		return max(p.MaxAttempts, 1)
	case domain.KindRenderTimeout:
		return 1 + max(p.RenderTimeoutRetries, 0)
	default:
		return 1
	}
}

// Delay is the wait before attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retry calls fn until it succeeds or the policy gives up. Backoff waits end
// early when ctx is cancelled.
func Retry(ctx context.Context, p RetryPolicy, name string, fn func(ctx context.Context, attempt int) error) (int, error) {
	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		kind := domain.KindOf(err)
		if attempt >= p.attemptsFor(kind) || ctx.Err() != nil {
			return attempt, err
		}

		delay := p.Delay(attempt)
		log.Printf("[tasks] task=%q attempt=%d kind=%s retry_in=%s err=%v", name, attempt, kind, delay, err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, fmt.Errorf("retry backoff after %v: %w", err, ctx.Err())
		case <-t.C:
		}
	}
}
