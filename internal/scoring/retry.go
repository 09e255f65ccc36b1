package scoring

import (
	"context"
	"time"

	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/telemetry"
)

const defaultRetryDelay = 300 * time.Millisecond

type retryingClient struct {
	base  Client
	delay time.Duration
}

// WithRetry wraps base so a transient failure is retried once after delay.
// Every attempt is recorded in the scoring metrics.
func WithRetry(base Client, delay time.Duration) Client {
	if base == nil {
		return nil
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return retryingClient{base: base, delay: delay}
}

func (r retryingClient) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	res, err := r.attempt(ctx, jobText, resumeText)
	if err == nil || !IsTransient(err) {
		return res, err
	}

	telemetry.Warn("scoring.retry", map[string]any{
		"attempt": 1,
		"error":   err.Error(),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return Result{}, &Error{Message: msgTimeout, Transient: true, Err: ctx.Err()}
	}
	return r.attempt(ctx, jobText, resumeText)
}

func (r retryingClient) attempt(ctx context.Context, jobText, resumeText string) (Result, error) {
	start := time.Now()
	res, err := r.base.Score(ctx, jobText, resumeText)
	metrics.ObserveScoringCall(outcome(err), float64(time.Since(start).Milliseconds()))
	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}
