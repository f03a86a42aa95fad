package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Retry defaults applied when the policy carries zero values.
const (
	defaultMaxAttempts = 1
	defaultBaseDelay   = 500 * time.Millisecond
)

// AttemptFunc issues one call against the external image service and returns
// the raw image payload. Provider adapters supply their SDK call here; errors
// must follow the package taxonomy so the retry loop can classify them.
type AttemptFunc func(ctx context.Context, req Request) ([]byte, error)

// RetryPolicy bounds the per-request attempt budget and backoff timing.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// CallWithRetry runs call up to the policy's attempt budget, retrying only
// transient failures with exponential backoff and jitter between attempts.
// Permanent failures return immediately. The returned count is how many
// attempts were made, including the final one.
func CallWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	policy RetryPolicy,
	req Request,
	call AttemptFunc,
) ([]byte, int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	baseDelay := policy.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.DebugContext(ctx, "calling image service",
			"attempt", attempt,
			"max_attempts", maxAttempts)

		raw, err := call(ctx, req)
		if err == nil {
			return raw, attempt, nil
		}

		lastErr = err
		if !IsTransient(err) {
			logger.WarnContext(ctx, "permanent generation error, not retrying",
				"attempt", attempt,
				"error", err)
			return nil, attempt, err
		}

		if attempt == maxAttempts {
			break
		}

		// delay = base * 2^(attempt-1) * jitter in [0.5, 1.0)
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt-1))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		logger.InfoContext(ctx, "retrying after backoff",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, attempt, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}

	return nil, maxAttempts, fmt.Errorf("%w: exhausted %d attempts: %v",
		ErrTransientFailure, maxAttempts, lastErr)
}
