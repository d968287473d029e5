package store

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
)

// WithCriticalRetry retries a critical write (workflow status, lifecycle
// transition persistence) with exponential backoff up to 3 attempts, per
// spec §7. If every attempt fails, the original error from the final
// attempt is returned.
func WithCriticalRetry(ctx context.Context, logger *slog.Logger, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx) // 3 total attempts

	attempt := 0
	var lastErr error
	err := backoff.Retry(func() error {
		attempt++
		lastErr = op()
		if lastErr != nil && logger != nil {
			logger.Warn("critical write failed, retrying", "attempt", attempt, "error", lastErr)
		}
		return lastErr
	}, b)
	if err != nil {
		return lastErr
	}
	return nil
}
