package limiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(cfg Config) *Limiter {
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecuteSucceedsBeforeDeadline(t *testing.T) {
	l := newTestLimiter(Config{MaxConcurrent: 2})
	defer l.Stop()

	err := l.Execute(context.Background(), "job-1", 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.Len(t, l.History(), 1)
	require.True(t, l.History()[0].OK)
}

func TestExecuteTimesOutAtExactBoundary(t *testing.T) {
	l := newTestLimiter(Config{MaxConcurrent: 2})
	defer l.Stop()

	err := l.Execute(context.Background(), "job-2", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestExecuteRecordsFailure(t *testing.T) {
	l := newTestLimiter(Config{MaxConcurrent: 2})
	defer l.Stop()

	wantErr := errors.New("boom")
	err := l.Execute(context.Background(), "job-3", 50*time.Millisecond, func(ctx context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.False(t, l.History()[0].OK)
}

func TestExecuteCapsConcurrency(t *testing.T) {
	l := newTestLimiter(Config{MaxConcurrent: 1})
	defer l.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.Execute(context.Background(), "slow", time.Second, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	blockedCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Execute(blockedCtx, "fast", time.Second, func(ctx context.Context) error { return nil })
	require.Error(t, err, "second execute should block on the semaphore until context deadline")
	close(release)
}
