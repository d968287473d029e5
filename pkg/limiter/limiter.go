// Package limiter implements the Execution Limiter and Circuit Breaker of
// spec §4.5: a global concurrency ceiling with per-call timeout and memory
// sampling, and a per-template-id circuit breaker with half-open probing.
package limiter

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Outcome is one entry of the bounded rolling execution history (spec §4.5
// step 4).
type Outcome struct {
	ID          string
	Timestamp   time.Time
	OK          bool
	Duration    time.Duration
	MemoryUsed  uint64
	Error       string
}

const historyCapacity = 100

// Config tunes the limiter; zero values are replaced by the spec defaults.
type Config struct {
	MaxConcurrent   int
	MaxMemoryMB     uint64
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.MaxMemoryMB <= 0 {
		c.MaxMemoryMB = 512
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 300 * time.Second
	}
	return c
}

// Limiter enforces the global semaphore, per-call timeout, memory sampling,
// and rolling history of spec §4.5.
type Limiter struct {
	cfg    Config
	logger *slog.Logger
	sem    chan struct{}

	mu      sync.Mutex
	active  map[string]time.Time
	history []Outcome

	cron *cron.Cron
}

// New constructs a Limiter and starts its background cleanup schedule.
func New(cfg Config, logger *slog.Logger) *Limiter {
	cfg = cfg.withDefaults()
	l := &Limiter{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		active: make(map[string]time.Time),
	}
	l.cron = cron.New()
	spec := "@every " + cfg.CleanupInterval.String()
	_, _ = l.cron.AddFunc(spec, l.cleanup)
	l.cron.Start()
	return l
}

// Stop halts the background cleanup schedule.
func (l *Limiter) Stop() {
	ctx := l.cron.Stop()
	<-ctx.Done()
}

// Execute runs fn under the global semaphore with a per-call timeout,
// recording the outcome into the rolling history (spec §4.5).
func (l *Limiter) Execute(ctx context.Context, id string, timeout time.Duration, fn func(ctx context.Context) error) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()

	l.mu.Lock()
	l.active[id] = time.Now()
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.active, id)
		l.mu.Unlock()
	}()

	before := memUsedMB()
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- fn(callCtx) }()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-callCtx.Done():
		runErr = ErrTimeout
	}

	elapsed := time.Since(start)
	after := memUsedMB()
	if after > before && after-before > l.cfg.MaxMemoryMB {
		l.logger.Warn("execute exceeded memory delta threshold", "id", id, "delta_mb", after-before)
		runtime.GC()
	}

	l.record(Outcome{
		ID: id, Timestamp: start, OK: runErr == nil, Duration: elapsed,
		MemoryUsed: after, Error: errString(runErr),
	})

	return runErr
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func memUsedMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / (1024 * 1024)
}

func (l *Limiter) record(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, o)
	if len(l.history) > historyCapacity {
		l.history = l.history[len(l.history)-historyCapacity:]
	}
}

// History returns a snapshot of the rolling execution history.
func (l *Limiter) History() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Outcome, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-time.Hour)
	for id, start := range l.active {
		if start.Before(cutoff) {
			delete(l.active, id)
		}
	}
	used := memUsedMB()
	if float64(used) > 0.8*float64(l.cfg.MaxMemoryMB) {
		l.logger.Warn("memory usage above 80% of limit, reclaiming", "used_mb", used, "limit_mb", l.cfg.MaxMemoryMB)
		runtime.GC()
	}
}
