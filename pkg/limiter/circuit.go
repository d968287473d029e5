package limiter

import (
	"sync"
	"time"
)

// State is a circuit breaker state (spec §4.5).
type State string

const (
	StateClosed   State = "Closed"
	StateOpen     State = "Open"
	StateHalfOpen State = "HalfOpen"
)

// BreakerConfig tunes a CircuitBreaker; zero values take the spec defaults.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	return c
}

// CircuitBreaker guards executes for a single template_id (spec §4.5).
type CircuitBreaker struct {
	cfg BreakerConfig

	mu            sync.Mutex
	state         State
	failureCount  int
	openedAt      time.Time
	probeInFlight bool
}

// NewCircuitBreaker constructs a Closed CircuitBreaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults(), state: StateClosed}
}

// Allow reports whether a call may proceed, transitioning Open→HalfOpen
// after the recovery timeout and admitting exactly one probe while
// HalfOpen.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.cfg.RecoveryTimeout {
			b.state = StateHalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// RecordSuccess resets the breaker to Closed with zero failures.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.probeInFlight = false
}

// RecordFailure counts an expected-class failure, opening the circuit once
// failureCount reaches the threshold, or reopening immediately if the
// failure occurred during a HalfOpen probe.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.probeInFlight = false
		return
	}

	b.failureCount++
	if b.failureCount >= b.cfg.FailureThreshold {
		b.state = StateOpen
		b.openedAt = time.Now()
	}
}

// CurrentState returns the breaker's current state, for health reporting.
func (b *CircuitBreaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry holds one CircuitBreaker per template_id.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	cfg      BreakerConfig
}

// NewRegistry constructs a breaker Registry using cfg for every template it
// lazily creates a breaker for.
func NewRegistry(cfg BreakerConfig) *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker), cfg: cfg}
}

// For returns the CircuitBreaker for templateID, creating one on first use.
func (r *Registry) For(templateID string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[templateID]
	if !ok {
		b = NewCircuitBreaker(r.cfg)
		r.breakers[templateID] = b
	}
	return b
}
