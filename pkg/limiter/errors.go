package limiter

import "errors"

var (
	// ErrTimeout is returned when an execute call exceeds its per-call
	// timeout (spec §4.5, §7).
	ErrTimeout = errors.New("limiter: timeout")

	// ErrCircuitOpen is returned when the circuit breaker for a template is
	// Open and short-circuits the call before the limiter runs it.
	ErrCircuitOpen = errors.New("limiter: circuit open")
)
