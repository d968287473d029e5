package bus

import "errors"

var (
	// ErrQueueFull is logged and the message dropped when a recipient's
	// inbound channel is at capacity (spec §4.3 routing rule 4). Send also
	// returns it, after logging and dropping the message, when the global
	// outbound queue is full.
	ErrQueueFull = errors.New("bus: recipient queue full")

	// ErrRecipientUnknown is logged and the message dropped when the
	// recipient was never registered.
	ErrRecipientUnknown = errors.New("bus: recipient unknown")

	// ErrResponseTimeout is returned to a Send waiter when no correlated
	// Response/Result arrives within the wait timeout.
	ErrResponseTimeout = errors.New("bus: response timeout")

	// ErrCancelled is delivered to pending waiters when the owning
	// workflow is cancelled (spec §5).
	ErrCancelled = errors.New("bus: cancelled")
)
