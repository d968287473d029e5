package worker

import "errors"

var (
	// ErrUnknownTemplate is returned when the registry has no factory for a
	// requested template_id (spec §4.1).
	ErrUnknownTemplate = errors.New("worker: unknown template")

	// ErrConfigValidationFailed is returned when a template's factory
	// rejects its effective_config.
	ErrConfigValidationFailed = errors.New("worker: config validation failed")

	// ErrFactoryFailed is the result surfaced to Pool Maker when a
	// template's factory function panics (spec §4.1's FactoryPanic,
	// recovered and converted here).
	ErrFactoryFailed = errors.New("worker: factory failed")
)
