package service

import "errors"

// ErrInvalidRequest is returned when a caller-supplied request fails
// validation before it ever reaches the Orchestrator.
var ErrInvalidRequest = errors.New("service: invalid request")
