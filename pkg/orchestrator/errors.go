package orchestrator

import "errors"

var (
	// ErrInvalidInput is a client error surfaced verbatim to the service
	// caller (spec §7); never retried.
	ErrInvalidInput = errors.New("orchestrator: invalid input")

	// ErrWorkflowNotFound is returned by any operation addressing an unknown
	// workflow_id.
	ErrWorkflowNotFound = errors.New("orchestrator: workflow not found")

	// ErrAlreadyExecuted is returned by ExecuteWorkflow on a workflow that is
	// not in Pending (it has already started, finished, or was cancelled).
	ErrAlreadyExecuted = errors.New("orchestrator: workflow already executed")
)
