package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when a requested state change is not
	// present in the spec §4.4 transition matrix.
	ErrInvalidTransition = errors.New("lifecycle: invalid state transition")

	// ErrUnknownAgent is returned by any operation addressing an agent_id
	// the manager has no record of.
	ErrUnknownAgent = errors.New("lifecycle: unknown agent")

	// ErrAlreadyExists is returned by Create when agent_id is already
	// registered.
	ErrAlreadyExists = errors.New("lifecycle: agent already exists")

	// ErrDependencyBlocked is returned by Terminate(force=false) when another
	// non-terminated agent still lists this agent as a dependency.
	ErrDependencyBlocked = errors.New("lifecycle: dependents still active")

	// ErrCheckpointNotFound is returned by RestoreCheckpoint when the
	// requested index has no entry.
	ErrCheckpointNotFound = errors.New("lifecycle: checkpoint not found")
)
