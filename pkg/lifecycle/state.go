// Package lifecycle implements the Lifecycle Manager of spec §4.4: the agent
// state machine, checkpoint/restore, and graceful termination with dependency
// checks.
package lifecycle

// State is an AgentState's lifecycle stage (spec §3).
type State string

const (
	StateCreated      State = "Created"
	StateInitializing State = "Initializing"
	StateReady        State = "Ready"
	StateRunning      State = "Running"
	StatePaused       State = "Paused"
	StateSuspended    State = "Suspended"
	StateError        State = "Error"
	StateTerminating  State = "Terminating"
	StateTerminated   State = "Terminated"
)

// transitions is the state transition matrix from spec §4.4. A transition not
// listed here is rejected with ErrInvalidTransition.
var transitions = map[State]map[State]bool{
	StateCreated:      {StateInitializing: true, StateError: true},
	StateInitializing: {StateReady: true, StateError: true},
	StateReady:        {StateRunning: true, StatePaused: true, StateTerminating: true},
	StateRunning: {
		StateReady: true, StatePaused: true, StateSuspended: true,
		StateTerminating: true, StateError: true,
	},
	StatePaused:     {StateRunning: true, StateReady: true, StateTerminating: true},
	StateSuspended:  {StateReady: true, StateTerminating: true},
	StateError:      {StateReady: true, StateTerminating: true},
	StateTerminating: {StateTerminated: true},
	StateTerminated: {},
}

// CanTransition reports whether from -> to is a legal move in the matrix.
func CanTransition(from, to State) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	return s == StateTerminated
}
