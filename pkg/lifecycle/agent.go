package lifecycle

import "time"

// checkpointCapacity bounds AgentState.Checkpoints to the last 10 entries
// (spec §3, §8 invariant).
const checkpointCapacity = 10

// Checkpoint is one saved snapshot of an agent's working context.
type Checkpoint struct {
	Timestamp       time.Time
	Payload         map[string]interface{}
	ExecCountAt     int
	SchemaVersion   int
}

// CreateParams is what the caller (normally the Orchestrator, from a Pool
// Maker specification) supplies to install a new agent. AgentID is pre-generated by the caller — the Lifecycle
// Manager never invents identity.
type CreateParams struct {
	AgentID      string
	TemplateID   string
	Kind         string
	Dependencies []string // agent_ids this agent depends on
}

// AgentState is the Lifecycle Manager's live record for one agent (spec §3).
type AgentState struct {
	AgentID         string
	TemplateID      string
	Kind            string
	Lifecycle       State
	ExecutionCount  int
	ErrorCount      int
	CreatedAt       time.Time
	LastUpdated     time.Time
	ContextSnapshot map[string]interface{}
	Checkpoints     []Checkpoint
	Dependencies    []string

	lastHeartbeat time.Time
}

// pushCheckpoint appends cp, evicting the oldest entry once the ring is at
// capacity.
func (a *AgentState) pushCheckpoint(cp Checkpoint) {
	a.Checkpoints = append(a.Checkpoints, cp)
	if len(a.Checkpoints) > checkpointCapacity {
		a.Checkpoints = a.Checkpoints[len(a.Checkpoints)-checkpointCapacity:]
	}
}

// clone returns a deep-enough copy for safe handoff outside the manager's
// lock (slices/maps are copied one level).
func (a *AgentState) clone() *AgentState {
	out := *a
	if a.ContextSnapshot != nil {
		out.ContextSnapshot = make(map[string]interface{}, len(a.ContextSnapshot))
		for k, v := range a.ContextSnapshot {
			out.ContextSnapshot[k] = v
		}
	}
	out.Checkpoints = append([]Checkpoint(nil), a.Checkpoints...)
	out.Dependencies = append([]string(nil), a.Dependencies...)
	return &out
}
