package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/evolution"
	"github.com/brindle-systems/swarm/pkg/poolmaker"
	"github.com/brindle-systems/swarm/pkg/worker"
)

// Status is a Workflow's top-level run state (spec §3).
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusPaused     Status = "Paused"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CreateOptions carries the caller-supplied knobs for CreateWorkflow
// (spec §4.6, §6).
type CreateOptions struct {
	Hints              map[string]interface{}
	ContinueOnFailure  bool
	AutoApplyEvolution bool
}

// Workflow is the Orchestrator's live record of one run (spec §3, §4.6).
// Plan/Specs/Workers are fixed at creation; Status and the Plan's Step/Phase
// statuses mutate during ExecuteWorkflow. All mutation happens from the
// single goroutine driving that workflow's ExecuteWorkflow call, except for
// parallel-phase steps which run concurrently but never share mutable state
// other than Context, which is guarded separately.
type Workflow struct {
	WorkflowID  string
	ProjectType config.ProjectType
	Description string
	CreatedAt   time.Time
	OwnerUserID string
	SessionID   string

	ContinueOnFailure  bool
	AutoApplyEvolution bool

	Plan    *poolmaker.ExecutionPlan
	Specs   []*poolmaker.AgentSpecification
	Workers map[string]*worker.Worker

	mu       sync.Mutex
	status   Status
	prePause Status

	contextMu sync.Mutex
	context   map[string]interface{}

	pendingMu        sync.Mutex
	pendingMutations []*evolution.Mutation

	cancel context.CancelFunc
}

func (w *Workflow) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// Status returns the workflow's current top-level status.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Workflow) setContextValue(key string, value interface{}) {
	w.contextMu.Lock()
	defer w.contextMu.Unlock()
	if w.context == nil {
		w.context = make(map[string]interface{})
	}
	w.context[key] = value
}

// ContextSnapshot returns a shallow copy of the shared step-output context.
func (w *Workflow) ContextSnapshot() map[string]interface{} {
	w.contextMu.Lock()
	defer w.contextMu.Unlock()
	out := make(map[string]interface{}, len(w.context))
	for k, v := range w.context {
		out[k] = v
	}
	return out
}

func (w *Workflow) queueMutation(m *evolution.Mutation) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pendingMutations = append(w.pendingMutations, m)
}

func (w *Workflow) drainMutations() []*evolution.Mutation {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	out := w.pendingMutations
	w.pendingMutations = nil
	return out
}

// StepResult is one Step's terminal outcome, as returned by ExecuteWorkflow
// (spec §6 execute_workflow.results[]).
type StepResult struct {
	StepID  string
	AgentID string
	Status  poolmaker.StepStatus
	Error   string
}

// ExecutionReport is ExecuteWorkflow's return value (spec §6).
type ExecutionReport struct {
	WorkflowID     string
	Status         Status
	StepsCompleted int
	Results        []StepResult
}
