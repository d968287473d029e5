// Package store implements the Persistence collaborator of spec §6: opaque
// upsert/lookup operations over workflow records, worker states, and
// execution audit rows. The core treats persistence as an external row
// store; this package provides both a production implementation (pgx) and an
// in-memory fake used by every other package's tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load* operations when no matching row exists.
var ErrNotFound = errors.New("store: not found")

// AgentStateRow is the persisted shape of a Lifecycle Manager AgentState
// (spec §3).
type AgentStateRow struct {
	AgentID         string
	TemplateID      string
	Kind            string
	Lifecycle       string
	ExecutionCount  int
	ErrorCount      int
	CreatedAt       time.Time
	LastUpdated     time.Time
	ContextSnapshot map[string]interface{}
	Checkpoints     []CheckpointRow
	IsActive        bool
}

// CheckpointRow is one entry of an AgentState's bounded checkpoint ring.
type CheckpointRow struct {
	Timestamp    time.Time
	Payload      map[string]interface{}
	ExecCountAt  int
	SchemaVer    int
}

// WorkflowRow is the persisted shape of an orchestrator Workflow (spec §3).
type WorkflowRow struct {
	WorkflowID  string
	ProjectType string
	Description string
	CreatedAt   time.Time
	OwnerUserID string
	SessionID   string
	Status      string
	Phases      []byte // JSON-encoded []poolmaker.Phase, opaque to this package
}

// AgentExecutionRecord is one audit row appended per worker execute call
// (spec §6 append_agent_execution).
type AgentExecutionRecord struct {
	AgentID     string
	SessionID   string
	Input       []byte
	Output      []byte
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
	Metadata    map[string]interface{}
}

// WorkflowStore is the Persistence collaborator contract from spec §6.
type WorkflowStore interface {
	UpsertAgentState(ctx context.Context, row AgentStateRow) error
	LoadAgentState(ctx context.Context, agentID string) (*AgentStateRow, error)
	UpsertWorkflow(ctx context.Context, row WorkflowRow) error
	LoadWorkflow(ctx context.Context, workflowID string) (*WorkflowRow, error)
	AppendAgentExecution(ctx context.Context, rec AgentExecutionRecord) error
	QueryActiveAgents(ctx context.Context) ([]AgentStateRow, error)
	Close() error
}
