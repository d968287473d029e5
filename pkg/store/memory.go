package store

import (
	"context"
	"sync"
)

// Memory is an in-memory WorkflowStore used by every package's tests in
// place of a live Postgres instance (see DESIGN.md / SPEC_FULL.md §D).
type Memory struct {
	mu         sync.RWMutex
	agents     map[string]AgentStateRow
	workflows  map[string]WorkflowRow
	executions []AgentExecutionRecord
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		agents:    make(map[string]AgentStateRow),
		workflows: make(map[string]WorkflowRow),
	}
}

func (m *Memory) UpsertAgentState(_ context.Context, row AgentStateRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[row.AgentID] = row
	return nil
}

func (m *Memory) LoadAgentState(_ context.Context, agentID string) (*AgentStateRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	out := row
	return &out, nil
}

func (m *Memory) UpsertWorkflow(_ context.Context, row WorkflowRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[row.WorkflowID] = row
	return nil
}

func (m *Memory) LoadWorkflow(_ context.Context, workflowID string) (*WorkflowRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.workflows[workflowID]
	if !ok {
		return nil, ErrNotFound
	}
	out := row
	return &out, nil
}

func (m *Memory) AppendAgentExecution(_ context.Context, rec AgentExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, rec)
	return nil
}

func (m *Memory) QueryActiveAgents(_ context.Context) ([]AgentStateRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AgentStateRow
	for _, row := range m.agents {
		if row.IsActive {
			out = append(out, row)
		}
	}
	return out, nil
}

// Executions returns a snapshot of every appended execution record, used by
// tests that assert on audit rows (spec §8 Scenario C).
func (m *Memory) Executions() []AgentExecutionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AgentExecutionRecord, len(m.executions))
	copy(out, m.executions)
	return out
}

func (m *Memory) Close() error { return nil }
