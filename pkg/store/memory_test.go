package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryAgentStateRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	row := AgentStateRow{AgentID: "a1", TemplateID: "go_backend", Lifecycle: "Ready", IsActive: true, CreatedAt: time.Now(), LastUpdated: time.Now()}
	require.NoError(t, m.UpsertAgentState(ctx, row))

	got, err := m.LoadAgentState(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "go_backend", got.TemplateID)
}

func TestMemoryLoadAgentStateNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.LoadAgentState(context.Background(), "missing")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryQueryActiveAgentsFiltersInactive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.UpsertAgentState(ctx, AgentStateRow{AgentID: "active", IsActive: true}))
	require.NoError(t, m.UpsertAgentState(ctx, AgentStateRow{AgentID: "inactive", IsActive: false}))

	rows, err := m.QueryActiveAgents(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "active", rows[0].AgentID)
}

func TestMemoryAppendAgentExecution(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendAgentExecution(ctx, AgentExecutionRecord{AgentID: "a1", Status: "Completed"}))
	require.Len(t, m.Executions(), 1)
}
