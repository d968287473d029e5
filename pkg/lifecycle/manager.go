package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brindle-systems/swarm/pkg/bus"
	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/store"
)

// Hook is a per-state callback invoked synchronously, in registration order,
// whenever an agent transitions into that state. A hook that returns an
// error is logged but never blocks or reverts the transition.
type Hook func(ctx context.Context, state *AgentState) error

// Config tunes the Manager's staleness sweep.
type Config struct {
	// StaleThreshold is how long an agent may sit in Running with no
	// heartbeat before the sweep moves it to Error (supplemented feature,
	// SPEC_FULL.md §C).
	StaleThreshold time.Duration
	SweepInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	return c
}

// Manager is the Lifecycle Manager of spec §4.4.
type Manager struct {
	cfg    Config
	clk    clock.Clock
	store  store.WorkflowStore
	bus    *bus.Bus
	logger *slog.Logger

	mu         sync.RWMutex
	agents     map[string]*AgentState
	dependents map[string]map[string]bool // agentID -> set of agents depending on it

	hooksMu sync.Mutex
	hooks   map[State][]Hook

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Manager and starts its staleness sweep.
func New(cfg Config, clk clock.Clock, st store.WorkflowStore, b *bus.Bus, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:        cfg.withDefaults(),
		clk:        clk,
		store:      st,
		bus:        b,
		logger:     logger,
		agents:     make(map[string]*AgentState),
		dependents: make(map[string]map[string]bool),
		hooks:      make(map[State][]Hook),
		stopCh:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop()
	return m
}

// Stop halts the background sweep.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// RegisterHook installs fn to run whenever any agent transitions into state.
// Hooks for the same state run in the order they were registered.
func (m *Manager) RegisterHook(state State, fn Hook) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks[state] = append(m.hooks[state], fn)
}

func (m *Manager) runHooks(ctx context.Context, state *AgentState) {
	m.hooksMu.Lock()
	hooks := append([]Hook(nil), m.hooks[state.Lifecycle]...)
	m.hooksMu.Unlock()
	for _, h := range hooks {
		if err := h(ctx, state); err != nil {
			m.logger.Warn("lifecycle hook failed", "agent_id", state.AgentID, "state", state.Lifecycle, "error", err)
		}
	}
}

// Create installs a new AgentState in Created, registers it with the bus,
// and advances it through Initializing to Ready (spec §4.4).
func (m *Manager) Create(ctx context.Context, p CreateParams) (*AgentState, error) {
	m.mu.Lock()
	if _, exists := m.agents[p.AgentID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p.AgentID)
	}
	now := m.clk.Now()
	a := &AgentState{
		AgentID:         p.AgentID,
		TemplateID:      p.TemplateID,
		Kind:            p.Kind,
		Lifecycle:       StateCreated,
		CreatedAt:       now,
		LastUpdated:     now,
		ContextSnapshot: make(map[string]interface{}),
		Dependencies:    append([]string(nil), p.Dependencies...),
		lastHeartbeat:   now,
	}
	m.agents[p.AgentID] = a
	for _, dep := range p.Dependencies {
		if m.dependents[dep] == nil {
			m.dependents[dep] = make(map[string]bool)
		}
		m.dependents[dep][p.AgentID] = true
	}
	m.mu.Unlock()

	m.runHooks(ctx, a)
	if m.bus != nil {
		m.bus.Register(p.AgentID, nil)
	}

	if err := m.transition(ctx, p.AgentID, StateInitializing); err != nil {
		return nil, err
	}
	if err := m.transition(ctx, p.AgentID, StateReady); err != nil {
		return nil, err
	}
	return m.get(p.AgentID)
}

// Start moves an agent from Ready or Paused into Running.
func (m *Manager) Start(ctx context.Context, agentID string) error {
	return m.transition(ctx, agentID, StateRunning)
}

// Pause moves a Ready or Running agent to Paused.
func (m *Manager) Pause(ctx context.Context, agentID string) error {
	return m.transition(ctx, agentID, StatePaused)
}

// Resume moves a Paused agent back to Running.
func (m *Manager) Resume(ctx context.Context, agentID string) error {
	return m.transition(ctx, agentID, StateRunning)
}

// Suspend moves a Running agent to Suspended, recording reason in its
// context snapshot.
func (m *Manager) Suspend(ctx context.Context, agentID, reason string) error {
	m.mu.Lock()
	if a, ok := m.agents[agentID]; ok {
		if a.ContextSnapshot == nil {
			a.ContextSnapshot = make(map[string]interface{})
		}
		a.ContextSnapshot["suspend_reason"] = reason
	}
	m.mu.Unlock()
	return m.transition(ctx, agentID, StateSuspended)
}

// Recover moves an agent back to Ready, from Error, Running, Paused, or
// Suspended (spec §4.4's matrix permits all four).
func (m *Manager) Recover(ctx context.Context, agentID string) error {
	return m.transition(ctx, agentID, StateReady)
}

// Fail moves an agent into Error and increments its error count.
func (m *Manager) Fail(ctx context.Context, agentID string) error {
	m.mu.Lock()
	if a, ok := m.agents[agentID]; ok {
		a.ErrorCount++
	}
	m.mu.Unlock()
	return m.transition(ctx, agentID, StateError)
}

// Terminate moves an agent through Terminating to Terminated. Unless force
// is set, Terminate refuses while another non-terminated agent still lists
// this one as a dependency.
func (m *Manager) Terminate(ctx context.Context, agentID string, force bool) error {
	if !force {
		m.mu.RLock()
		blocked := false
		for depID := range m.dependents[agentID] {
			if dep, ok := m.agents[depID]; ok && !dep.Lifecycle.Terminal() {
				blocked = true
				break
			}
		}
		m.mu.RUnlock()
		if blocked {
			return fmt.Errorf("%w: %s", ErrDependencyBlocked, agentID)
		}
	}

	if err := m.transition(ctx, agentID, StateTerminating); err != nil {
		return err
	}
	if err := m.transition(ctx, agentID, StateTerminated); err != nil {
		return err
	}
	if m.bus != nil {
		m.bus.Unregister(agentID)
	}
	return nil
}

// transition validates and applies a state change, persists it, and runs
// hooks registered for the destination state.
func (m *Manager) transition(ctx context.Context, agentID string, to State) error {
	m.mu.Lock()
	a, ok := m.agents[agentID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	from := a.Lifecycle
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	a.Lifecycle = to
	a.LastUpdated = m.clk.Now()
	snapshot := a.clone()
	m.mu.Unlock()

	m.runHooks(ctx, snapshot)
	m.persist(ctx, snapshot)
	m.logger.Info("agent transitioned", "agent_id", agentID, "from", from, "to", to)
	return nil
}

// Heartbeat marks an agent as recently alive, exempting it from the next
// staleness sweep.
func (m *Manager) Heartbeat(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[agentID]; ok {
		a.lastHeartbeat = m.clk.Now()
	}
}

// RecordExecution increments execution/error counters after a Worker.Execute
// call completes.
func (m *Manager) RecordExecution(agentID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, found := m.agents[agentID]
	if !found {
		return
	}
	a.ExecutionCount++
	if !ok {
		a.ErrorCount++
	}
	a.lastHeartbeat = m.clk.Now()
}

// ActiveCount returns the number of agents not yet Terminated (spec §6
// health-check surface: active_agents).
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.agents {
		if !a.Lifecycle.Terminal() {
			n++
		}
	}
	return n
}

// Get returns a snapshot of an agent's current state.
func (m *Manager) Get(agentID string) (*AgentState, error) {
	return m.get(agentID)
}

func (m *Manager) get(agentID string) (*AgentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return a.clone(), nil
}

// SaveState persists an agent's current snapshot to the store without
// changing its lifecycle state.
func (m *Manager) SaveState(ctx context.Context, agentID string) error {
	a, err := m.get(agentID)
	if err != nil {
		return err
	}
	return m.persist(ctx, a)
}

// Checkpoint appends payload to an agent's bounded checkpoint ring and
// persists it.
func (m *Manager) Checkpoint(ctx context.Context, agentID string, payload map[string]interface{}) error {
	m.mu.Lock()
	a, ok := m.agents[agentID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	cp := Checkpoint{
		Timestamp:     m.clk.Now(),
		Payload:       payload,
		ExecCountAt:   a.ExecutionCount,
		SchemaVersion: 1,
	}
	a.pushCheckpoint(cp)
	a.LastUpdated = cp.Timestamp
	snapshot := a.clone()
	m.mu.Unlock()

	return m.persist(ctx, snapshot)
}

// RestoreCheckpoint returns the checkpoint at index (negative counts from
// the end; -1 is the most recent) without mutating lifecycle state.
func (m *Manager) RestoreCheckpoint(agentID string, index int) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	n := len(a.Checkpoints)
	if n == 0 {
		return nil, ErrCheckpointNotFound
	}
	i := index
	if i < 0 {
		i = n + i
	}
	if i < 0 || i >= n {
		return nil, ErrCheckpointNotFound
	}
	cp := a.Checkpoints[i]
	return &cp, nil
}

func (m *Manager) persist(ctx context.Context, a *AgentState) error {
	if m.store == nil {
		return nil
	}
	row := store.AgentStateRow{
		AgentID:         a.AgentID,
		TemplateID:      a.TemplateID,
		Kind:            a.Kind,
		Lifecycle:       string(a.Lifecycle),
		ExecutionCount:  a.ExecutionCount,
		ErrorCount:      a.ErrorCount,
		CreatedAt:       a.CreatedAt,
		LastUpdated:     a.LastUpdated,
		ContextSnapshot: a.ContextSnapshot,
		IsActive:        !a.Lifecycle.Terminal(),
	}
	for _, cp := range a.Checkpoints {
		row.Checkpoints = append(row.Checkpoints, store.CheckpointRow{
			Timestamp:   cp.Timestamp,
			Payload:     cp.Payload,
			ExecCountAt: cp.ExecCountAt,
			SchemaVer:   cp.SchemaVersion,
		})
	}
	if err := store.WithCriticalRetry(ctx, m.logger, func() error {
		return m.store.UpsertAgentState(ctx, row)
	}); err != nil {
		m.logger.Error("failed to persist agent state", "agent_id", a.AgentID, "error", err)
		return err
	}
	return nil
}
