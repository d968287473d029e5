package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brindle-systems/swarm/pkg/bus"
	"github.com/brindle-systems/swarm/pkg/cache"
	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/evolution"
	"github.com/brindle-systems/swarm/pkg/lifecycle"
	"github.com/brindle-systems/swarm/pkg/limiter"
	"github.com/brindle-systems/swarm/pkg/poolmaker"
	"github.com/brindle-systems/swarm/pkg/store"
	"github.com/brindle-systems/swarm/pkg/worker"
	"github.com/stretchr/testify/require"
)

type fixedAnalyzer struct {
	req *config.Requirements
}

func (a *fixedAnalyzer) AnalyzeRequirements(_ context.Context, _ string, _ map[string]interface{}) (*config.Requirements, error) {
	return a.req, nil
}

func allTemplateIDs() []string {
	var ids []string
	for _, t := range config.BuiltinTemplates() {
		ids = append(ids, t.TemplateID)
	}
	return ids
}

type testHarness struct {
	orch  *Orchestrator
	st    *store.Memory
	b     *bus.Bus
	lc    *lifecycle.Manager
	evo   *evolution.Engine
	lim   *limiter.Limiter
	cache cache.Cache
	clock *clock.Fixed
}

func newHarness(t *testing.T, req *config.Requirements) *testHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(time.Unix(0, 0))
	idgen := clock.NewSeededIDGen("wf")

	st := store.NewMemory()
	b := bus.New(bus.Config{}, logger)
	lc := lifecycle.New(lifecycle.Config{StaleThreshold: time.Hour, SweepInterval: time.Hour}, clk, st, b, logger)
	evo := evolution.New(clk, clock.NewSeededIDGen("ver"), logger)
	lim := limiter.New(limiter.Config{}, logger)
	breakers := limiter.NewRegistry(limiter.BreakerConfig{})

	templates := config.NewTemplateRegistry(config.BuiltinTemplates())
	factories := worker.NewRegistry()
	worker.RegisterDefaults(factories, allTemplateIDs())
	pm := poolmaker.New(&fixedAnalyzer{req: req}, templates, factories, &worker.StubLLMClient{Response: "ok"}, idgen, logger)

	cch := cache.NewMemory()
	orch := New(Config{MaxExecutionTime: 5 * time.Second}, pm, templates, lc, evo, lim, breakers, b, st, cch, clk, idgen, logger)

	t.Cleanup(func() {
		lc.Stop()
		lim.Stop()
		b.Stop()
		cch.Close()
	})

	return &testHarness{orch: orch, st: st, b: b, lc: lc, evo: evo, lim: lim, cache: cch, clock: clk}
}

func failingExecute(w *worker.Worker, errMsg string) {
	w.Execute = func(ctx context.Context, input []byte, execCtx map[string]interface{}) (*worker.ExecutionResult, error) {
		return &worker.ExecutionResult{OK: false, Error: errMsg}, nil
	}
}

// TestScenarioC_SequentialStepFailureSkipsRestAndFailsWorkflow implements
// the spec's sequential-phase failure scenario: three backend steps run in
// order, the second fails, the third is skipped, the trailing phase's steps
// are skipped, and the workflow ends Failed while step one's output
// survives in the shared context.
func TestScenarioC_SequentialStepFailureSkipsRestAndFailsWorkflow(t *testing.T) {
	req := &config.Requirements{
		Technologies: []config.Technology{config.TechPythonFastAPI, config.TechNodeExpress, config.TechGo},
		Flags:        config.Flags{HasTesting: true},
	}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "three backend services", "sess-1", "user-1", CreateOptions{})
	require.NoError(t, err)

	require.Len(t, wf.Plan.Phases, 2)
	backendPhase := wf.Plan.Phases[0]
	require.Equal(t, "Backend Development", backendPhase.Name)
	require.Len(t, backendPhase.Steps, 3)

	failingAgentID := backendPhase.Steps[1].AgentID
	failingExecute(wf.Workers[failingAgentID], "boom")

	report, err := h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.NoError(t, err)

	require.Equal(t, StatusFailed, report.Status)
	require.Equal(t, poolmaker.StepCompleted, backendPhase.Steps[0].Status)
	require.Equal(t, poolmaker.StepFailed, backendPhase.Steps[1].Status)
	require.Equal(t, "boom", backendPhase.Steps[1].Error)
	require.Equal(t, poolmaker.StepSkipped, backendPhase.Steps[2].Status)
	require.Equal(t, poolmaker.PhaseFailed, backendPhase.Status)

	trailingPhase := wf.Plan.Phases[1]
	for _, st := range trailingPhase.Steps {
		require.Equal(t, poolmaker.StepSkipped, st.Status)
	}

	snapshot := wf.ContextSnapshot()
	require.Contains(t, snapshot, backendPhase.Steps[0].AgentID+"_output")

	execs := h.st.Executions()
	require.Len(t, execs, 2) // one per attempted step; the skipped third never executes

	// Invariant 1: every step accounted for across the terminal statuses.
	var completed, failed, skipped int
	for _, ph := range wf.Plan.Phases {
		for _, st := range ph.Steps {
			switch st.Status {
			case poolmaker.StepCompleted:
				completed++
			case poolmaker.StepFailed:
				failed++
			case poolmaker.StepSkipped:
				skipped++
			}
		}
	}
	require.Equal(t, 5, completed+failed+skipped)
}

func TestParallelPhaseAllSucceed(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true, HasDocumentation: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "just docs and tests", "sess-2", "user-1", CreateOptions{})
	require.NoError(t, err)
	require.Len(t, wf.Plan.Phases, 1)
	require.Equal(t, poolmaker.PhaseParallel, wf.Plan.Phases[0].Kind)

	report, err := h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, report.Status)
	require.Equal(t, len(wf.Plan.Phases[0].Steps), report.StepsCompleted)
}

func TestExecuteWorkflowRejectsNonPending(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "solo writer", "sess-3", "user-1", CreateOptions{})
	require.NoError(t, err)

	_, err = h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.NoError(t, err)

	_, err = h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.ErrorIs(t, err, ErrAlreadyExecuted)
}

func TestCancelIsIdempotentAndForceTerminatesAgents(t *testing.T) {
	req := &config.Requirements{
		Technologies: []config.Technology{config.TechPythonFastAPI, config.TechReact},
		Flags:        config.Flags{HasTesting: true},
	}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "fullstack app", "sess-4", "user-1", CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, h.orch.Cancel(ctx, wf.WorkflowID))
	require.Equal(t, StatusCancelled, wf.Status())

	for _, spec := range wf.Specs {
		st, err := h.lc.Get(spec.AgentID)
		require.NoError(t, err)
		require.Equal(t, lifecycle.StateTerminated, st.Lifecycle)
	}

	// Cancel twice behaves as Cancel once.
	require.NoError(t, h.orch.Cancel(ctx, wf.WorkflowID))
	require.Equal(t, StatusCancelled, wf.Status())
}

func TestPauseResumeRoundTrip(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "solo writer again", "sess-5", "user-1", CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, h.orch.Pause(ctx, wf.WorkflowID))
	require.Equal(t, StatusPaused, wf.Status())

	require.NoError(t, h.orch.Resume(ctx, wf.WorkflowID))
	require.Equal(t, StatusPending, wf.Status()) // Pause∘Resume restores the prior status exactly

	report, err := h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, report.Status)
}

func TestListActiveWorkflowsExcludesTerminal(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, req)
	ctx := context.Background()

	wf1, err := h.orch.CreateWorkflow(ctx, "first", "sess-6", "user-1", CreateOptions{})
	require.NoError(t, err)
	wf2, err := h.orch.CreateWorkflow(ctx, "second", "sess-7", "user-1", CreateOptions{})
	require.NoError(t, err)

	require.Len(t, h.orch.ListActiveWorkflows(), 2)

	_, err = h.orch.ExecuteWorkflow(ctx, wf1.WorkflowID)
	require.NoError(t, err)

	active := h.orch.ListActiveWorkflows()
	require.Len(t, active, 1)
	require.Equal(t, wf2.WorkflowID, active[0].WorkflowID)
}

func TestCreateWorkflowCachesSessionBindingAndExecuteCachesStepResults(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, req)
	ctx := context.Background()

	wf, err := h.orch.CreateWorkflow(ctx, "cache me", "sess-cache", "user-1", CreateOptions{})
	require.NoError(t, err)

	raw, ok, err := h.cache.Get(ctx, cache.KindSession, "sess-cache")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wf.WorkflowID, string(raw))

	report, err := h.orch.ExecuteWorkflow(ctx, wf.WorkflowID)
	require.NoError(t, err)
	require.NotEmpty(t, report.Results)

	_, ok, err = h.cache.Get(ctx, cache.KindAgentResult, report.Results[0].StepID)
	require.NoError(t, err)
	require.True(t, ok)
}
