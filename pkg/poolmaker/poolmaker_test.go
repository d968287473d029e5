package poolmaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/worker"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	req *config.Requirements
}

func (s *stubAnalyzer) AnalyzeRequirements(ctx context.Context, userText string, hints map[string]interface{}) (*config.Requirements, error) {
	return s.req, nil
}

func allTemplateIDs() []string {
	var ids []string
	for _, t := range config.BuiltinTemplates() {
		ids = append(ids, t.TemplateID)
	}
	return ids
}

func newTestPoolMaker(t *testing.T, req *config.Requirements) *PoolMaker {
	t.Helper()
	reg := config.NewTemplateRegistry(config.BuiltinTemplates())
	factories := worker.NewRegistry()
	worker.RegisterDefaults(factories, allTemplateIDs())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(&stubAnalyzer{req: req}, reg, factories, &worker.StubLLMClient{Response: "ok"}, clock.NewSeededIDGen("agent"), logger)
}

func TestScenarioA_PlanPhaseOrderAndCompletionCount(t *testing.T) {
	req := &config.Requirements{
		ProjectType:  config.ProjectWebApp,
		Technologies: []config.Technology{config.TechPythonFastAPI, config.TechReact, config.TechDatabasePostgre, config.TechDocker},
		Flags:        config.Flags{HasAuth: true, HasDeployment: true, HasTesting: true, HasDocumentation: true},
	}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pm := newTestPoolMaker(t, req)
	specs, workers, plan, err := pm.InstantiatePool(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, workers, len(specs))

	require.Len(t, plan.Phases, 4)
	require.Equal(t, "Setup & Infrastructure", plan.Phases[0].Name)
	require.Equal(t, PhaseParallel, plan.Phases[0].Kind)
	require.Equal(t, "Backend Development", plan.Phases[1].Name)
	require.Equal(t, PhaseSequential, plan.Phases[1].Kind)
	require.Equal(t, "Frontend Development", plan.Phases[2].Name)
	require.Equal(t, PhaseSequential, plan.Phases[2].Kind)
	require.Equal(t, "Testing & Documentation", plan.Phases[3].Name)
	require.Equal(t, PhaseParallel, plan.Phases[3].Kind)

	totalSteps := 0
	for _, ph := range plan.Phases {
		totalSteps += len(ph.Steps)
	}
	require.Equal(t, len(specs), totalSteps)
}

func TestBoundary_AllFlagsFalseOnlyWriterPhase(t *testing.T) {
	req := &config.Requirements{}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pm := newTestPoolMaker(t, req)
	_, _, plan, err := pm.InstantiatePool(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, plan.Phases, 1)
	require.Equal(t, "Testing & Documentation", plan.Phases[0].Name)
	require.Len(t, plan.Phases[0].Steps, 1)
}

func TestDependencyWiringFrontendBackendDatabaseWriter(t *testing.T) {
	req := &config.Requirements{
		Technologies: []config.Technology{config.TechReact, config.TechPythonFastAPI, config.TechDatabasePostgre},
		Flags:        config.Flags{HasTesting: true},
	}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pm := newTestPoolMaker(t, req)
	specs, _, _, err := pm.InstantiatePool(context.Background(), req)
	require.NoError(t, err)

	byTemplate := make(map[string]*AgentSpecification)
	for _, s := range specs {
		byTemplate[s.TemplateID] = s
	}

	writer := byTemplate["technical_writer"]
	backend := byTemplate["python_backend"]
	frontend := byTemplate["react_frontend"]
	database := byTemplate["database_postgres"]

	require.Contains(t, frontend.Dependencies, backend.AgentID)
	require.Contains(t, backend.Dependencies, database.AgentID)
	require.Contains(t, backend.Dependencies, writer.AgentID)
	require.Contains(t, frontend.Dependencies, writer.AgentID)
	require.Contains(t, database.Dependencies, writer.AgentID)
	require.NotContains(t, writer.Dependencies, writer.AgentID)
}

func TestInstantiatePoolAtomicOnFactoryFailure(t *testing.T) {
	req := &config.Requirements{Flags: config.Flags{HasTesting: true}}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	reg := config.NewTemplateRegistry(config.BuiltinTemplates())
	factories := worker.NewRegistry()
	// Only register the writer factory — qa_engineer has no factory, so
	// instantiation must fail and reject the whole pool.
	worker.RegisterDefaults(factories, []string{"technical_writer"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pm := New(&stubAnalyzer{req: req}, reg, factories, &worker.StubLLMClient{}, clock.NewSeededIDGen("agent"), logger)

	_, _, _, err := pm.InstantiatePool(context.Background(), req)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPoolInstantiationFailed))
}

func TestDeterministicPlanWithSeededIDs(t *testing.T) {
	req := &config.Requirements{
		Technologies: []config.Technology{config.TechPythonFastAPI, config.TechReact},
		Flags:        config.Flags{HasTesting: true},
	}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pm1 := newTestPoolMaker(t, req)
	_, _, plan1, err := pm1.InstantiatePool(context.Background(), req)
	require.NoError(t, err)

	pm2 := newTestPoolMaker(t, req)
	_, _, plan2, err := pm2.InstantiatePool(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(plan1.Phases), len(plan2.Phases))
	for i := range plan1.Phases {
		require.Equal(t, plan1.Phases[i].Name, plan2.Phases[i].Name)
		require.Equal(t, len(plan1.Phases[i].Steps), len(plan2.Phases[i].Steps))
	}
}
