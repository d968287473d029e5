package analyzer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Heuristic {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScenarioA_EcommerceSiteWithAuthPostgresDeployment(t *testing.T) {
	a := newTestAnalyzer()
	req, err := a.AnalyzeRequirements(context.Background(), "Build an e-commerce site with auth, PostgreSQL and deployment", nil)
	require.NoError(t, err)

	require.Equal(t, config.ProjectWebApp, req.ProjectType)
	require.True(t, req.Flags.HasAuth)
	require.True(t, req.Flags.HasDeployment)
	require.Contains(t, req.Technologies, config.TechDatabasePostgre)
	require.Contains(t, req.Technologies, config.TechDocker)

	hasBackend := false
	for _, t2 := range req.Technologies {
		if t2 == config.TechPythonFastAPI || t2 == config.TechPythonDjango || t2 == config.TechNodeExpress || t2 == config.TechGo {
			hasBackend = true
		}
	}
	require.True(t, hasBackend, "expected a default backend technology tag")

	hasFrontend := false
	for _, t2 := range req.Technologies {
		if t2 == config.TechReact || t2 == config.TechVue || t2 == config.TechAngular {
			hasFrontend = true
		}
	}
	require.True(t, hasFrontend, "expected a default frontend technology tag")
}

func TestScenarioB_DocumentationRequestHasNoExplicitTechnologies(t *testing.T) {
	a := newTestAnalyzer()
	req, err := a.AnalyzeRequirements(context.Background(), "Generate comprehensive technical documentation for our microservices", nil)
	require.NoError(t, err)

	require.Equal(t, config.ProjectDocumentation, req.ProjectType)
	require.True(t, req.Flags.HasTesting)
	require.False(t, req.Flags.HasAuth)
	require.False(t, req.Flags.HasDeployment)
	require.False(t, req.Flags.HasRealtime)
	require.Empty(t, req.Technologies)
}

func TestBoundary_AllFlagsFalseNoTechnologies(t *testing.T) {
	req := &config.Requirements{}
	req.ApplyDefaults(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Equal(t, config.ProjectWebApp, req.ProjectType)
	require.Empty(t, req.Technologies)
}

func TestNeverFailsOnFreeformText(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.AnalyzeRequirements(context.Background(), "asdkjfh qwoiefj nothing recognizable here!!", nil)
	require.NoError(t, err)
}
