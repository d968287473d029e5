package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsProjectTypeAndComplexity(t *testing.T) {
	r := &Requirements{}
	warnings := r.ApplyDefaults(nil)

	require.Empty(t, warnings)
	require.Equal(t, ProjectWebApp, r.ProjectType)
	require.Equal(t, ComplexityMedium, r.Complexity)
}

func TestApplyDefaultsHasDeploymentRequiresDocker(t *testing.T) {
	r := &Requirements{Flags: Flags{HasDeployment: true}}
	r.ApplyDefaults(nil)

	require.Contains(t, r.Technologies, TechDocker)
}

func TestApplyDefaultsFrontendWithoutBackendDowngrades(t *testing.T) {
	r := &Requirements{
		ProjectType:  ProjectWebApp,
		Complexity:   ComplexityComplex,
		Technologies: []Technology{TechReact},
	}
	warnings := r.ApplyDefaults(nil)

	require.Equal(t, ComplexitySimple, r.Complexity)
	require.NotEmpty(t, warnings)
}

func TestApplyDefaultsDropsUnknownTechnology(t *testing.T) {
	r := &Requirements{Technologies: []Technology{"cobol", TechGo}}
	warnings := r.ApplyDefaults(nil)

	require.Equal(t, []Technology{TechGo}, r.Technologies)
	require.NotEmpty(t, warnings)
}
