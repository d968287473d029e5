package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsBuiltins(t *testing.T) {
	reg := NewTemplateRegistry(BuiltinTemplates())
	settings := &Settings{ServicePort: 8080, LLMTemperature: 0.7}

	v := NewValidator(reg, settings)
	require.NoError(t, v.ValidateAll())
}

func TestValidatorRejectsBadPort(t *testing.T) {
	reg := NewTemplateRegistry(BuiltinTemplates())
	settings := &Settings{ServicePort: -1}

	v := NewValidator(reg, settings)
	require.Error(t, v.ValidateAll())
}

func TestValidatorRejectsTemplateMissingKind(t *testing.T) {
	reg := NewTemplateRegistry(nil)
	reg.Register(&AgentTemplate{TemplateID: "broken", DisplayName: "Broken"})

	v := NewValidator(reg, &Settings{ServicePort: 8080})
	require.Error(t, v.ValidateAll())
}
