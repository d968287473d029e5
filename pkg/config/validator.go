package config

import "fmt"

// Validator validates a TemplateRegistry and Settings in dependency order,
// mirroring the teacher's ordered-validation style (queue → agents → ...).
type Validator struct {
	registry *TemplateRegistry
	settings *Settings
}

// NewValidator constructs a Validator over the given registry and settings.
func NewValidator(registry *TemplateRegistry, settings *Settings) *Validator {
	return &Validator{registry: registry, settings: settings}
}

// ValidateAll runs every validation step in order, wrapping each step's
// error with its stage name.
func (v *Validator) ValidateAll() error {
	if err := v.validateTemplates(); err != nil {
		return fmt.Errorf("template validation failed: %w", err)
	}
	if err := v.validateSettings(); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateTemplates() error {
	for id, t := range v.registry.All() {
		if t.TemplateID != id {
			return NewValidationError("template", id, "template_id", fmt.Errorf("%w: mismatched key", ErrInvalidValue))
		}
		if t.DisplayName == "" {
			return NewValidationError("template", id, "display_name", ErrMissingRequiredField)
		}
		if !t.Kind.valid() {
			return NewValidationError("template", id, "kind", fmt.Errorf("%w: %s", ErrInvalidValue, t.Kind))
		}
	}
	return nil
}

func (v *Validator) validateSettings() error {
	if v.settings == nil {
		return nil
	}
	if v.settings.ServicePort <= 0 || v.settings.ServicePort > 65535 {
		return NewValidationError("settings", "service_port", "", fmt.Errorf("%w: %d", ErrInvalidValue, v.settings.ServicePort))
	}
	if v.settings.LLMTemperature < 0 || v.settings.LLMTemperature > 2 {
		return NewValidationError("settings", "llm_temperature", "", fmt.Errorf("%w: %v", ErrInvalidValue, v.settings.LLMTemperature))
	}
	return nil
}
