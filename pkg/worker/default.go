package worker

import (
	"context"
	"fmt"
	"time"
)

// NewLLMBackedFactory returns a Factory whose Worker.Execute forwards the
// input as a prompt to the shared LLM client and whose Reason does the
// same — a minimal but fully functional default for templates that don't
// need a bespoke implementation.
func NewLLMBackedFactory(templateID string) Factory {
	return func(effectiveConfig map[string]interface{}, llmClient LLMClient) (*Worker, error) {
		if llmClient == nil {
			return nil, fmt.Errorf("%w: no llm client configured", ErrConfigValidationFailed)
		}
		w := &Worker{TemplateID: templateID}
		w.Execute = func(ctx context.Context, input []byte, execCtx map[string]interface{}) (*ExecutionResult, error) {
			start := time.Now()
			text, err := llmClient.Generate(ctx, string(input), GenerateOptions{Temperature: 0.7, MaxTokens: 2048})
			elapsed := time.Since(start)
			if err != nil {
				return &ExecutionResult{OK: false, Error: err.Error(), Elapsed: elapsed}, nil
			}
			return &ExecutionResult{OK: true, Output: []byte(text), Elapsed: elapsed, Metadata: map[string]interface{}{}}, nil
		}
		w.Reason = func(ctx context.Context, prompt string) (string, error) {
			return llmClient.Generate(ctx, prompt, GenerateOptions{Temperature: 0.7, MaxTokens: 2048})
		}
		return w, nil
	}
}

// RegisterDefaults installs a NewLLMBackedFactory for every template known to
// templateIDs, so a freshly booted registry can instantiate any built-in
// template without operator configuration.
func RegisterDefaults(reg *Registry, templateIDs []string) {
	for _, id := range templateIDs {
		reg.Register(id, NewLLMBackedFactory(id))
	}
}
