// Package worker implements the Worker Abstraction & Registry of spec §4.1:
// a uniform worker contract, a template-keyed factory registry, and the LLM
// client collaborator contract.
package worker

import (
	"context"
	"time"
)

// ExecutionResult is returned by a Worker's Execute function (spec §3).
type ExecutionResult struct {
	OK         bool
	Output     []byte
	Error      string
	TokensUsed int
	Elapsed    time.Duration
	Metadata   map[string]interface{}
}

// ExecuteFunc is the one capability every Worker must provide.
type ExecuteFunc func(ctx context.Context, input []byte, execCtx map[string]interface{}) (*ExecutionResult, error)

// ReasonFunc is the optional capability of LLM-routed worker variants.
type ReasonFunc func(ctx context.Context, prompt string) (string, error)

// ActFunc is the optional capability of tool-using worker variants.
type ActFunc func(ctx context.Context, toolName string, args map[string]interface{}) ([]byte, error)

// Worker is a running instance bound to an AgentSpecification. It is
// polymorphic over the capability set {execute, reason, act}; the core only
// ever calls Execute. Reason and Act are nil when a template doesn't support
// them — this is the capability-record design spec §9 calls for in place of
// a class hierarchy with per-subclass overrides.
type Worker struct {
	AgentID    string
	TemplateID string
	Execute    ExecuteFunc
	Reason     ReasonFunc
	Act        ActFunc
}
