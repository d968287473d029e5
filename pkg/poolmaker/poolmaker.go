package poolmaker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/worker"
)

// Analyzer is the Pool Maker's delegate for AnalyzeRequirements (spec §4.2,
// §6). Defined here rather than imported from pkg/analyzer to avoid a
// dependency from this package onto a specific analyzer implementation —
// any collaborator satisfying this signature may be wired in.
type Analyzer interface {
	AnalyzeRequirements(ctx context.Context, userText string, hints map[string]interface{}) (*config.Requirements, error)
}

// PoolMaker is the Pool Maker of spec §4.2.
type PoolMaker struct {
	analyzer  Analyzer
	templates *config.TemplateRegistry
	factories *worker.Registry
	llmClient worker.LLMClient
	idgen     clock.IDGen
	logger    *slog.Logger
}

// New constructs a PoolMaker.
func New(analyzer Analyzer, templates *config.TemplateRegistry, factories *worker.Registry, llmClient worker.LLMClient, idgen clock.IDGen, logger *slog.Logger) *PoolMaker {
	return &PoolMaker{
		analyzer:  analyzer,
		templates: templates,
		factories: factories,
		llmClient: llmClient,
		idgen:     idgen,
		logger:    logger,
	}
}

// AnalyzeRequirements delegates to the configured Analyzer collaborator
// (spec §4.2).
func (p *PoolMaker) AnalyzeRequirements(ctx context.Context, userText string, hints map[string]interface{}) (*config.Requirements, error) {
	return p.analyzer.AnalyzeRequirements(ctx, userText, hints)
}

// InstantiatePool builds specifications, wires dependencies, constructs the
// ExecutionPlan, and instantiates workers via the Factory registry. Any
// single worker-instantiation failure rejects the whole pool
// (ErrPoolInstantiationFailed) — instantiation is atomic (spec §4.2).
func (p *PoolMaker) InstantiatePool(ctx context.Context, req *config.Requirements) ([]*AgentSpecification, map[string]*worker.Worker, *ExecutionPlan, error) {
	templateIDs := DetermineRequiredTemplates(req)

	specs := make([]*AgentSpecification, 0, len(templateIDs))
	byGroup := make(map[group][]*AgentSpecification)
	for _, templateID := range templateIDs {
		tmpl, err := p.templates.Get(templateID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", ErrPoolInstantiationFailed, err)
		}
		spec := &AgentSpecification{
			AgentID:         p.idgen.NewID(),
			TemplateID:      templateID,
			EffectiveConfig: cloneConfig(tmpl.DefaultConfig),
		}
		specs = append(specs, spec)
		g := groupOf(templateID)
		byGroup[g] = append(byGroup[g], spec)
	}

	wireDependencies(byGroup)

	plan := buildExecutionPlan(p.idgen, specs)

	workers := make(map[string]*worker.Worker, len(specs))
	for _, spec := range specs {
		w, err := p.factories.Build(spec.TemplateID, spec.EffectiveConfig, p.llmClient)
		if err != nil {
			p.logger.Error("worker instantiation failed, rejecting pool", "template_id", spec.TemplateID, "error", err)
			return nil, nil, nil, fmt.Errorf("%w: %v", ErrPoolInstantiationFailed, err)
		}
		w.AgentID = spec.AgentID
		workers[spec.AgentID] = w
	}

	return specs, workers, plan, nil
}

// wireDependencies applies the three deterministic dependency rules of spec
// §4.2 step 2, in order: frontend -> backend, backend -> database,
// non-writer -> writer. The layering guarantees the resulting graph is
// acyclic.
func wireDependencies(byGroup map[group][]*AgentSpecification) {
	backendIDs := ids(byGroup[groupBackend])
	databaseIDs := ids(byGroup[groupDatabase])
	writerIDs := ids(byGroup[groupWriter])

	for _, s := range byGroup[groupFrontend] {
		s.Dependencies = append(s.Dependencies, backendIDs...)
	}
	for _, s := range byGroup[groupBackend] {
		s.Dependencies = append(s.Dependencies, databaseIDs...)
	}
	for g, specs := range byGroup {
		if g == groupWriter {
			continue
		}
		for _, s := range specs {
			s.Dependencies = append(s.Dependencies, writerIDs...)
		}
	}
}

func ids(specs []*AgentSpecification) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.AgentID)
	}
	sort.Strings(out)
	return out
}

func cloneConfig(src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
