// Package orchestrator implements the Orchestrator of spec §4.6: workflow
// creation via the Pool Maker, phase-ordered execution with parallel and
// sequential dispatch, evolution feedback, and pause/resume/cancel control.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
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
)

// pauseBrokerInterval is how often ExecuteWorkflow re-checks a Paused
// workflow before entering its next phase (spec §5 suspension points:
// between phases, never mid-step).
const pauseBrokerInterval = 50 * time.Millisecond

// Config tunes the Orchestrator; zero values take the spec defaults.
type Config struct {
	MaxExecutionTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxExecutionTime <= 0 {
		c.MaxExecutionTime = 60 * time.Second
	}
	return c
}

// Orchestrator is the Orchestrator of spec §4.6.
type Orchestrator struct {
	cfg Config

	pool      *poolmaker.PoolMaker
	templates *config.TemplateRegistry
	lifecycle *lifecycle.Manager
	evolution *evolution.Engine
	limiter   *limiter.Limiter
	breakers  *limiter.Registry
	bus       *bus.Bus
	store     store.WorkflowStore
	cache     cache.Cache // nil disables caching (spec §7 CacheError: best-effort)
	clk       clock.Clock
	idgen     clock.IDGen
	logger    *slog.Logger

	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// New constructs an Orchestrator wired against its collaborators. cch may be
// nil, in which case the session binding and execution-result caches are
// skipped entirely.
func New(
	cfg Config,
	pool *poolmaker.PoolMaker,
	templates *config.TemplateRegistry,
	lc *lifecycle.Manager,
	evo *evolution.Engine,
	lim *limiter.Limiter,
	breakers *limiter.Registry,
	b *bus.Bus,
	st store.WorkflowStore,
	cch cache.Cache,
	clk clock.Clock,
	idgen clock.IDGen,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		pool:      pool,
		templates: templates,
		lifecycle: lc,
		evolution: evo,
		limiter:   lim,
		breakers:  breakers,
		bus:       b,
		store:     st,
		cache:     cch,
		clk:       clk,
		idgen:     idgen,
		logger:    logger,
		workflows: make(map[string]*Workflow),
	}
}

// CreateWorkflow analyzes userText into Requirements, instantiates the
// worker pool, installs every agent with the Lifecycle Manager, and stores
// the new Workflow in Pending (spec §4.6 create_workflow).
func (o *Orchestrator) CreateWorkflow(ctx context.Context, userText, sessionID, userID string, opts CreateOptions) (*Workflow, error) {
	if userText == "" {
		return nil, fmt.Errorf("%w: user_text must not be empty", ErrInvalidInput)
	}

	req, err := o.pool.AnalyzeRequirements(ctx, userText, opts.Hints)
	if err != nil {
		return nil, fmt.Errorf("analyze requirements: %w", err)
	}

	specs, workers, plan, err := o.pool.InstantiatePool(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, spec := range specs {
		tmpl, err := o.templates.Get(spec.TemplateID)
		if err != nil {
			return nil, err
		}
		if _, err := o.lifecycle.Create(ctx, lifecycle.CreateParams{
			AgentID:      spec.AgentID,
			TemplateID:   spec.TemplateID,
			Kind:         string(tmpl.Kind),
			Dependencies: spec.Dependencies,
		}); err != nil {
			return nil, fmt.Errorf("install agent %s: %w", spec.AgentID, err)
		}
	}

	wf := &Workflow{
		WorkflowID:         o.idgen.NewID(),
		ProjectType:        req.ProjectType,
		Description:        userText,
		CreatedAt:          o.clk.Now(),
		OwnerUserID:        userID,
		SessionID:          sessionID,
		ContinueOnFailure:  opts.ContinueOnFailure,
		AutoApplyEvolution: opts.AutoApplyEvolution,
		Plan:               plan,
		Specs:              specs,
		Workers:            workers,
		status:             StatusPending,
	}

	o.mu.Lock()
	o.workflows[wf.WorkflowID] = wf
	o.mu.Unlock()

	o.persistWorkflow(ctx, wf)
	o.cacheSessionBinding(ctx, wf)
	return wf, nil
}

// cacheSessionBinding records sessionID -> workflow_id under the session
// cache kind (spec §6 Cache collaborator: "session→worker binding"),
// letting a caller that only has a session_id recover its active
// workflow. Best-effort: a cache failure is logged, never surfaced (spec §7
// CacheError).
func (o *Orchestrator) cacheSessionBinding(ctx context.Context, wf *Workflow) {
	if o.cache == nil || wf.SessionID == "" {
		return
	}
	if err := o.cache.Set(ctx, cache.KindSession, wf.SessionID, []byte(wf.WorkflowID)); err != nil {
		o.logger.Warn("failed to cache session binding", "session_id", wf.SessionID, "error", err)
	}
}

// ExecuteWorkflow runs every phase of workflowID's plan in order, aggregates
// step statuses into phase and workflow status, feeds every outcome to the
// Evolution Engine, and persists the final state (spec §4.6
// execute_workflow).
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string) (*ExecutionReport, error) {
	wf, err := o.get(workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status() != StatusPending {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, workflowID)
	}

	execCtx, cancel := context.WithCancel(ctx)
	wf.mu.Lock()
	wf.cancel = cancel
	wf.mu.Unlock()
	wf.setStatus(StatusInProgress)
	o.persistWorkflow(ctx, wf)

	specByAgent := make(map[string]*poolmaker.AgentSpecification, len(wf.Specs))
	for _, spec := range wf.Specs {
		specByAgent[spec.AgentID] = spec
	}

	var results []StepResult
	stepsCompleted := 0
	abortRemaining := false

	for _, phase := range wf.Plan.Phases {
		if err := o.waitWhilePaused(execCtx, wf); err != nil {
			break
		}
		if wf.Status() == StatusCancelled {
			break
		}

		if abortRemaining {
			for _, st := range phase.Steps {
				st.Status = poolmaker.StepSkipped
				results = append(results, StepResult{StepID: st.StepID, AgentID: st.AgentID, Status: st.Status})
			}
			continue
		}

		phase.Status = poolmaker.PhaseRunning
		o.emit(wf.WorkflowID, EventPhaseStarted, map[string]interface{}{"phase_id": phase.PhaseID, "name": phase.Name})

		phaseFailed := o.runPhase(execCtx, wf, phase, specByAgent)

		for _, st := range phase.Steps {
			results = append(results, StepResult{StepID: st.StepID, AgentID: st.AgentID, Status: st.Status, Error: st.Error})
			if st.Status == poolmaker.StepCompleted {
				stepsCompleted++
			}
		}

		if phaseFailed {
			phase.Status = poolmaker.PhaseFailed
			o.emit(wf.WorkflowID, EventPhaseFailed, map[string]interface{}{"phase_id": phase.PhaseID})
			if !wf.ContinueOnFailure {
				abortRemaining = true
			}
		} else {
			phase.Status = poolmaker.PhaseCompleted
			o.emit(wf.WorkflowID, EventPhaseCompleted, map[string]interface{}{"phase_id": phase.PhaseID})
		}

		pending := wf.drainMutations()
		if wf.AutoApplyEvolution {
			for _, m := range pending {
				v := o.evolution.ApplyMutation(m)
				o.logger.Info("evolution mutation applied at phase boundary", "agent_id", m.AgentID, "strategy", m.Strategy, "version_id", v.VersionID)
			}
		}
	}

	finalStatus := StatusCompleted
	switch {
	case wf.Status() == StatusCancelled:
		finalStatus = StatusCancelled
	case abortRemaining:
		finalStatus = StatusFailed
	}
	wf.setStatus(finalStatus)
	o.persistWorkflow(ctx, wf)
	o.emit(wf.WorkflowID, EventWorkflowDone, map[string]interface{}{"status": string(finalStatus)})

	return &ExecutionReport{
		WorkflowID:     wf.WorkflowID,
		Status:         finalStatus,
		StepsCompleted: stepsCompleted,
		Results:        results,
	}, nil
}

// runPhase dispatches phase's steps concurrently or in order and reports
// whether any step failed.
func (o *Orchestrator) runPhase(ctx context.Context, wf *Workflow, phase *poolmaker.Phase, specByAgent map[string]*poolmaker.AgentSpecification) bool {
	if phase.Kind == poolmaker.PhaseParallel {
		var wg sync.WaitGroup
		var mu sync.Mutex
		failed := false
		for _, st := range phase.Steps {
			st := st
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok := o.executeStep(ctx, wf, st, specByAgent[st.AgentID])
				if !ok {
					mu.Lock()
					failed = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		return failed
	}

	failed := false
	for _, st := range phase.Steps {
		if failed && !wf.ContinueOnFailure {
			st.Status = poolmaker.StepSkipped
			continue
		}
		select {
		case <-ctx.Done():
			st.Status = poolmaker.StepSkipped
			continue
		default:
		}
		if !o.executeStep(ctx, wf, st, specByAgent[st.AgentID]) {
			failed = true
		}
	}
	return failed
}

// executeStep runs one Step's worker under the circuit breaker and
// Execution Limiter, records the outcome with the Lifecycle Manager and
// Evolution Engine, and writes its output into the workflow's shared
// context (spec §4.6 step 3, §4.5, §4.7).
func (o *Orchestrator) executeStep(ctx context.Context, wf *Workflow, step *poolmaker.Step, spec *poolmaker.AgentSpecification) bool {
	step.Status = poolmaker.StepRunning
	step.StartedAt = o.clk.Now()
	o.emit(wf.WorkflowID, EventStepStarted, map[string]interface{}{"step_id": step.StepID, "agent_id": step.AgentID})

	breaker := o.breakers.For(spec.TemplateID)
	if !breaker.Allow() {
		step.Error = "circuit open"
		step.Status = poolmaker.StepFailed
		step.FinishedAt = o.clk.Now()
		o.lifecycle.RecordExecution(step.AgentID, false)
		o.appendExecutionRecord(ctx, wf, step, nil)
		o.emit(wf.WorkflowID, EventStepFailed, map[string]interface{}{"step_id": step.StepID, "error": step.Error})
		return false
	}

	if err := o.lifecycle.Start(ctx, step.AgentID); err != nil {
		o.logger.Warn("lifecycle start failed, executing anyway", "agent_id", step.AgentID, "error", err)
	}

	w := wf.Workers[step.AgentID]
	inputBytes, _ := json.Marshal(step.Inputs)
	execCtx := wf.ContextSnapshot()

	var result *worker.ExecutionResult
	runErr := o.limiter.Execute(ctx, step.StepID, o.cfg.MaxExecutionTime, func(callCtx context.Context) error {
		r, err := w.Execute(callCtx, inputBytes, execCtx)
		result = r
		return err
	})

	// The agent returns to Ready regardless of outcome — Error is reserved
	// for the staleness sweep (SPEC_FULL.md §C), not ordinary step failures,
	// which the Evolution Engine already tracks via the error rate.
	if err := o.lifecycle.Recover(ctx, step.AgentID); err != nil {
		o.logger.Warn("lifecycle recover-to-ready failed", "agent_id", step.AgentID, "error", err)
	}

	ok := runErr == nil && result != nil && result.OK
	switch {
	case runErr != nil:
		step.Error = runErr.Error()
	case result == nil:
		step.Error = "worker returned no result"
	case !result.OK:
		step.Error = result.Error
	}

	if ok {
		breaker.RecordSuccess()
	} else {
		breaker.RecordFailure()
	}

	step.FinishedAt = o.clk.Now()
	if ok {
		step.Status = poolmaker.StepCompleted
		step.Outputs = map[string]interface{}{"output": string(result.Output), "tokens_used": result.TokensUsed}
		wf.setContextValue(step.AgentID+"_output", step.Outputs)
	} else {
		step.Status = poolmaker.StepFailed
	}

	o.lifecycle.RecordExecution(step.AgentID, ok)
	o.appendExecutionRecord(ctx, wf, step, result)

	duration := step.FinishedAt.Sub(step.StartedAt)
	mutation, err := o.evolution.Record(step.AgentID, evolution.Outcome{OK: ok, Duration: duration})
	if err != nil {
		o.logger.Warn("evolution record failed", "agent_id", step.AgentID, "error", err)
	} else if mutation != nil {
		wf.queueMutation(mutation)
	}

	if ok {
		o.emit(wf.WorkflowID, EventStepCompleted, map[string]interface{}{"step_id": step.StepID, "agent_id": step.AgentID})
	} else {
		o.emit(wf.WorkflowID, EventStepFailed, map[string]interface{}{"step_id": step.StepID, "agent_id": step.AgentID, "error": step.Error})
	}
	return ok
}

func (o *Orchestrator) appendExecutionRecord(ctx context.Context, wf *Workflow, step *poolmaker.Step, result *worker.ExecutionResult) {
	if o.store == nil {
		return
	}
	rec := store.AgentExecutionRecord{
		AgentID:     step.AgentID,
		SessionID:   wf.SessionID,
		Status:      string(step.Status),
		Error:       step.Error,
		StartedAt:   step.StartedAt,
		CompletedAt: step.FinishedAt,
	}
	if b, err := json.Marshal(step.Inputs); err == nil {
		rec.Input = b
	}
	if result != nil {
		rec.Output = result.Output
		rec.Metadata = result.Metadata
	}
	if err := o.store.AppendAgentExecution(ctx, rec); err != nil {
		o.logger.Error("failed to append execution record", "agent_id", step.AgentID, "error", err)
	}

	o.cacheExecutionResult(ctx, step)
}

// cacheExecutionResult caches a step's terminal status/error under the
// agent_result cache kind, keyed by step_id, so a repeated status lookup
// doesn't have to round-trip the persistence collaborator (spec §6 Cache
// collaborator, spec §7 CacheError: best-effort, never fails the step).
func (o *Orchestrator) cacheExecutionResult(ctx context.Context, step *poolmaker.Step) {
	if o.cache == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{"status": string(step.Status), "error": step.Error})
	if err != nil {
		return
	}
	if err := o.cache.Set(ctx, cache.KindAgentResult, step.StepID, payload); err != nil {
		o.logger.Warn("failed to cache execution result", "step_id", step.StepID, "error", err)
	}
}

// waitWhilePaused blocks the phase loop at a phase boundary while the
// workflow is Paused (spec §5: suspension points fall between phases, never
// mid-step).
func (o *Orchestrator) waitWhilePaused(ctx context.Context, wf *Workflow) error {
	for wf.Status() == StatusPaused {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pauseBrokerInterval):
		}
	}
	return nil
}

// Pause moves every Running worker agent to Paused and the workflow itself
// to Paused, remembering its prior status so Resume can restore it exactly
// (Pause then Resume is the identity transform). Idempotent on an
// already-Paused or terminal workflow.
func (o *Orchestrator) Pause(ctx context.Context, workflowID string) error {
	wf, err := o.get(workflowID)
	if err != nil {
		return err
	}
	wf.mu.Lock()
	if wf.status == StatusPaused || wf.status.terminal() {
		wf.mu.Unlock()
		return nil
	}
	wf.prePause = wf.status
	wf.status = StatusPaused
	wf.mu.Unlock()

	for _, spec := range wf.Specs {
		if st, err := o.lifecycle.Get(spec.AgentID); err == nil && st.Lifecycle == lifecycle.StateRunning {
			_ = o.lifecycle.Pause(ctx, spec.AgentID)
		}
	}
	o.persistWorkflow(ctx, wf)
	return nil
}

// Resume moves every Paused worker agent back to Running and the workflow
// back to whatever status it held before Pause, unblocking its phase loop.
// Idempotent: resuming a workflow that isn't Paused is a no-op (spec §6
// resume_workflow is idempotent on terminal/non-paused workflows).
func (o *Orchestrator) Resume(ctx context.Context, workflowID string) error {
	wf, err := o.get(workflowID)
	if err != nil {
		return err
	}
	wf.mu.Lock()
	if wf.status != StatusPaused {
		wf.mu.Unlock()
		return nil
	}
	wf.status = wf.prePause
	wf.mu.Unlock()

	for _, spec := range wf.Specs {
		if st, err := o.lifecycle.Get(spec.AgentID); err == nil && st.Lifecycle == lifecycle.StatePaused {
			_ = o.lifecycle.Resume(ctx, spec.AgentID)
		}
	}
	o.persistWorkflow(ctx, wf)
	return nil
}

// Cancel cancels workflowID in the exact five-step order of spec §5: stop
// dispatching new steps, signal cancel cooperatively to running steps,
// force-terminate the Lifecycle Manager's agents, release bus waiters, then
// persist the final status. Idempotent: Cancel twice behaves as Cancel once.
func (o *Orchestrator) Cancel(ctx context.Context, workflowID string) error {
	wf, err := o.get(workflowID)
	if err != nil {
		return err
	}
	if wf.Status().terminal() {
		return nil
	}

	wf.setStatus(StatusCancelled) // (a) stop dispatching new steps

	wf.mu.Lock()
	cancel := wf.cancel
	wf.mu.Unlock()
	if cancel != nil {
		cancel() // (b) signal cancel cooperatively
	}

	for _, spec := range wf.Specs { // (c) force-terminate lifecycle
		_ = o.lifecycle.Terminate(ctx, spec.AgentID, true)
	}

	if o.bus != nil {
		o.bus.ReleaseAll() // (d) release bus waiters
	}

	o.persistWorkflow(ctx, wf) // (e) persist final workflow status
	o.emit(wf.WorkflowID, EventWorkflowDone, map[string]interface{}{"status": string(StatusCancelled)})
	return nil
}

// GetWorkflow returns workflowID's live record.
func (o *Orchestrator) GetWorkflow(workflowID string) (*Workflow, error) {
	return o.get(workflowID)
}

// ListActiveWorkflows returns every workflow not yet in a terminal status
// (spec §6 list_active_workflows).
func (o *Orchestrator) ListActiveWorkflows() []*Workflow {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Workflow, 0, len(o.workflows))
	for _, wf := range o.workflows {
		if !wf.Status().terminal() {
			out = append(out, wf)
		}
	}
	return out
}

func (o *Orchestrator) get(workflowID string) (*Workflow, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	return wf, nil
}

func (o *Orchestrator) persistWorkflow(ctx context.Context, wf *Workflow) {
	if o.store == nil {
		return
	}
	phases, err := json.Marshal(wf.Plan.Phases)
	if err != nil {
		o.logger.Error("failed to marshal workflow phases", "workflow_id", wf.WorkflowID, "error", err)
		return
	}
	row := store.WorkflowRow{
		WorkflowID:  wf.WorkflowID,
		ProjectType: string(wf.ProjectType),
		Description: wf.Description,
		CreatedAt:   wf.CreatedAt,
		OwnerUserID: wf.OwnerUserID,
		SessionID:   wf.SessionID,
		Status:      string(wf.Status()),
		Phases:      phases,
	}
	if err := store.WithCriticalRetry(ctx, o.logger, func() error {
		return o.store.UpsertWorkflow(ctx, row)
	}); err != nil {
		o.logger.Error("failed to persist workflow", "workflow_id", wf.WorkflowID, "error", err)
	}
}
