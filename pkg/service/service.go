// Package service implements the Workflow Service of spec §6: a
// transport-agnostic facade over the Orchestrator that shapes every
// response into the exact fields callers (HTTP, CLI, tests) depend on.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brindle-systems/swarm/pkg/bus"
	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/lifecycle"
	"github.com/brindle-systems/swarm/pkg/orchestrator"
	"github.com/brindle-systems/swarm/pkg/poolmaker"
)

// defaultStreamIdleHeartbeat is how long StreamWorkflowUpdates waits with no
// event before emitting a synthetic heartbeat update (spec §6
// stream_workflow_updates).
const defaultStreamIdleHeartbeat = 30 * time.Second

// Config tunes the Service; zero values take the spec defaults.
type Config struct {
	StreamIdleHeartbeat time.Duration
}

func (c Config) withDefaults() Config {
	if c.StreamIdleHeartbeat <= 0 {
		c.StreamIdleHeartbeat = defaultStreamIdleHeartbeat
	}
	return c
}

// Service is the Workflow Service of spec §6.
type Service struct {
	cfg       Config
	orch      *orchestrator.Orchestrator
	templates *config.TemplateRegistry
	lifecycle *lifecycle.Manager
	bus       *bus.Bus
	clk       clock.Clock
	idgen     clock.IDGen
	logger    *slog.Logger
}

// New constructs a Service.
func New(cfg Config, orch *orchestrator.Orchestrator, templates *config.TemplateRegistry, lc *lifecycle.Manager, b *bus.Bus, clk clock.Clock, idgen clock.IDGen, logger *slog.Logger) *Service {
	return &Service{cfg: cfg.withDefaults(), orch: orch, templates: templates, lifecycle: lc, bus: b, clk: clk, idgen: idgen, logger: logger}
}

// CreateWorkflow implements spec §6 create_workflow.
func (s *Service) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*CreateWorkflowResponse, error) {
	if req.UserText == "" {
		return nil, fmt.Errorf("%w: user_text is required", ErrInvalidRequest)
	}

	wf, err := s.orch.CreateWorkflow(ctx, req.UserText, req.SessionID, req.UserID, orchestrator.CreateOptions{
		Hints:              req.Hints,
		ContinueOnFailure:  req.ContinueOnFailure,
		AutoApplyEvolution: req.AutoApplyEvolution,
	})
	if err != nil {
		return nil, err
	}

	var steps []StepSummary
	for _, phase := range wf.Plan.Phases {
		for _, st := range phase.Steps {
			steps = append(steps, StepSummary{StepID: st.StepID, AgentID: st.AgentID, Phase: phase.Name})
		}
	}

	return &CreateWorkflowResponse{
		WorkflowID:  wf.WorkflowID,
		Name:        wf.Description,
		ProjectType: string(wf.ProjectType),
		Steps:       steps,
	}, nil
}

// ExecuteWorkflow implements spec §6 execute_workflow.
func (s *Service) ExecuteWorkflow(ctx context.Context, workflowID string) (*ExecuteWorkflowResponse, error) {
	report, err := s.orch.ExecuteWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return &ExecuteWorkflowResponse{
		Status:         string(report.Status),
		StepsCompleted: report.StepsCompleted,
		Results:        toStepResultDTOs(report.Results),
	}, nil
}

// GetWorkflowStatus implements spec §6 get_workflow_status.
func (s *Service) GetWorkflowStatus(workflowID string) (*GetWorkflowStatusResponse, error) {
	wf, err := s.orch.GetWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	completed, total, currentPhase, steps := s.summarizePlan(wf.Plan)

	agents := make(map[string]AgentStatusDTO, len(wf.Specs))
	for _, spec := range wf.Specs {
		agents[spec.AgentID] = s.agentStatus(spec)
	}

	percentage := 0.0
	if total > 0 {
		percentage = 100 * float64(completed) / float64(total)
	}

	return &GetWorkflowStatusResponse{
		Progress:     fmt.Sprintf("%d/%d", completed, total),
		Percentage:   percentage,
		CurrentPhase: currentPhase,
		Status:       string(wf.Status()),
		Agents:       agents,
		Steps:        steps,
	}, nil
}

// ListActiveWorkflows implements spec §6 list_active_workflows. An empty
// userID returns every active workflow; a non-empty one filters to that
// workflow's owner.
func (s *Service) ListActiveWorkflows(userID string) *ListActiveWorkflowsResponse {
	active := s.orch.ListActiveWorkflows()
	out := make([]WorkflowSummary, 0, len(active))
	for _, wf := range active {
		if userID != "" && wf.OwnerUserID != userID {
			continue
		}
		completed, total, currentPhase, _ := s.summarizePlan(wf.Plan)
		out = append(out, WorkflowSummary{
			ID:           wf.WorkflowID,
			Name:         wf.Description,
			ProjectType:  string(wf.ProjectType),
			Progress:     fmt.Sprintf("%d/%d", completed, total),
			CurrentPhase: currentPhase,
		})
	}
	return &ListActiveWorkflowsResponse{Workflows: out}
}

// PauseWorkflow implements spec §6 pause_workflow.
func (s *Service) PauseWorkflow(ctx context.Context, workflowID string) (*ControlResponse, error) {
	if err := s.orch.Pause(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.controlResponse(workflowID)
}

// ResumeWorkflow implements spec §6 resume_workflow.
func (s *Service) ResumeWorkflow(ctx context.Context, workflowID string) (*ControlResponse, error) {
	if err := s.orch.Resume(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.controlResponse(workflowID)
}

// CancelWorkflow implements spec §6 cancel_workflow. Idempotent: cancelling
// an already-terminal workflow succeeds without error (spec §6, §5).
func (s *Service) CancelWorkflow(ctx context.Context, workflowID string) (*ControlResponse, error) {
	if err := s.orch.Cancel(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.controlResponse(workflowID)
}

func (s *Service) controlResponse(workflowID string) (*ControlResponse, error) {
	wf, err := s.orch.GetWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	return &ControlResponse{Status: string(wf.Status()), WorkflowID: workflowID}, nil
}

// StreamWorkflowUpdates implements spec §6 stream_workflow_updates: it
// registers a dedicated bus inbox for workflowID's event stream, forwards
// every event to sink, and emits a synthetic heartbeat whenever the stream
// sits idle past Config.StreamIdleHeartbeat. It returns when ctx is done or sink
// returns an error.
func (s *Service) StreamWorkflowUpdates(ctx context.Context, workflowID string, sink func(StreamUpdate) error) error {
	if _, err := s.orch.GetWorkflow(workflowID); err != nil {
		return err
	}

	subscriberID := "stream:" + workflowID
	s.bus.Register(subscriberID, nil)
	defer s.bus.Unregister(subscriberID)

	inbox, _ := s.bus.Inbox(subscriberID)
	timer := time.NewTimer(s.cfg.StreamIdleHeartbeat)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-inbox:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(s.cfg.StreamIdleHeartbeat)
			update := StreamUpdate{
				UpdateID:  s.idgen.NewID(),
				Type:      eventTypeFromContext(msg.Context),
				Message:   fmt.Sprintf("workflow %s event", workflowID),
				Data:      msg.Context,
				Timestamp: s.clk.Now(),
			}
			if err := sink(update); err != nil {
				return err
			}
		case <-timer.C:
			timer.Reset(s.cfg.StreamIdleHeartbeat)
			if err := sink(StreamUpdate{
				UpdateID:  s.idgen.NewID(),
				Type:      "heartbeat",
				Message:   "no activity",
				Timestamp: s.clk.Now(),
			}); err != nil {
				return err
			}
		}
	}
}

func eventTypeFromContext(data map[string]interface{}) string {
	if v, ok := data["event_type"].(string); ok {
		return v
	}
	return "event"
}

func (s *Service) summarizePlan(plan *poolmaker.ExecutionPlan) (completed, total int, currentPhase string, steps []StepResultDTO) {
	for _, phase := range plan.Phases {
		if phase.Status == poolmaker.PhaseRunning && currentPhase == "" {
			currentPhase = phase.Name
		}
		for _, st := range phase.Steps {
			total++
			if st.Status == poolmaker.StepCompleted {
				completed++
			}
			steps = append(steps, StepResultDTO{StepID: st.StepID, AgentID: st.AgentID, Status: string(st.Status), Error: st.Error})
		}
	}
	if currentPhase == "" && len(plan.Phases) > 0 {
		currentPhase = plan.Phases[len(plan.Phases)-1].Name
	}
	return completed, total, currentPhase, steps
}

func (s *Service) agentStatus(spec *poolmaker.AgentSpecification) AgentStatusDTO {
	name := spec.TemplateID
	if tmpl, err := s.templates.Get(spec.TemplateID); err == nil {
		name = tmpl.DisplayName
	}
	dto := AgentStatusDTO{Name: name, State: "unknown"}
	if a, err := s.lifecycle.Get(spec.AgentID); err == nil {
		dto.State = string(a.Lifecycle)
		dto.Status = fmt.Sprintf("executions=%d errors=%d", a.ExecutionCount, a.ErrorCount)
	}
	return dto
}

// Stats reports the informational counts behind the CLI/demo health-check
// surface (spec §6: {status, active_workflows, active_agents}).
type Stats struct {
	ActiveWorkflows int
	ActiveAgents    int
}

// Stats returns the current active workflow and agent counts.
func (s *Service) Stats() Stats {
	return Stats{
		ActiveWorkflows: len(s.orch.ListActiveWorkflows()),
		ActiveAgents:    s.lifecycle.ActiveCount(),
	}
}

func toStepResultDTOs(results []orchestrator.StepResult) []StepResultDTO {
	out := make([]StepResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, StepResultDTO{StepID: r.StepID, AgentID: r.AgentID, Status: string(r.Status), Error: r.Error})
	}
	return out
}
