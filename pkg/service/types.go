package service

import "time"

// CreateWorkflowRequest is create_workflow's input (spec §6).
type CreateWorkflowRequest struct {
	UserText           string
	SessionID          string
	UserID             string
	Hints              map[string]interface{}
	ContinueOnFailure  bool
	AutoApplyEvolution bool
}

// StepSummary is one step's identity within a create_workflow response.
type StepSummary struct {
	StepID  string `json:"step_id"`
	AgentID string `json:"agent_id"`
	Phase   string `json:"phase"`
}

// CreateWorkflowResponse is create_workflow's exact response shape (spec §6:
// workflow_id, name, project_type, steps[]).
type CreateWorkflowResponse struct {
	WorkflowID  string        `json:"workflow_id"`
	Name        string        `json:"name"`
	ProjectType string        `json:"project_type"`
	Steps       []StepSummary `json:"steps"`
}

// StepResultDTO is one step's terminal outcome (spec §6 execute_workflow /
// get_workflow_status).
type StepResultDTO struct {
	StepID  string `json:"step_id"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// ExecuteWorkflowResponse is execute_workflow's exact response shape (spec
// §6: status, steps_completed, results[]).
type ExecuteWorkflowResponse struct {
	Status         string          `json:"status"`
	StepsCompleted int             `json:"steps_completed"`
	Results        []StepResultDTO `json:"results"`
}

// AgentStatusDTO is one agent's entry in get_workflow_status.agents (spec
// §6: id -> {name, state, status}).
type AgentStatusDTO struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// GetWorkflowStatusResponse is get_workflow_status's exact response shape
// (spec §6: progress "k/n", percentage, current_phase, agents{}, steps[]).
type GetWorkflowStatusResponse struct {
	Progress     string                    `json:"progress"`
	Percentage   float64                   `json:"percentage"`
	CurrentPhase string                    `json:"current_phase"`
	Status       string                    `json:"status"`
	Agents       map[string]AgentStatusDTO `json:"agents"`
	Steps        []StepResultDTO           `json:"steps"`
}

// WorkflowSummary is one entry of list_active_workflows.workflows[] (spec
// §6).
type WorkflowSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProjectType  string `json:"project_type"`
	Progress     string `json:"progress"`
	CurrentPhase string `json:"current_phase"`
}

// ListActiveWorkflowsResponse is list_active_workflows's exact response
// shape (spec §6).
type ListActiveWorkflowsResponse struct {
	Workflows []WorkflowSummary `json:"workflows"`
}

// ControlResponse is the shared shape of pause_workflow, resume_workflow,
// and cancel_workflow (spec §6: status, workflow_id).
type ControlResponse struct {
	Status     string `json:"status"`
	WorkflowID string `json:"workflow_id"`
}

// StreamUpdate is one item of stream_workflow_updates (spec §6: update_id,
// type, message, data, timestamp).
type StreamUpdate struct {
	UpdateID  string                 `json:"update_id"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
