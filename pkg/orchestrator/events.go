package orchestrator

import (
	"github.com/brindle-systems/swarm/pkg/bus"
)

// EventType tags a streamed workflow update (spec §4.6, §6
// stream_workflow_updates).
type EventType string

const (
	EventPhaseStarted   EventType = "phase_started"
	EventStepStarted    EventType = "step_started"
	EventStepCompleted  EventType = "step_completed"
	EventStepFailed     EventType = "step_failed"
	EventPhaseCompleted EventType = "phase_completed"
	EventPhaseFailed    EventType = "phase_failed"
	EventWorkflowDone   EventType = "workflow_completed"
)

// streamRecipient is the pseudo-agent id the bus routes a workflow's events
// to; the Workflow Service registers an inbox under this id while a stream
// is open, and concurrent streams of one workflow share that single inbox
// (spec §6 stream_workflow_updates).
func streamRecipient(workflowID string) string {
	return "stream:" + workflowID
}

func (o *Orchestrator) emit(workflowID string, evt EventType, data map[string]interface{}) {
	if o.bus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["event_type"] = string(evt)
	data["workflow_id"] = workflowID
	_, _ = o.bus.Send(bus.Message{
		ID:        o.idgen.NewID(),
		Sender:    "orchestrator",
		Recipient: streamRecipient(workflowID),
		Type:      bus.TypeEvent,
		Context:   data,
	})
}
