package poolmaker

import (
	"sort"

	"github.com/brindle-systems/swarm/pkg/clock"
)

type phaseDef struct {
	name   string
	kind   PhaseKind
	groups []group
}

// planPipeline is the fixed phase pipeline of spec §4.2.1. Phases whose
// member group set yields zero specs are omitted from the built plan.
var planPipeline = []phaseDef{
	{name: "Setup & Infrastructure", kind: PhaseParallel, groups: []group{groupDatabase, groupDevops}},
	{name: "Backend Development", kind: PhaseSequential, groups: []group{groupBackend}},
	{name: "Frontend Development", kind: PhaseSequential, groups: []group{groupFrontend}},
	{name: "Testing & Documentation", kind: PhaseParallel, groups: []group{groupQA, groupWriter}},
}

// buildExecutionPlan lays specs into the fixed pipeline, tie-breaking
// intra-phase ordering by template_id then agent_id (spec §4.2.1).
func buildExecutionPlan(idgen clock.IDGen, specs []*AgentSpecification) *ExecutionPlan {
	plan := &ExecutionPlan{}
	for _, pd := range planPipeline {
		members := make([]*AgentSpecification, 0)
		for _, s := range specs {
			g := groupOf(s.TemplateID)
			for _, want := range pd.groups {
				if g == want {
					members = append(members, s)
					break
				}
			}
		}
		if len(members) == 0 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].TemplateID != members[j].TemplateID {
				return members[i].TemplateID < members[j].TemplateID
			}
			return members[i].AgentID < members[j].AgentID
		})

		phase := &Phase{
			PhaseID: idgen.NewID(),
			Name:    pd.name,
			Kind:    pd.kind,
			Status:  PhasePending,
		}
		for _, m := range members {
			phase.Steps = append(phase.Steps, &Step{
				StepID:  idgen.NewID(),
				AgentID: m.AgentID,
				PhaseID: phase.PhaseID,
				Status:  StepPending,
			})
		}
		plan.Phases = append(plan.Phases, phase)
	}
	return plan
}
