package conversation

import (
	"encoding/json"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
	"github.com/planweave/planweave/internal/turn"
)

// contextPayload is the per-turn context blob injected as a system message:
// the current plan, the latest research result (sources stripped, they are
// injected into the document instead), conflict state, and multi-step plan
// status.
type contextPayload struct {
	Plan               any              `json:"plan"`
	ResearchResult     *research.Result `json:"research_result,omitempty"`
	ResearchMode       research.Mode    `json:"research_mode"`
	Conflicts          conflictContext  `json:"conflicts"`
	ResearchPlanStatus *planStatus      `json:"research_plan_status,omitempty"`
}

type conflictContext struct {
	Unresolved  []string `json:"unresolved"`
	NewThisTurn []string `json:"new_this_turn"`
}

type planStatus struct {
	Tasks          []research.Task `json:"tasks"`
	Approved       bool            `json:"approved"`
	NextTaskIndex  int             `json:"next_task_index"`
	TasksRemaining int             `json:"tasks_remaining"`
	Findings       []string        `json:"findings,omitempty"`
}

// buildContext renders the context blob for the model. newConflicts are the
// descriptions first registered this turn.
func buildContext(st *turn.State, newConflicts []string) string {
	payload := contextPayload{
		ResearchMode: st.Research.CurrentMode(),
		Conflicts:    conflictContext{Unresolved: []string{}, NewThisTurn: newConflicts},
	}
	if newConflicts == nil {
		payload.Conflicts.NewThisTurn = []string{}
	}

	if st.Plan != nil {
		payload.Plan = st.Plan.Snapshot()
		for _, c := range st.Plan.Conflicts {
			if c.Status != plan.ConflictResolved {
				payload.Conflicts.Unresolved = append(payload.Conflicts.Unresolved, c.Description)
			}
		}
	}

	if r := st.Research.Result; r != nil {
		trimmed := *r
		trimmed.Sources = nil
		payload.ResearchResult = &trimmed
	}

	if len(st.Research.Plan) > 0 {
		remaining := len(st.Research.Plan) - st.Research.TaskIndex
		if remaining < 0 {
			remaining = 0
		}
		payload.ResearchPlanStatus = &planStatus{
			Tasks:          st.Research.Plan,
			Approved:       st.Research.Approved,
			NextTaskIndex:  st.Research.TaskIndex,
			TasksRemaining: remaining,
			Findings:       st.Research.Findings,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}
