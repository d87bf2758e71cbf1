package research

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/planweave/planweave/internal/llm"
)

// RateLimitMessage is the user-visible degraded text substituted when the
// retry budget for a rate-limited backend is exhausted.
const RateLimitMessage = "The chat failed likely due to exceeding API's rate limit"

// Orchestrator performs one unit of research work per invocation. In multi
// mode it resolves the task at the cursor, aggregates the finding, and
// advances; in single mode it runs the explicit query. It never mutates the
// plan document directly.
type Orchestrator struct {
	client Client
}

// NewOrchestrator creates an Orchestrator backed by the given research client.
func NewOrchestrator(client Client) *Orchestrator {
	return &Orchestrator{client: client}
}

// Step executes exactly one research call against the state and stores the
// result. Call failures never propagate: they degrade to a synthetic result
// carrying the error as its summary so the conversational step can report it
// naturally next turn.
func (o *Orchestrator) Step(ctx context.Context, st *State) {
	mode := st.CurrentMode()

	var query string
	if mode == ModeMulti {
		if st.TaskIndex < len(st.Plan) {
			query = st.Plan[st.TaskIndex].Task
		}
	} else {
		query = st.Query
	}

	if query == "" {
		st.Needed = false
		return
	}

	result, err := o.client.Search(ctx, query)
	if err != nil {
		log.Printf("WARNING: research: call failed: %v", err)
		summary := fmt.Sprintf("Research failed due to an error: %v", err)
		if errors.Is(err, llm.ErrRateLimited) {
			summary = RateLimitMessage
		}
		st.Result = &Result{Summary: summary}
		st.Needed = false
		return
	}

	st.Result = result

	if mode == ModeMulti {
		st.Findings = append(st.Findings,
			fmt.Sprintf("Task: %s\nResult: %s", query, result.Summary))
		st.DiscoveredConflicts = append(st.DiscoveredConflicts, result.Conflicts...)
		st.TaskIndex++
		st.StepsThisTurn++
	}

	// The conversational step decides whether more research is needed based
	// on the plan cursor.
	st.Needed = false
}

// Progress describes multi-step execution for incremental UI updates.
type Progress struct {
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	Label       string `json:"label"`
	Tasks       []Task `json:"tasks"`
}

// ProgressOf derives a Progress report from approved, executing multi-step
// state. Returns nil when there is nothing to report.
func ProgressOf(st *State) *Progress {
	if st.CurrentMode() != ModeMulti || len(st.Plan) == 0 || !st.Approved {
		return nil
	}

	total := len(st.Plan)
	label := "Synthesizing results..."
	if st.TaskIndex < total {
		label = fmt.Sprintf("Step %d/%d: %s", st.TaskIndex+1, total, st.Plan[st.TaskIndex].Task)
	}

	current := st.TaskIndex + 1
	if current > total {
		current = total
	}

	return &Progress{
		CurrentStep: current,
		TotalSteps:  total,
		Label:       label,
		Tasks:       st.Plan,
	}
}

// StatusOf classifies multi-step state as idle, researching, or done.
func StatusOf(st *State) string {
	if st.CurrentMode() == ModeMulti && len(st.Plan) > 0 && st.Approved {
		if st.TaskIndex < len(st.Plan) {
			return "researching"
		}
		return "done"
	}
	if (st.Needed || st.ContinueAfterPause) && st.CurrentMode() == ModeMulti {
		return "researching"
	}
	return "idle"
}
