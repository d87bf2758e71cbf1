package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
)

// Action is the routing verb of a parsed command.
type Action string

const (
	ActionNone         Action = "NONE"
	ActionCallResearch Action = "CALL_RESEARCH"
	ActionPlanResearch Action = "PLAN_RESEARCH"
	ActionExecutePlan  Action = "EXECUTE_PLAN"
)

// Resolution marks one tracked conflict as resolved. Description must match
// the tracked conflict exactly.
type Resolution struct {
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
}

// Control carries everything in a command besides the reply and the edit:
// research routing, plan metadata, and conflict resolution.
type Control struct {
	Action          Action          `json:"action"`
	ResearchQuery   string          `json:"research_query,omitempty"`
	ResearchPlan    []research.Task `json:"research_plan,omitempty"`
	TargetSection   string          `json:"target_section,omitempty"`
	SetPlanTitle    string          `json:"set_plan_title,omitempty"`
	ResolveConflict *Resolution     `json:"resolve_conflict,omitempty"`
}

// Command is the structured contract every assistant turn must satisfy:
// user-facing prose in Reply, routing in Control, and an optional plan edit
// in Update (a single edit object or an array of them).
type Command struct {
	Reply   string          `json:"reply"`
	Control Control         `json:"control"`
	Update  json.RawMessage `json:"update,omitempty"`
}

// Action returns the effective action, defaulting to NONE.
func (c *Command) Action() Action {
	if c.Control.Action == "" {
		return ActionNone
	}
	return c.Control.Action
}

// Edits decodes the update payload into zero or more plan edits. A null or
// absent update yields nil.
func (c *Command) Edits() ([]plan.Edit, error) {
	raw := bytes.TrimSpace(c.Update)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var edits []plan.Edit
		if err := json.Unmarshal(raw, &edits); err != nil {
			return nil, fmt.Errorf("conversation: decode update list: %w", err)
		}
		return edits, nil
	}
	var edit plan.Edit
	if err := json.Unmarshal(raw, &edit); err != nil {
		return nil, fmt.Errorf("conversation: decode update: %w", err)
	}
	return []plan.Edit{edit}, nil
}
