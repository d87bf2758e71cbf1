package mcptools

import (
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ChatTurnInput is the input for the chat_turn MCP tool.
type ChatTurnInput struct {
	Message   string `json:"message,omitempty" jsonschema:"the user message to process; may be empty when polling an in-progress research plan"`
	SessionID string `json:"sessionId,omitempty" jsonschema:"session to continue; a new one is created when omitted"`
	UserID    string `json:"userId,omitempty" jsonschema:"owner of the session (default: anonymous)"`
	Company   string `json:"company,omitempty" jsonschema:"company the plan targets, used when the session is new"`
	Goal      string `json:"goal,omitempty" jsonschema:"planning goal, used when the session is new"`
}

// ChatTurnOutput is the result of the chat_turn MCP tool.
type ChatTurnOutput struct {
	SessionID         string          `json:"sessionId"`
	Reply             string          `json:"reply"`
	ResearchStatus    string          `json:"researchStatus"`
	NewVersionCreated bool            `json:"newVersionCreated"`
	PlanID            string          `json:"planId,omitempty"`
	PlanVersion       int             `json:"planVersion,omitempty"`
	ResearchPlan      []research.Task `json:"researchPlan,omitempty"`
}

// GetPlanInput is the input for the get_plan MCP tool.
type GetPlanInput struct {
	PlanID string `json:"planId" jsonschema:"the plan to fetch"`
}

// GetPlanOutput is the result of the get_plan MCP tool.
type GetPlanOutput struct {
	Plan     plan.Plan `json:"plan"`
	Markdown string    `json:"markdown"`
}

// DiffPlanInput is the input for the diff_plan MCP tool.
type DiffPlanInput struct {
	PlanID string `json:"planId" jsonschema:"the plan whose versions to compare"`
	From   int    `json:"from" jsonschema:"base version number"`
	To     int    `json:"to" jsonschema:"target version number"`
}

// DiffPlanOutput is the result of the diff_plan MCP tool.
type DiffPlanOutput struct {
	Lines []plan.DiffLine `json:"lines"`
}
