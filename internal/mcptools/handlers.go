package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/planweave/planweave/internal/conversation"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/turn"
)

// PlanService holds the session store and turn controller used by MCP tool
// handlers. It drives the same turn loop as the HTTP front door.
type PlanService struct {
	sessions   *session.Store
	controller *turn.Controller
}

// NewPlanService creates a PlanService over the given store and controller.
func NewPlanService(sessions *session.Store, controller *turn.Controller) *PlanService {
	return &PlanService{sessions: sessions, controller: controller}
}

// ChatTurn processes one turn against a session, creating the session and
// its plan on first use. Multi-step research is paced at one step per call;
// while the returned status is "researching" the caller re-invokes with the
// same session id (message may be empty) to run the next step.
func (s *PlanService) ChatTurn(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatTurnInput,
) (*mcp.CallToolResult, ChatTurnOutput, error) {
	if input.Message == "" && input.SessionID == "" {
		return nil, ChatTurnOutput{}, fmt.Errorf("message is required")
	}
	userID := input.UserID
	if userID == "" {
		userID = "anonymous"
	}
	sid := input.SessionID
	if sid == "" {
		sid = plan.NewID()
	}

	var runErr error
	err := s.sessions.Update(sid, func(st *turn.State) {
		if st.UserID == "" {
			st.UserID = userID
		}
		if st.Plan == nil {
			st.Plan = plan.New(userID, input.Company, input.Goal)
		}
		st.NewVersionCreated = false
		st.Research.StepsThisTurn = 0
		st.Research.ContinueAfterPause = false
		if input.Message != "" {
			st.AppendHuman(input.Message)
		}

		runErr = s.controller.Run(ctx, st)
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		return nil, ChatTurnOutput{}, fmt.Errorf("chat turn: %w", err)
	}

	st, err := s.sessions.Get(sid)
	if err != nil {
		return nil, ChatTurnOutput{}, err
	}

	out := ChatTurnOutput{
		SessionID:         sid,
		Reply:             conversation.CleanReply(st.LastAIMessage()),
		ResearchStatus:    research.StatusOf(&st.Research),
		NewVersionCreated: st.NewVersionCreated,
	}
	if st.Plan != nil {
		out.PlanID = st.Plan.ID
		out.PlanVersion = st.Plan.Version
	}
	if len(st.Research.Plan) > 0 && !st.Research.Approved {
		out.ResearchPlan = st.Research.Plan
	}
	return nil, out, nil
}

// GetPlan returns the plan document both structured and rendered.
func (s *PlanService) GetPlan(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetPlanInput,
) (*mcp.CallToolResult, GetPlanOutput, error) {
	if input.PlanID == "" {
		return nil, GetPlanOutput{}, fmt.Errorf("planId is required")
	}
	_, st, err := s.sessions.FindByPlanID(input.PlanID)
	if err != nil {
		return nil, GetPlanOutput{}, err
	}
	return nil, GetPlanOutput{
		Plan:     st.Plan.Snapshot(),
		Markdown: st.Plan.Render(),
	}, nil
}

// DiffPlan compares two stored versions of a plan.
func (s *PlanService) DiffPlan(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DiffPlanInput,
) (*mcp.CallToolResult, DiffPlanOutput, error) {
	if input.PlanID == "" {
		return nil, DiffPlanOutput{}, fmt.Errorf("planId is required")
	}
	_, st, err := s.sessions.FindByPlanID(input.PlanID)
	if err != nil {
		return nil, DiffPlanOutput{}, err
	}
	lines, err := st.Plan.DiffVersions(input.From, input.To)
	if err != nil {
		return nil, DiffPlanOutput{}, err
	}
	return nil, DiffPlanOutput{Lines: lines}, nil
}
