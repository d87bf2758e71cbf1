package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/planweave/planweave/internal/llm"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
	"github.com/planweave/planweave/internal/turn"
)

// Agent is the conversational step of a turn. It owns everything between a
// user message and a routed outcome: prompt assembly, the model call,
// parsing with one repair attempt, plan mutation, conflict lifecycle, and
// research routing. It is deliberately single-threaded per state; callers
// serialize turns per session.
type Agent struct {
	client llm.Client

	// chat is swapped out in tests.
	chat func(ctx context.Context, client llm.Client, messages []llm.Message) (string, error)
}

var _ turn.Converser = (*Agent)(nil)

func NewAgent(client llm.Client) *Agent {
	return &Agent{client: client, chat: llm.ChatWithRetry}
}

// Converse runs one conversational step against st.
func (a *Agent) Converse(ctx context.Context, st *turn.State) error {
	if len(st.Messages) == 0 {
		st.AppendAI(Greeting)
		st.LastAction = string(ActionNone)
		st.Research.Needed = false
		return nil
	}

	p := st.Plan

	// While an approved multi-step plan is mid-execution the step is silent:
	// it archives the step's cited sources, then either schedules the next
	// task or pauses for pacing, without a model call. The model only speaks
	// again once the plan is exhausted.
	if st.Research.CurrentMode() == research.ModeMulti && st.Research.Approved &&
		len(st.Research.Plan) > 0 && !st.Research.Exhausted() {
		if archiveSources(p, &st.Research) {
			st.NewVersionCreated = true
		}
		if st.Research.StepsThisTurn >= 1 {
			st.Research.Needed = false
			st.Research.ContinueAfterPause = true
		} else {
			st.Research.Needed = true
		}
		return nil
	}

	// Staleness first, so conflicts discovered this turn cannot be marked
	// ignored by the message that triggered their discovery.
	MarkIgnoredConflicts(p, st.LastUserMessage())

	// Only multi-step findings feed the tracker; conflicts a single-mode
	// result reports are discarded.
	newConflicts := AddDiscoveredConflicts(p, st.Research.DiscoveredConflicts)
	st.Research.DiscoveredConflicts = nil

	msgs := a.buildMessages(st, newConflicts)

	content, err := a.chat(ctx, a.client, msgs)
	degraded := false
	if err != nil {
		degraded = true
		log.Printf("WARNING: conversation: model call failed: %v", err)
		msg := "I encountered an error and could not process that. Please try again."
		if errors.Is(err, llm.ErrRateLimited) {
			msg = research.RateLimitMessage
		}
		content = degradedCommand(msg)
	}

	cmd, perr := ParseCommand(content)
	if perr != nil && !degraded {
		content, cmd, perr = a.repair(ctx, msgs, content)
	}

	bumped := false
	conflictsDirty := len(newConflicts) > 0

	// Cited sources go into the document, not back into the prompt.
	if archiveSources(p, &st.Research) {
		bumped = true
	}

	action := ActionNone
	reply := content
	if perr == nil {
		action = cmd.Action()
		reply = cmd.Reply
		if rc := cmd.Control.ResolveConflict; rc != nil {
			if ResolveConflict(p, rc.Description, rc.Resolution) {
				conflictsDirty = true
			} else {
				log.Printf("WARNING: conversation: resolve_conflict matched no unresolved conflict: %q", rc.Description)
			}
		}
	} else {
		log.Printf("WARNING: conversation: unparseable model output after repair, surfacing verbatim")
	}

	st.AppendAI(content)
	st.LastAction = string(action)

	// If research surfaced new conflicts and the reply does not acknowledge
	// them, force a dedicated announcement. One attempt only, even when the
	// surfaced reply is unparsed raw text.
	if len(newConflicts) > 0 && !strings.Contains(strings.ToLower(reply), "conflict") {
		a.announce(ctx, st, msgs, content, newConflicts)
	}
	MarkAnnouncementAttempted(p, newConflicts)

	if perr == nil && p != nil {
		if edits, eerr := cmd.Edits(); eerr != nil {
			log.Printf("WARNING: conversation: discarding malformed update: %v", eerr)
		} else if len(edits) > 0 {
			if p.Apply(edits...) {
				bumped = true
			}
		}
		if t := cmd.Control.SetPlanTitle; t != "" {
			if p.SetTitle(t) {
				bumped = true
			}
		}
	}

	if conflictsDirty {
		if SyncConflictsSection(p) {
			bumped = true
		}
	}
	if bumped {
		st.NewVersionCreated = true
	}

	a.route(st, action, cmd)
	return nil
}

// route translates the command's action into research state for the
// controller loop.
func (a *Agent) route(st *turn.State, action Action, cmd *Command) {
	switch action {
	case ActionCallResearch:
		st.Research.Mode = research.ModeSingle
		st.Research.Query = cmd.Control.ResearchQuery
		st.Research.TargetSection = cmd.Control.TargetSection
		st.Research.Needed = cmd.Control.ResearchQuery != ""

	case ActionPlanResearch:
		if len(cmd.Control.ResearchPlan) > 0 {
			MarkResolutionSearch(st.Plan, cmd.Control.ResearchPlan)
			st.Research.Propose(cmd.Control.ResearchPlan)
		}
		st.Research.Needed = false

	case ActionExecutePlan:
		if len(st.Research.Plan) == 0 || st.Research.Exhausted() {
			st.Research.Needed = false
			return
		}
		st.Research.Mode = research.ModeMulti
		st.Research.Approved = true
		if st.Research.StepsThisTurn >= 1 {
			st.Research.Needed = false
			st.Research.ContinueAfterPause = true
		} else {
			st.Research.Needed = true
		}

	default:
		st.Research.Needed = false
		if st.Research.Exhausted() {
			st.Research.ClearPlan()
		}
	}
}

// buildMessages assembles the model request: the format contract, the state
// blob, then the full conversation history.
func (a *Agent) buildMessages(st *turn.State, newConflicts []string) []llm.Message {
	msgs := make([]llm.Message, 0, len(st.Messages)+2)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: "Current state (JSON): " + buildContext(st, newConflicts)},
	)
	for _, m := range st.Messages {
		role := llm.RoleUser
		if m.Role == turn.RoleAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}

// repair makes the single correction attempt after a parse failure.
func (a *Agent) repair(ctx context.Context, msgs []llm.Message, bad string) (string, *Command, error) {
	repairMsgs := make([]llm.Message, len(msgs), len(msgs)+2)
	copy(repairMsgs, msgs)
	repairMsgs = append(repairMsgs,
		llm.Message{Role: llm.RoleAssistant, Content: bad},
		llm.Message{Role: llm.RoleSystem, Content: correctionPrompt},
	)

	fixed, err := a.chat(ctx, a.client, repairMsgs)
	if err != nil {
		log.Printf("WARNING: conversation: repair call failed: %v", err)
		return bad, nil, ErrParseFailure
	}
	cmd, perr := ParseCommand(fixed)
	if perr != nil {
		return bad, nil, perr
	}
	return fixed, cmd, nil
}

// announce makes one extra model call to tell the user about conflicts the
// main reply skipped. Failures are logged and dropped; the attempt flag is
// latched by the caller either way.
func (a *Agent) announce(ctx context.Context, st *turn.State, msgs []llm.Message, lastReply string, descs []string) {
	announceMsgs := make([]llm.Message, len(msgs), len(msgs)+2)
	copy(announceMsgs, msgs)
	announceMsgs = append(announceMsgs,
		llm.Message{Role: llm.RoleAssistant, Content: lastReply},
		llm.Message{Role: llm.RoleSystem, Content: announcementPrompt(descs)},
	)

	out, err := a.chat(ctx, a.client, announceMsgs)
	if err != nil {
		log.Printf("WARNING: conversation: conflict announcement failed: %v", err)
		return
	}
	if cmd, perr := ParseCommand(out); perr == nil && cmd.Reply != "" {
		st.AppendAI(out)
	}
}

// degradedCommand wraps an error message as a valid command so every
// downstream consumer sees the same shape.
func degradedCommand(msg string) string {
	data, _ := json.Marshal(Command{
		Reply:   msg,
		Control: Control{Action: ActionNone},
	})
	return string(data)
}

// archiveSources appends the pending result's cited sources to the document
// footer and clears them so the next result cannot orphan them. Runs on every
// conversational visit, including the silent mid-plan ones, so each step of a
// multi-step plan keeps its citations.
func archiveSources(p *plan.Plan, rs *research.State) bool {
	if p == nil || rs.Result == nil || len(rs.Result.Sources) == 0 {
		return false
	}
	bumped := p.Apply(plan.Edit{
		Section: plan.SectionResearchSources,
		Content: sourceItems(rs.Result.Sources),
		Mode:    plan.ModeAppend,
	})
	rs.Result.Sources = nil
	return bumped
}

func sourceItems(sources []research.Source) []any {
	items := make([]any, 0, len(sources))
	for _, s := range sources {
		item := map[string]any{"title": s.Title, "url": s.URL}
		if s.Snippet != "" {
			item["snippet"] = s.Snippet
		}
		items = append(items, item)
	}
	return items
}
