package conversation

import (
	"fmt"
	"strings"
)

// Greeting opens every new session before any plan exists.
const Greeting = "Hello! I'm your account planning assistant. Tell me the company and the goal you'd like to plan for, and we'll build the plan together."

const systemPrompt = `You are an account planning assistant. You help the user build and refine a structured account plan, section by section, grounding it in web research when asked.

Respond with a single JSON object and nothing else. The object has exactly these keys:

{
  "reply": "<markdown text shown to the user>",
  "control": {
    "action": "NONE" | "CALL_RESEARCH" | "PLAN_RESEARCH" | "EXECUTE_PLAN",
    "research_query": "<query, only with CALL_RESEARCH>",
    "research_plan": [{"task": "<step>"}, ...],
    "target_section": "<section the research feeds, optional>",
    "set_plan_title": "<new plan title, optional>",
    "resolve_conflict": {"description": "<exact tracked description>", "resolution": "<which fact wins and why>"}
  },
  "update": {"section": "<title>", "content": <string, list, or object>, "mode": "replace" | "append" | "merge" | "delete" | "move"} or a list of such objects, or null
}

Rules:
- "reply" is always present and always addressed to the user.
- Use CALL_RESEARCH for a single factual lookup; put the query in research_query.
- For a broad request, use PLAN_RESEARCH to propose a short numbered plan of research steps in research_plan and ask for approval in the reply. Do not execute it.
- Only after the user approves a proposed plan, use EXECUTE_PLAN.
- Fold research findings into the plan with "update" edits. Never invent facts.
- When the context lists unresolved conflicts, surface them to the user and offer to resolve them. To record a user's decision, fill resolve_conflict with the exact tracked description.
- "update" with mode "append" extends a section, "merge" overlays object keys, "delete" removes a section or sub-key, "move" reorders (content is the target index).
- Dot paths in "section" (e.g. "Financials.Revenue") address sub-keys inside a section.
- Keep replies concise and concrete.`

// correctionPrompt is sent once after a parse failure, together with the
// malformed output, to ask the model to restate as a valid command.
const correctionPrompt = `Your previous message was not valid JSON in the required format. Restate it as a single JSON object with the keys "reply", "control", and "update" exactly as specified. Output only the JSON object.`

// announcementPrompt asks the model to tell the user about conflicts its
// last reply failed to mention.
func announcementPrompt(descriptions []string) string {
	var b strings.Builder
	b.WriteString("The research you just completed uncovered conflicting information that your reply did not mention. Announce the following conflicts to the user now, and ask how they want to proceed (for example a follow-up search to settle them):\n")
	for i, desc := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, desc)
	}
	b.WriteString("Respond in the usual JSON format.")
	return b.String()
}
