package turn

import (
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
)

// Message roles as stored in session history.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Message is one entry of a session's conversation history. AI messages keep
// the raw model output (JSON) so the model sees its own correct format in
// later turns; the front door extracts the display text.
type Message struct {
	Role             string             `json:"role"`
	Content          string             `json:"content"`
	ResearchProgress *research.Progress `json:"researchProgress,omitempty"`
}

// State is the full per-session state: the conversation history, the plan
// under construction, and the research-side state. It is created fresh per
// session and persists across requests via the session store; the per-turn
// pacing flags inside Research are reset by the front door on every request.
type State struct {
	UserID     string         `json:"userId"`
	Messages   []Message      `json:"messages"`
	Plan       *plan.Plan     `json:"plan,omitempty"`
	LastAction string         `json:"lastAction,omitempty"`
	Research   research.State `json:"research"`

	// NewVersionCreated reports whether the last turn mutated the plan.
	NewVersionCreated bool `json:"-"`
}

// AppendHuman appends a user message to history.
func (s *State) AppendHuman(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleHuman, Content: content})
}

// AppendAI appends a raw assistant message to history.
func (s *State) AppendAI(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAI, Content: content})
}

// LastUserMessage returns the most recent human message content, or "".
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAIMessage returns the most recent assistant message content, or "".
func (s *State) LastAIMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAI {
			return s.Messages[i].Content
		}
	}
	return ""
}
