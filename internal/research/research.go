package research

import (
	"context"
	"encoding/json"
)

// Source is one cited reference in a research result.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Result is the structured outcome of one web-research call.
type Result struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Sources   []Source `json:"sources"`
	Conflicts []string `json:"conflicts"`
}

// Client is the interface for the web-research backend. Search takes a single
// natural-language task string.
type Client interface {
	Search(ctx context.Context, query string) (*Result, error)
}

// Mode selects single-step or multi-step research.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Task is one step of a proposed multi-step research plan.
type Task struct {
	Task string `json:"task"`
}

// UnmarshalJSON accepts both the object form {"task": "..."} and a bare
// string, since models emit either.
func (t *Task) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Task = s
		return nil
	}
	var obj struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Task = obj.Task
	return nil
}

// State is the research-side slice of a session's turn state: the proposed
// plan, execution cursor, aggregated findings, and pacing flags.
type State struct {
	Mode                Mode     `json:"mode,omitempty"`
	Plan                []Task   `json:"plan,omitempty"`
	Approved            bool     `json:"approved,omitempty"`
	TaskIndex           int      `json:"taskIndex,omitempty"`
	Findings            []string `json:"findings,omitempty"`
	DiscoveredConflicts []string `json:"discoveredConflicts,omitempty"`

	// Per-turn pacing. StepsThisTurn is reset by the front door on every
	// external request; ContinueAfterPause tells the caller to re-invoke.
	StepsThisTurn      int  `json:"-"`
	ContinueAfterPause bool `json:"-"`

	// Routing for the next research visit.
	Needed        bool    `json:"-"`
	Query         string  `json:"query,omitempty"`
	TargetSection string  `json:"targetSection,omitempty"`
	Result        *Result `json:"result,omitempty"`
}

// CurrentMode returns the effective mode, defaulting to single.
func (s *State) CurrentMode() Mode {
	if s.Mode == "" {
		return ModeSingle
	}
	return s.Mode
}

// Propose installs a new multi-step plan: the cursor and findings reset and
// execution stays blocked until an explicit approval.
func (s *State) Propose(tasks []Task) {
	s.Plan = tasks
	s.TaskIndex = 0
	s.Findings = nil
	s.Mode = ModeMulti
	s.Approved = false
}

// Exhausted reports whether every task of the current plan has executed.
func (s *State) Exhausted() bool {
	return len(s.Plan) > 0 && s.TaskIndex >= len(s.Plan)
}

// ClearPlan resets all multi-step state so it never leaks into unrelated
// future conversations on the same session.
func (s *State) ClearPlan() {
	s.Plan = nil
	s.TaskIndex = 0
	s.Approved = false
	s.Mode = ModeSingle
	s.Findings = nil
}
