package turn

import (
	"context"

	"github.com/planweave/planweave/internal/research"
)

// Converser runs one conversational step: it reads the history and plan,
// calls the model, applies any plan mutation, and decides whether research
// is needed before the turn can complete.
type Converser interface {
	Converse(ctx context.Context, st *State) error
}

// Researcher executes one research step against the research state.
type Researcher interface {
	Step(ctx context.Context, st *research.State)
}

// Controller drives a single turn to completion. A turn alternates between
// conversing and researching until the converser no longer requests
// research. Research pacing (one multi-step task per request) is enforced by
// the converser, so the loop always terminates.
type Controller struct {
	conv Converser
	res  Researcher
}

func NewController(conv Converser, res Researcher) *Controller {
	return &Controller{conv: conv, res: res}
}

// Run processes one turn against st. The caller is expected to have appended
// the incoming user message to st.Messages and reset the per-turn research
// counters before calling.
func (c *Controller) Run(ctx context.Context, st *State) error {
	for {
		if err := c.conv.Converse(ctx, st); err != nil {
			return err
		}
		if !st.Research.Needed {
			return nil
		}
		c.res.Step(ctx, &st.Research)
	}
}
