package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/llm"
)

type fakeClient struct {
	results map[string]*Result
	err     error
	queries []string
}

func (f *fakeClient) Search(_ context.Context, query string) (*Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &Result{Summary: "result for " + query}, nil
}

func TestStep_SingleMode(t *testing.T) {
	fc := &fakeClient{}
	o := NewOrchestrator(fc)
	st := &State{Query: "acme revenue", Needed: true}

	o.Step(context.Background(), st)

	require.NotNil(t, st.Result)
	assert.Equal(t, "result for acme revenue", st.Result.Summary)
	assert.False(t, st.Needed)
	assert.Equal(t, 0, st.StepsThisTurn, "single mode does not count as a plan step")
}

func TestStep_MultiModeAdvancesCursor(t *testing.T) {
	fc := &fakeClient{results: map[string]*Result{
		"task one": {Summary: "s1", Conflicts: []string{"conflict A"}},
	}}
	o := NewOrchestrator(fc)
	st := &State{}
	st.Propose([]Task{{Task: "task one"}, {Task: "task two"}})
	st.Approved = true

	o.Step(context.Background(), st)

	assert.Equal(t, 1, st.TaskIndex)
	assert.Equal(t, 1, st.StepsThisTurn)
	require.Len(t, st.Findings, 1)
	assert.Contains(t, st.Findings[0], "Task: task one")
	assert.Contains(t, st.Findings[0], "Result: s1")
	assert.Equal(t, []string{"conflict A"}, st.DiscoveredConflicts)
	assert.False(t, st.Exhausted())

	o.Step(context.Background(), st)
	assert.Equal(t, 2, st.TaskIndex)
	assert.True(t, st.Exhausted())
}

func TestStep_ErrorDegradesToSyntheticResult(t *testing.T) {
	fc := &fakeClient{err: errors.New("backend exploded")}
	o := NewOrchestrator(fc)
	st := &State{Query: "q", Needed: true}

	o.Step(context.Background(), st)

	require.NotNil(t, st.Result)
	assert.Contains(t, st.Result.Summary, "Research failed due to an error")
	assert.False(t, st.Needed)
}

func TestStep_RateLimitUsesFixedMessage(t *testing.T) {
	fc := &fakeClient{err: llm.ErrRateLimited}
	o := NewOrchestrator(fc)
	st := &State{Query: "q", Needed: true}

	o.Step(context.Background(), st)

	require.NotNil(t, st.Result)
	assert.Equal(t, RateLimitMessage, st.Result.Summary)
}

func TestStep_EmptyQueryIsNoOp(t *testing.T) {
	fc := &fakeClient{}
	o := NewOrchestrator(fc)
	st := &State{Needed: true}

	o.Step(context.Background(), st)

	assert.Empty(t, fc.queries)
	assert.False(t, st.Needed)
	assert.Nil(t, st.Result)
}

func TestProgressOf(t *testing.T) {
	st := &State{}
	assert.Nil(t, ProgressOf(st), "no plan means no progress")

	st.Propose([]Task{{Task: "t1"}, {Task: "t2"}})
	assert.Nil(t, ProgressOf(st), "unapproved plans report nothing")

	st.Approved = true
	pr := ProgressOf(st)
	require.NotNil(t, pr)
	assert.Equal(t, 1, pr.CurrentStep)
	assert.Equal(t, 2, pr.TotalSteps)
	assert.Equal(t, "Step 1/2: t1", pr.Label)

	st.TaskIndex = 2
	pr = ProgressOf(st)
	require.NotNil(t, pr)
	assert.Equal(t, 2, pr.CurrentStep)
	assert.Equal(t, "Synthesizing results...", pr.Label)
}

func TestStatusOf(t *testing.T) {
	st := &State{}
	assert.Equal(t, "idle", StatusOf(st))

	st.Propose([]Task{{Task: "t1"}})
	st.Approved = true
	assert.Equal(t, "researching", StatusOf(st))

	st.TaskIndex = 1
	assert.Equal(t, "done", StatusOf(st))
}

func TestClearPlan_ResetsEverything(t *testing.T) {
	st := &State{}
	st.Propose([]Task{{Task: "t1"}})
	st.Approved = true
	st.TaskIndex = 1
	st.Findings = []string{"f"}

	st.ClearPlan()

	assert.Empty(t, st.Plan)
	assert.Zero(t, st.TaskIndex)
	assert.False(t, st.Approved)
	assert.Equal(t, ModeSingle, st.CurrentMode())
	assert.Empty(t, st.Findings)
}
