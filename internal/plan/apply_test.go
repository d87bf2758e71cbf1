package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan() *Plan {
	return New("user-1", "Acme Corp", "expand into EMEA")
}

func TestApply_CreatesMissingSection(t *testing.T) {
	p := newTestPlan()

	changed := p.Apply(Edit{Section: "Overview", Content: "initial text", Mode: ModeReplace})
	require.True(t, changed)

	sec := p.FindSection("Overview")
	require.NotNil(t, sec)
	assert.Equal(t, "initial text", sec.Content)
	assert.Equal(t, 2, p.Version)
	require.Len(t, p.History, 1)
	assert.Equal(t, 1, p.History[0].Version)
}

func TestApply_VersionBumpsOncePerBatch(t *testing.T) {
	p := newTestPlan()

	changed := p.Apply(
		Edit{Section: "Overview", Content: "a", Mode: ModeReplace},
		Edit{Section: "Risks", Content: "b", Mode: ModeReplace},
	)
	require.True(t, changed)
	assert.Equal(t, 2, p.Version, "a batch is one accepted mutation")
	assert.Len(t, p.History, 1)
}

func TestApply_HistorySnapshotsAreDetached(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Overview", Content: []any{"first"}, Mode: ModeReplace})
	p.Apply(Edit{Section: "Overview", Content: "second", Mode: ModeAppend})

	require.Len(t, p.History, 2)
	assert.Empty(t, p.History[0].Sections, "the version 1 snapshot predates both edits")
	assert.Equal(t, []any{"first"}, p.History[1].Sections[0].Content,
		"snapshot must not see the later append")
	assert.Empty(t, p.History[1].History, "snapshots carry no nested history")
}

func TestApply_AppendStrings_JoinsWithNewline(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Notes", Content: "a", Mode: ModeReplace})

	p.Apply(Edit{Section: "Notes", Content: "b", Mode: ModeAppend})

	assert.Equal(t, "a\nb", p.FindSection("Notes").Content)
}

func TestApply_AppendLists_Concatenates(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Notes", Content: []any{"a"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Notes", Content: []any{"b"}, Mode: ModeAppend})

	assert.Equal(t, []any{"a", "b"}, p.FindSection("Notes").Content)
}

func TestApply_AppendScalarToList(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Notes", Content: []any{"a"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Notes", Content: "b", Mode: ModeAppend})

	assert.Equal(t, []any{"a", "b"}, p.FindSection("Notes").Content)
}

func TestApply_AppendMismatchedTypes_BecomesPair(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Notes", Content: map[string]any{"k": "v"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Notes", Content: "extra", Mode: ModeAppend})

	assert.Equal(t, []any{map[string]any{"k": "v"}, "extra"}, p.FindSection("Notes").Content)
}

func TestApply_MergeMaps_OverlaysKeys(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Financials", Content: map[string]any{"Revenue": "1M", "Costs": "500k"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Financials", Content: map[string]any{"Costs": "600k"}, Mode: ModeMerge})

	assert.Equal(t, map[string]any{"Revenue": "1M", "Costs": "600k"},
		p.FindSection("Financials").Content)
}

func TestApply_MergeOntoNonMap_Replaces(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Financials", Content: "prose", Mode: ModeReplace})

	p.Apply(Edit{Section: "Financials", Content: map[string]any{"Revenue": "1M"}, Mode: ModeMerge})

	assert.Equal(t, map[string]any{"Revenue": "1M"}, p.FindSection("Financials").Content)
}

func TestApply_DeleteSection(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Overview", Content: "x", Mode: ModeReplace})

	changed := p.Apply(Edit{Section: "Overview", Mode: ModeDelete})

	require.True(t, changed)
	assert.Nil(t, p.FindSection("Overview"))
}

func TestApply_DeleteMissingSection_NoOp(t *testing.T) {
	p := newTestPlan()

	changed := p.Apply(Edit{Section: "Ghost", Mode: ModeDelete})

	assert.False(t, changed)
	assert.Equal(t, 1, p.Version)
	assert.Empty(t, p.History)
}

func TestApply_MoveReordersSections(t *testing.T) {
	p := newTestPlan()
	p.Apply(
		Edit{Section: "A", Content: "1", Mode: ModeReplace},
		Edit{Section: "B", Content: "2", Mode: ModeReplace},
		Edit{Section: "C", Content: "3", Mode: ModeReplace},
	)

	changed := p.Apply(Edit{Section: "B", Content: float64(0), Mode: ModeMove})

	require.True(t, changed)
	titles := sectionTitles(p)
	assert.Equal(t, []string{"B", "A", "C"}, titles)
}

func TestApply_MoveBeyondEnd_AppendsAtEnd(t *testing.T) {
	p := newTestPlan()
	p.Apply(
		Edit{Section: "A", Content: "1", Mode: ModeReplace},
		Edit{Section: "B", Content: "2", Mode: ModeReplace},
	)

	p.Apply(Edit{Section: "A", Content: float64(99), Mode: ModeMove})

	assert.Equal(t, []string{"B", "A"}, sectionTitles(p))
}

func TestApply_MoveWithInvalidIndex_Skipped(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "A", Content: "1", Mode: ModeReplace})

	changed := p.Apply(Edit{Section: "A", Content: "not a number", Mode: ModeMove})

	assert.False(t, changed)
}

func TestApply_SubKeyPath(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Financials", Content: map[string]any{"Revenue": "1M"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Financials.Costs", Content: "500k", Mode: ModeReplace})

	content := p.FindSection("Financials").Content.(map[string]any)
	assert.Equal(t, "500k", content["Costs"])
	assert.Equal(t, "1M", content["Revenue"])
}

func TestApply_SubKeyPathWithLiteralContentHop(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Financials", Content: map[string]any{"Revenue": "1M"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Financials.content.Revenue", Content: "2M", Mode: ModeReplace})

	content := p.FindSection("Financials").Content.(map[string]any)
	assert.Equal(t, "2M", content["Revenue"])
}

func TestApply_SubKeyLooseMatch(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Financials", Content: map[string]any{"annual revenue": "1M"}, Mode: ModeReplace})

	p.Apply(Edit{Section: "Financials.Annual_Revenue", Content: "2M", Mode: ModeReplace})

	content := p.FindSection("Financials").Content.(map[string]any)
	assert.Equal(t, "2M", content["annual revenue"], "loose key match must reuse the existing key")
	assert.Len(t, content, 1)
}

func TestApply_SubKeyOnScalarContent_MigratesToGeneral(t *testing.T) {
	p := newTestPlan()
	p.Apply(Edit{Section: "Overview", Content: "old prose", Mode: ModeReplace})

	p.Apply(Edit{Section: "Overview.Detail", Content: "specifics", Mode: ModeReplace})

	content := p.FindSection("Overview").Content.(map[string]any)
	assert.Equal(t, "old prose", content["General"])
	assert.Equal(t, "specifics", content["Detail"])
}

func TestApply_UnwrapsNestedContentEnvelope(t *testing.T) {
	p := newTestPlan()

	p.Apply(Edit{
		Section: "Overview",
		Content: map[string]any{"title": "Overview", "content": "the real text"},
		Mode:    ModeReplace,
	})

	assert.Equal(t, "the real text", p.FindSection("Overview").Content)
}

func TestApply_TitleNormalization(t *testing.T) {
	p := newTestPlan()

	p.Apply(Edit{Section: "market_analysis", Content: "x", Mode: ModeReplace})

	sec := p.FindSection("Market Analysis")
	require.NotNil(t, sec)
	assert.Equal(t, "Market Analysis", sec.Title)

	// A differently-cased reference hits the same section.
	p.Apply(Edit{Section: "MARKET ANALYSIS", Content: "y", Mode: ModeReplace})
	assert.Equal(t, "y", sec.Content)
	assert.Len(t, p.Sections, 1)
}

func TestApply_FooterSectionsStayPinned(t *testing.T) {
	p := newTestPlan()
	p.Apply(
		Edit{Section: SectionResearchSources, Content: []any{"src"}, Mode: ModeReplace},
		Edit{Section: SectionConflicts, Content: []any{"c"}, Mode: ModeReplace},
	)

	p.Apply(Edit{Section: "Overview", Content: "x", Mode: ModeReplace})
	p.Apply(Edit{Section: "Strategy", Content: "y", Mode: ModeReplace})

	titles := sectionTitles(p)
	require.Len(t, titles, 4)
	assert.Equal(t, SectionConflicts, titles[len(titles)-2])
	assert.Equal(t, SectionResearchSources, titles[len(titles)-1])
}

func sectionTitles(p *Plan) []string {
	titles := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		titles[i] = s.Title
	}
	return titles
}
