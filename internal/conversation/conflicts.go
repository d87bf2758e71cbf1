package conversation

import (
	"strings"
	"time"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
)

// engagementKeywords are the signals that a user message engages with an
// announced conflict. A message containing none of them marks the pending
// announced conflicts as ignored, which suppresses re-announcement.
var engagementKeywords = []string{
	"conflict", "resolve", "search", "timeframe", "source",
	"correct", "use", "yes", "no", "start", "go",
}

// MarkIgnoredConflicts inspects the latest user message and flags announced,
// unresolved conflicts the user did not engage with. Conflicts already under
// a resolution search, already ignored, or resolved are left alone.
func MarkIgnoredConflicts(p *plan.Plan, userMessage string) {
	if p == nil || userMessage == "" {
		return
	}
	lower := strings.ToLower(userMessage)
	engaged := false
	for _, kw := range engagementKeywords {
		if strings.Contains(lower, kw) {
			engaged = true
			break
		}
	}
	if engaged {
		return
	}
	for i := range p.Conflicts {
		c := &p.Conflicts[i]
		if c.Status == plan.ConflictUnresolved && c.Announced &&
			!c.ResolutionSearchInitiated && !c.UserIgnored {
			c.UserIgnored = true
		}
	}
}

// AddDiscoveredConflicts registers research-discovered conflicts on the plan,
// deduplicating by exact description. It returns the descriptions that are
// genuinely new this turn, which drive the announcement flow.
func AddDiscoveredConflicts(p *plan.Plan, descriptions []string) []string {
	if p == nil || len(descriptions) == 0 {
		return nil
	}
	known := make(map[string]bool, len(p.Conflicts))
	for _, c := range p.Conflicts {
		known[c.Description] = true
	}
	var added []string
	for _, desc := range descriptions {
		desc = strings.TrimSpace(desc)
		if desc == "" || known[desc] {
			continue
		}
		known[desc] = true
		p.Conflicts = append(p.Conflicts, plan.Conflict{
			Description: desc,
			Status:      plan.ConflictUnresolved,
			DetectedAt:  time.Now().UTC(),
			Announced:   true,
		})
		added = append(added, desc)
	}
	return added
}

// MarkAnnouncementAttempted latches the attempt flag on the named conflicts
// so a failed announcement is never retried forever.
func MarkAnnouncementAttempted(p *plan.Plan, descriptions []string) {
	if p == nil {
		return
	}
	for _, desc := range descriptions {
		for i := range p.Conflicts {
			if p.Conflicts[i].Description == desc {
				p.Conflicts[i].AnnouncementAttempted = true
			}
		}
	}
}

// ResolveConflict marks the conflict with the exact description as resolved.
// Returns false when no unresolved conflict matches.
func ResolveConflict(p *plan.Plan, description, resolution string) bool {
	if p == nil {
		return false
	}
	for i := range p.Conflicts {
		c := &p.Conflicts[i]
		if c.Description == description && c.Status == plan.ConflictUnresolved {
			now := time.Now().UTC()
			c.Status = plan.ConflictResolved
			c.Resolution = resolution
			c.ResolvedAt = &now
			return true
		}
	}
	return false
}

// MarkResolutionSearch flags unresolved conflicts referenced by a research
// plan whose first task reads like a conflict-resolution search. Matching is
// loose: the first few words of the conflict description appearing in any
// task text counts.
func MarkResolutionSearch(p *plan.Plan, tasks []research.Task) {
	if p == nil || len(tasks) == 0 {
		return
	}
	first := strings.ToLower(tasks[0].Task)
	if !strings.Contains(first, "conflict") && !strings.Contains(first, "resolve") {
		return
	}
	for i := range p.Conflicts {
		c := &p.Conflicts[i]
		if c.Status != plan.ConflictUnresolved || c.ResolutionSearchInitiated {
			continue
		}
		words := strings.Fields(strings.ToLower(c.Description))
		if len(words) > 3 {
			words = words[:3]
		}
		needle := strings.Join(words, " ")
		for _, t := range tasks {
			if needle != "" && strings.Contains(strings.ToLower(t.Task), needle) {
				c.ResolutionSearchInitiated = true
				break
			}
		}
	}
}

// SyncConflictsSection mirrors the conflict records into the plan's
// "Conflicts" section through the mutation engine, so the document view and
// the tracked lifecycle never drift apart. Returns true when the plan
// version was bumped.
func SyncConflictsSection(p *plan.Plan) bool {
	if p == nil || len(p.Conflicts) == 0 {
		return false
	}
	items := make([]any, 0, len(p.Conflicts))
	for _, c := range p.Conflicts {
		status := "⚠️ Unresolved"
		if c.Status == plan.ConflictResolved {
			status = "✅ Resolved"
		}
		item := map[string]any{
			"description": c.Description,
			"status":      status,
			"detected":    c.DetectedAt.Format(time.RFC3339),
		}
		if c.Resolution != "" {
			item["resolution"] = c.Resolution
		}
		if c.ResolvedAt != nil {
			item["resolved"] = c.ResolvedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return p.Apply(plan.Edit{
		Section: plan.SectionConflicts,
		Content: items,
		Mode:    plan.ModeReplace,
	})
}
