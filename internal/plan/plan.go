package plan

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"
)

// Plan is the structured account-planning document under edit. Sections are
// ordered (the order is the display order). History holds full snapshots of
// prior versions; each snapshot has its own History stripped.
type Plan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Company   string     `json:"company"`
	Goal      string     `json:"goal"`
	Title     string     `json:"title,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Version   int        `json:"version"`
	Sections  []Section  `json:"sections"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	History   []Plan     `json:"history,omitempty"`
}

// Section is a named region of a Plan. Content is a loose tagged union:
// string, []any, or map[string]any — whatever the JSON round trip yields.
type Section struct {
	Title   string `json:"title"`
	Content any    `json:"content"`
}

// ConflictStatus is the lifecycle state of a Conflict.
type ConflictStatus string

const (
	ConflictUnresolved ConflictStatus = "unresolved"
	ConflictResolved   ConflictStatus = "resolved"
)

// Conflict is a detected contradiction in researched facts. Description acts
// as the natural key for deduplication.
type Conflict struct {
	Description               string         `json:"description"`
	Status                    ConflictStatus `json:"status"`
	DetectedAt                time.Time      `json:"detectedAt"`
	Resolution                string         `json:"resolution,omitempty"`
	ResolvedAt                *time.Time     `json:"resolvedAt,omitempty"`
	Announced                 bool           `json:"announced"`
	AnnouncementAttempted     bool           `json:"announcementAttempted"`
	UserIgnored               bool           `json:"userIgnored"`
	ResolutionSearchInitiated bool           `json:"resolutionSearchInitiated"`
}

// New creates an empty Plan at version 1 for the given owner.
func New(userID, company, goal string) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:        NewID(),
		UserID:    userID,
		Company:   company,
		Goal:      goal,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Sections:  []Section{},
	}
}

// NewID generates a UUID v4 string using crypto/rand.
func NewID() string {
	var uuid [16]byte
	_, _ = rand.Read(uuid[:])
	// Set version 4 (bits 12-15 of time_hi_and_version).
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	// Set variant bits (bits 6-7 of clock_seq_hi_and_reserved).
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16])
}

// Snapshot returns a deep copy of the plan with its History stripped, suitable
// for appending to History without unbounded recursion.
func (p *Plan) Snapshot() Plan {
	snap := *p
	snap.History = nil
	return clonePlan(snap)
}

// clonePlan deep-copies a Plan through a JSON round trip. Section content is
// arbitrary JSON-shaped data, so this is the only copy that is guaranteed to
// detach every nested slice and map.
func clonePlan(p Plan) Plan {
	data, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out Plan
	if err := json.Unmarshal(data, &out); err != nil {
		return p
	}
	return out
}

// FindSection returns the section whose title loosely matches name (same
// normalization as the mutation engine), or nil.
func (p *Plan) FindSection(name string) *Section {
	idx := p.sectionIndex(name)
	if idx < 0 {
		return nil
	}
	return &p.Sections[idx]
}

// SetTitle renames the plan, snapshotting the prior version like any other
// accepted mutation. Returns false when the title is unchanged.
func (p *Plan) SetTitle(title string) bool {
	if title == "" || title == p.Title {
		return false
	}
	p.History = append(p.History, p.Snapshot())
	p.Title = title
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	return true
}

// ReplaceContent swaps the whole section list (and optionally the title) in
// one accepted mutation, snapshotting the prior version. Used by direct plan
// edits that bypass the conversational flow.
func (p *Plan) ReplaceContent(title string, sections []Section) {
	p.History = append(p.History, p.Snapshot())
	if title != "" {
		p.Title = title
	}
	p.Sections = sections
	p.pinFooterSections()
	p.Version++
	p.UpdatedAt = time.Now().UTC()
}

// VersionSnapshot returns the snapshot with the given version number. The
// current plan itself is returned (history-stripped) when version matches.
func (p *Plan) VersionSnapshot(version int) (Plan, error) {
	if version == p.Version {
		return p.Snapshot(), nil
	}
	for _, snap := range p.History {
		if snap.Version == version {
			return clonePlan(snap), nil
		}
	}
	return Plan{}, fmt.Errorf("plan: version %d not found", version)
}
