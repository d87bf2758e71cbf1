package plan

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine is one line of a version-to-version plan diff.
type DiffLine struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Diff line types.
const (
	DiffContext = "context"
	DiffAdded   = "added"
	DiffRemoved = "removed"
)

// DiffVersions computes a line-level diff between the rendered markdown of
// two plan versions. Both versions must exist in the plan's history (or be
// the current version).
func (p *Plan) DiffVersions(from, to int) ([]DiffLine, error) {
	before, err := p.VersionSnapshot(from)
	if err != nil {
		return nil, fmt.Errorf("plan: diff from: %w", err)
	}
	after, err := p.VersionSnapshot(to)
	if err != nil {
		return nil, fmt.Errorf("plan: diff to: %w", err)
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before.Render(), after.Render())
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if len(chunk) > 0 && chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, line := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, DiffLine{Type: DiffContext, Text: line})
			case diffmatchpatch.DiffDelete:
				lines = append(lines, DiffLine{Type: DiffRemoved, Text: line})
			case diffmatchpatch.DiffInsert:
				lines = append(lines, DiffLine{Type: DiffAdded, Text: line})
			}
		}
	}
	return lines, nil
}
