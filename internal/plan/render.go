package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces a markdown view of the plan: header fields followed by each
// section in display order. Used for version diffs and knowledge indexing.
func (p *Plan) Render() string {
	var b strings.Builder

	title := p.Title
	if title == "" {
		title = "Account Plan"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if p.Company != "" {
		fmt.Fprintf(&b, "**Company**: %s\n", p.Company)
	}
	if p.Goal != "" {
		fmt.Fprintf(&b, "**Goal**: %s\n", p.Goal)
	}
	fmt.Fprintf(&b, "**Version**: %d\n\n", p.Version)

	for _, s := range p.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		b.WriteString(renderContent(s.Content, 0))
		b.WriteString("\n")
	}

	return b.String()
}

func renderContent(content any, depth int) string {
	indent := strings.Repeat("  ", depth)

	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return indent + v + "\n"
	case []any:
		var b strings.Builder
		for _, item := range v {
			switch it := item.(type) {
			case string:
				fmt.Fprintf(&b, "%s- %s\n", indent, it)
			default:
				fmt.Fprintf(&b, "%s-\n", indent)
				b.WriteString(renderContent(it, depth+1))
			}
		}
		return b.String()
	case map[string]any:
		// Deterministic order so renders (and diffs of renders) are stable.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			if s, ok := v[k].(string); ok {
				fmt.Fprintf(&b, "%s**%s**: %s\n", indent, k, s)
				continue
			}
			fmt.Fprintf(&b, "%s**%s**:\n", indent, k)
			b.WriteString(renderContent(v[k], depth+1))
		}
		return b.String()
	default:
		return fmt.Sprintf("%s%v\n", indent, v)
	}
}
