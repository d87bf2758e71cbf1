package plan

import (
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode"
)

// Mode selects the merge semantics of an Edit.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
	ModeMerge   Mode = "merge"
	ModeDelete  Mode = "delete"
	ModeMove    Mode = "move"
)

// Edit is a single structured mutation instruction. Section is a dot-path:
// the first segment names the section, an optional further segment names a
// sub-key inside mapping-typed content (a literal "content" segment between
// the two is skipped).
type Edit struct {
	Section string `json:"section"`
	Content any    `json:"content"`
	Mode    Mode   `json:"mode"`
}

// Footer section titles that are pinned to the bottom of the document.
const (
	SectionResearchSources = "Research Sources"
	SectionConflicts       = "Conflicts"
)

// Apply applies a batch of edits to the plan. The pre-mutation snapshot is
// appended to History once per accepted call (not once per edit), and Version
// is bumped once. Returns whether anything changed. Edits that cannot be
// applied are skipped, never fatal.
func (p *Plan) Apply(edits ...Edit) bool {
	if p == nil || len(edits) == 0 {
		return false
	}

	snap := p.Snapshot()

	changed := false
	for _, e := range edits {
		if p.applyEdit(e) {
			changed = true
		}
	}

	if !changed {
		return false
	}

	p.pinFooterSections()
	p.History = append(p.History, snap)
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	return true
}

func (p *Plan) applyEdit(e Edit) bool {
	content := unwrapContent(e.Content)
	mode := e.Mode
	if mode == "" {
		mode = ModeReplace
	}

	parts := strings.Split(e.Section, ".")
	rawTitle := strings.TrimSpace(parts[0])
	if rawTitle == "" {
		return false
	}
	normTitle := NormalizeTitle(rawTitle)

	// Resolve an optional sub-key. A literal "content" segment between the
	// section and the key is skipped ("Section.content.Field").
	subKey := ""
	if len(parts) > 1 {
		key := strings.TrimSpace(parts[1])
		if strings.EqualFold(key, "content") && len(parts) > 2 {
			key = strings.TrimSpace(parts[2])
		}
		if key != "" && !strings.EqualFold(key, "content") {
			subKey = NormalizeTitle(key)
		}
	}

	idx := p.sectionIndexRaw(rawTitle, normTitle)

	if idx < 0 {
		// Missing section: delete is a no-op, move has nothing to relocate.
		if mode == ModeDelete || mode == ModeMove {
			return false
		}
		final := content
		if subKey != "" {
			final = map[string]any{subKey: content}
		}
		p.Sections = append(p.Sections, Section{Title: normTitle, Content: final})
		return true
	}

	sec := &p.Sections[idx]

	// Resolve the sub-key against the existing mapping: exact match first,
	// then a loosened case/underscore-vs-space match.
	if subKey != "" {
		if m, ok := sec.Content.(map[string]any); ok {
			if _, exact := m[subKey]; !exact {
				want := looseKey(subKey)
				for k := range m {
					if looseKey(k) == want {
						subKey = k
						break
					}
				}
			}
		}
	}

	switch mode {
	case ModeDelete:
		if subKey != "" {
			if m, ok := sec.Content.(map[string]any); ok {
				delete(m, subKey)
			}
		} else {
			p.Sections = append(p.Sections[:idx], p.Sections[idx+1:]...)
		}
		return true

	case ModeMove:
		if subKey != "" {
			return false
		}
		target, ok := asIndex(content)
		if !ok {
			log.Printf("WARNING: plan: invalid content for move mode: %v", content)
			return false
		}
		if target < 0 {
			target = 0
		}
		if target == idx {
			return false
		}
		moved := p.Sections[idx]
		p.Sections = append(p.Sections[:idx], p.Sections[idx+1:]...)
		if target >= len(p.Sections) {
			p.Sections = append(p.Sections, moved)
		} else {
			p.Sections = append(p.Sections[:target],
				append([]Section{moved}, p.Sections[target:]...)...)
		}
		return true
	}

	if subKey != "" {
		m, ok := sec.Content.(map[string]any)
		if !ok {
			// Migrate non-mapping content so the sub-key has a home.
			m = map[string]any{}
			if sec.Content != nil && sec.Content != "" {
				m["General"] = sec.Content
			}
			sec.Content = m
		}
		switch mode {
		case ModeReplace:
			m[subKey] = content
		case ModeAppend:
			if cur, exists := m[subKey]; exists && cur != nil {
				m[subKey] = appendValue(cur, content)
			} else {
				m[subKey] = content
			}
		case ModeMerge:
			m[subKey] = mergeValue(m[subKey], content)
		}
		return true
	}

	switch mode {
	case ModeReplace:
		sec.Content = content
	case ModeAppend:
		if sec.Content == nil {
			sec.Content = content
		} else {
			sec.Content = appendValue(sec.Content, content)
		}
	case ModeMerge:
		sec.Content = mergeValue(sec.Content, content)
	}
	return true
}

// appendValue combines old and new content by type: list+list concatenates,
// list+scalar appends, string+string joins with a newline, string+list
// converts the string to a one-element prefix; anything else becomes a
// two-element list.
func appendValue(old, incoming any) any {
	switch cur := old.(type) {
	case []any:
		if list, ok := incoming.([]any); ok {
			return append(cur, list...)
		}
		return append(cur, incoming)
	case string:
		switch nv := incoming.(type) {
		case string:
			return cur + "\n" + nv
		case []any:
			return append([]any{cur}, nv...)
		}
	}
	return []any{old, incoming}
}

// mergeValue merges mapping-typed content key-over-key; every other
// combination behaves like replace.
func mergeValue(old, incoming any) any {
	curMap, curOK := old.(map[string]any)
	newMap, newOK := incoming.(map[string]any)
	if curOK && newOK {
		for k, v := range newMap {
			curMap[k] = v
		}
		return curMap
	}
	return incoming
}

// unwrapContent flattens a payload the model nested one level too deep:
// a mapping holding exactly one "content" key, optionally alongside "title".
func unwrapContent(content any) any {
	m, ok := content.(map[string]any)
	if !ok {
		return content
	}
	inner, has := m["content"]
	if !has {
		return content
	}
	if _, hasTitle := m["title"]; hasTitle || len(m) == 1 {
		return inner
	}
	return content
}

// asIndex coerces a JSON-decoded value to a non-negative-capable integer
// index. JSON numbers decode as float64; native ints appear in tests.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// pinFooterSections keeps "Research Sources" last and "Conflicts" immediately
// before it (or last when no sources section exists) regardless of edit order.
func (p *Plan) pinFooterSections() {
	research := -1
	conflicts := -1
	for i, s := range p.Sections {
		switch strings.ToLower(strings.TrimSpace(s.Title)) {
		case strings.ToLower(SectionResearchSources):
			research = i
		case strings.ToLower(SectionConflicts):
			conflicts = i
		}
	}

	if research != -1 && research < len(p.Sections)-1 {
		sec := p.Sections[research]
		p.Sections = append(p.Sections[:research], p.Sections[research+1:]...)
		p.Sections = append(p.Sections, sec)
		if conflicts > research {
			conflicts--
		}
	}

	if conflicts != -1 {
		sec := p.Sections[conflicts]
		p.Sections = append(p.Sections[:conflicts], p.Sections[conflicts+1:]...)
		pos := len(p.Sections)
		if research != -1 {
			pos = len(p.Sections) - 1
		}
		p.Sections = append(p.Sections[:pos],
			append([]Section{sec}, p.Sections[pos:]...)...)
	}
}

// sectionIndex locates a section by loose title match.
func (p *Plan) sectionIndex(name string) int {
	raw := strings.TrimSpace(name)
	return p.sectionIndexRaw(raw, NormalizeTitle(raw))
}

func (p *Plan) sectionIndexRaw(rawTitle, normTitle string) int {
	for i, s := range p.Sections {
		cur := strings.ToLower(strings.TrimSpace(s.Title))
		if strings.ReplaceAll(cur, "_", " ") == strings.ToLower(normTitle) {
			return i
		}
		if cur == strings.ToLower(rawTitle) {
			return i
		}
	}
	return -1
}

// NormalizeTitle folds underscores to spaces and title-cases each word. It is
// shared by section lookup and creation so matching stays consistent.
func NormalizeTitle(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// looseKey is the loosened sub-key comparison form: underscores folded to
// spaces, trimmed, lowercased.
func looseKey(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}
