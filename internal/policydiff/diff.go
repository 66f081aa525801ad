package policydiff

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ppiankov/conative/internal/policy"
)

// Change represents a single scalar field difference between two policies.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// RuleChange represents an added, removed, or changed rule.
type RuleChange struct {
	Type    string `json:"type"` // "added", "removed", "changed"
	Section string `json:"section"`
	Rule    string `json:"rule"`
	Detail  string `json:"detail,omitempty"`
}

// DiffResult holds the complete comparison between two policies.
type DiffResult struct {
	OldPath     string       `json:"old_path"`
	NewPath     string       `json:"new_path"`
	Changes     []Change     `json:"changes"`
	RuleChanges []RuleChange `json:"rule_changes"`
	HasChanges  bool         `json:"has_changes"`
}

// Rule sections.
const (
	SectionTier1      = "languages.tier1"
	SectionTier2      = "languages.tier2"
	SectionForbidden  = "languages.forbidden"
	SectionExceptions = "languages.exceptions"
	SectionToolchain  = "toolchain.rules"
	SectionPatterns   = "patterns.forbidden"
)

// Diff compares two policies and returns all differences.
func Diff(old, new *policy.Policy) *DiffResult {
	r := &DiffResult{}

	if old.Name != new.Name {
		r.Changes = append(r.Changes, Change{Field: "name", Old: old.Name, New: new.Name})
	}

	// Raising the neural weight or lowering a threshold tightens gating.
	diffFloat(r, "enforcement.slm_weight", old.Enforcement.SLMWeight, new.Enforcement.SLMWeight, true)
	diffFloat(r, "enforcement.escalate_threshold", old.Enforcement.EscalateThreshold, new.Enforcement.EscalateThreshold, false)
	diffFloat(r, "enforcement.block_threshold", old.Enforcement.BlockThreshold, new.Enforcement.BlockThreshold, false)

	diffLanguages(r, SectionTier1, old.Languages.Tier1, new.Languages.Tier1)
	diffLanguages(r, SectionTier2, old.Languages.Tier2, new.Languages.Tier2)
	diffLanguages(r, SectionForbidden, old.Languages.Forbidden, new.Languages.Forbidden)
	diffExceptions(r, old.Languages.Exceptions, new.Languages.Exceptions)
	diffToolchain(r, old.Toolchain.Rules, new.Toolchain.Rules)
	diffPatterns(r, old.Patterns.Forbidden, new.Patterns.Forbidden)

	r.HasChanges = len(r.Changes) > 0 || len(r.RuleChanges) > 0
	return r
}

func diffFloat(r *DiffResult, field string, old, new float64, higherIsStricter bool) {
	if old == new {
		return
	}
	r.Changes = append(r.Changes, Change{
		Field:   field,
		Old:     formatFloat(old),
		New:     formatFloat(new),
		Comment: floatComment(old, new, higherIsStricter),
	})
}

func floatComment(old, new float64, higherIsStricter bool) string {
	if (new > old) == higherIsStricter {
		return "stricter"
	}
	return "looser"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func diffLanguages(r *DiffResult, section string, old, new []policy.LanguageRule) {
	oldByName := make(map[string]policy.LanguageRule, len(old))
	for _, l := range old {
		oldByName[l.Name] = l
	}
	newByName := make(map[string]policy.LanguageRule, len(new))
	for _, l := range new {
		newByName[l.Name] = l
	}

	for _, l := range new {
		prev, ok := oldByName[l.Name]
		if !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "added", Section: section, Rule: l.Name})
			continue
		}
		var details []string
		if d := listDelta("extensions", prev.Extensions, l.Extensions); d != "" {
			details = append(details, d)
		}
		if d := listDelta("markers", prev.Markers, l.Markers); d != "" {
			details = append(details, d)
		}
		if len(details) > 0 {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type:    "changed",
				Section: section,
				Rule:    l.Name,
				Detail:  strings.Join(details, "; "),
			})
		}
	}
	for _, l := range old {
		if _, ok := newByName[l.Name]; !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "removed", Section: section, Rule: l.Name})
		}
	}
}

func diffExceptions(r *DiffResult, old, new []policy.ExceptionRule) {
	oldByLang := make(map[string]policy.ExceptionRule, len(old))
	for _, e := range old {
		oldByLang[e.Language] = e
	}
	newByLang := make(map[string]policy.ExceptionRule, len(new))
	for _, e := range new {
		newByLang[e.Language] = e
	}

	for _, e := range new {
		prev, ok := oldByLang[e.Language]
		if !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type:    "added",
				Section: SectionExceptions,
				Rule:    e.Language,
				Detail:  strings.Join(e.AllowedPaths, ", "),
			})
			continue
		}
		if d := listDelta("allowed_paths", prev.AllowedPaths, e.AllowedPaths); d != "" {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type:    "changed",
				Section: SectionExceptions,
				Rule:    e.Language,
				Detail:  d,
			})
		}
	}
	for _, e := range old {
		if _, ok := newByLang[e.Language]; !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "removed", Section: SectionExceptions, Rule: e.Language})
		}
	}
}

func toolchainKey(rule policy.ToolchainRule) string {
	return fmt.Sprintf("%s requires %s", rule.Tool, rule.Requires)
}

func diffToolchain(r *DiffResult, old, new []policy.ToolchainRule) {
	oldByKey := make(map[string]policy.ToolchainRule, len(old))
	for _, t := range old {
		oldByKey[toolchainKey(t)] = t
	}
	newByKey := make(map[string]policy.ToolchainRule, len(new))
	for _, t := range new {
		newByKey[toolchainKey(t)] = t
	}

	for _, t := range new {
		key := toolchainKey(t)
		prev, ok := oldByKey[key]
		if !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "added", Section: SectionToolchain, Rule: key})
			continue
		}
		var details []string
		if d := listDelta("tool_markers", prev.ToolMarkers, t.ToolMarkers); d != "" {
			details = append(details, d)
		}
		if d := listDelta("requires_markers", prev.RequiresMarkers, t.RequiresMarkers); d != "" {
			details = append(details, d)
		}
		if len(details) > 0 {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type:    "changed",
				Section: SectionToolchain,
				Rule:    key,
				Detail:  strings.Join(details, "; "),
			})
		}
	}
	for _, t := range old {
		if _, ok := newByKey[toolchainKey(t)]; !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "removed", Section: SectionToolchain, Rule: toolchainKey(t)})
		}
	}
}

func diffPatterns(r *DiffResult, old, new []policy.PatternRule) {
	oldByName := make(map[string]policy.PatternRule, len(old))
	for _, p := range old {
		oldByName[p.Name] = p
	}
	newByName := make(map[string]policy.PatternRule, len(new))
	for _, p := range new {
		newByName[p.Name] = p
	}

	for _, p := range new {
		prev, ok := oldByName[p.Name]
		if !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "added", Section: SectionPatterns, Rule: p.Name})
			continue
		}
		var details []string
		if prev.Regex != p.Regex {
			details = append(details, fmt.Sprintf("regex %q → %q", prev.Regex, p.Regex))
		}
		if prev.Category != p.Category {
			details = append(details, fmt.Sprintf("category %q → %q", prev.Category, p.Category))
		}
		if d := listDelta("file_types", prev.FileTypes, p.FileTypes); d != "" {
			details = append(details, d)
		}
		if len(details) > 0 {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type:    "changed",
				Section: SectionPatterns,
				Rule:    p.Name,
				Detail:  strings.Join(details, "; "),
			})
		}
	}
	for _, p := range old {
		if _, ok := newByName[p.Name]; !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "removed", Section: SectionPatterns, Rule: p.Name})
		}
	}
}

// listDelta describes added and removed entries of a string list, or
// returns "" when both lists hold the same set.
func listDelta(field string, old, new []string) string {
	var added, removed []string
	for _, v := range new {
		if !slices.Contains(old, v) {
			added = append(added, v)
		}
	}
	for _, v := range old {
		if !slices.Contains(new, v) {
			removed = append(removed, v)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return ""
	}

	var parts []string
	for _, v := range added {
		parts = append(parts, "+"+strconv.Quote(v))
	}
	for _, v := range removed {
		parts = append(parts, "-"+strconv.Quote(v))
	}
	return field + " " + strings.Join(parts, " ")
}
