package oracle

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/ppiankov/conative/internal/model"
	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/redact"
)

// contextRadius is how many bytes of content surround a marker hit.
const contextRadius = 30

// Rule id prefixes.
const (
	RuleForbiddenLanguage = "forbidden_language"
	RuleForbiddenFile     = "forbidden_file_extension"
	RuleToolchain         = "toolchain"
	RulePattern           = "pattern"
	RuleTier2Language     = "tier2_language"
)

type compiledLanguage struct {
	rule    policy.LanguageRule
	markers []*regexp.Regexp
}

// Oracle checks proposals against a policy. It is safe for concurrent use.
type Oracle struct {
	policy    *policy.Policy
	forbidden []compiledLanguage
	tier2     []compiledLanguage
	patterns  []policy.CompiledPattern
}

// New compiles the policy. A malformed pattern returns *policy.PolicyParseError
// and no oracle.
func New(p *policy.Policy) (*Oracle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	patterns, err := p.CompilePatterns()
	if err != nil {
		return nil, err
	}
	return &Oracle{
		policy:    p,
		forbidden: compileLanguages(p.Languages.Forbidden),
		tier2:     compileLanguages(p.Languages.Tier2),
		patterns:  patterns,
	}, nil
}

// Policy returns the policy the oracle was built from.
func (o *Oracle) Policy() *policy.Policy {
	return o.policy
}

// Evaluate runs every check in fixed order and selects the verdict.
// Order: forbidden content, forbidden extensions, toolchain, patterns, tier2.
func (o *Oracle) Evaluate(p *model.Proposal) Evaluation {
	var (
		rules      []string
		violations []Violation
		concerns   []Concern
	)
	files := p.FilesAffected
	var masked string

	for _, lang := range o.forbidden {
		id := RuleForbiddenLanguage + ":" + lang.rule.Name
		rules = append(rules, id)
		loc := lang.find(p.Content)
		if loc == nil || o.policy.IsExcepted(lang.rule.Name, files...) {
			continue
		}
		if masked == "" {
			masked = redact.Blank(p.Content)
		}
		violations = append(violations, Violation{
			Rule: id,
			Kind: ForbiddenLanguage{
				Language: lang.rule.Name,
				File:     first(files),
				Context:  window(masked, loc[0], loc[1]),
			},
			Severity: SeverityCritical,
		})
	}

	for _, lang := range o.forbidden {
		rules = append(rules, RuleForbiddenFile+":"+lang.rule.Name)
	}
	for _, f := range files {
		for _, lang := range o.forbidden {
			if !lang.rule.MatchesPath(f) || o.policy.IsExcepted(lang.rule.Name, f) {
				continue
			}
			violations = append(violations, Violation{
				Rule: RuleForbiddenFile + ":" + lang.rule.Name,
				Kind: ForbiddenLanguage{
					Language: lang.rule.Name,
					File:     f,
					Context:  fmt.Sprintf("File extension matches forbidden language: %s", lang.rule.Name),
				},
				Severity: SeverityCritical,
			})
		}
	}

	for _, tc := range o.policy.Toolchain.Rules {
		id := fmt.Sprintf("%s:%s:%s", RuleToolchain, tc.Tool, tc.Requires)
		rules = append(rules, id)
		if !tc.ToolPresent(p.Content, files) || tc.RequirementPresent(p.Content, files) {
			continue
		}
		violations = append(violations, Violation{
			Rule:     id,
			Kind:     ForbiddenToolchain{Tool: tc.Tool, Missing: tc.Requires},
			Severity: SeverityHigh,
		})
	}

	for _, cp := range o.patterns {
		id := RulePattern + ":" + cp.Rule.Name
		rules = append(rules, id)
		file, ok := cp.Rule.AppliesTo(files)
		if !ok {
			continue
		}
		loc := cp.Re.FindStringIndex(p.Content)
		if loc == nil {
			continue
		}
		match := p.Content[loc[0]:loc[1]]
		if cp.Rule.IsSecurity() {
			violations = append(violations, Violation{
				Rule: id,
				Kind: SecurityViolation{
					Rule:        cp.Rule.Name,
					Description: cp.Rule.Reason,
					File:        file,
					Match:       redact.Secrets(match),
				},
				Severity: SeverityCritical,
			})
			continue
		}
		violations = append(violations, Violation{
			Rule:     id,
			Kind:     ForbiddenPattern{Pattern: cp.Rule.Name, File: file, Match: redact.Secrets(match)},
			Severity: SeverityHigh,
		})
	}

	for _, lang := range o.tier2 {
		id := RuleTier2Language + ":" + lang.rule.Name
		rules = append(rules, id)
		file, hit := lang.matchFiles(files)
		if !hit && lang.find(p.Content) == nil {
			continue
		}
		if !hit {
			file = first(files)
		}
		concerns = append(concerns, tier2Concern(id, lang.rule.Name, file))
	}

	return Evaluation{
		ProposalID:   p.ID,
		Verdict:      selectVerdict(violations, concerns),
		RulesChecked: rules,
		Violations:   violations,
		Concerns:     concerns,
	}
}

// selectVerdict picks the first violation, else the first concern.
// Scan order breaks ties, not severity.
func selectVerdict(violations []Violation, concerns []Concern) PolicyVerdict {
	if len(violations) > 0 {
		return HardViolation{Kind: violations[0].Kind}
	}
	if len(concerns) > 0 {
		return SoftConcern{Kind: concerns[0].Kind}
	}
	return Compliant{}
}

func tier2Concern(rule, language, file string) Concern {
	return Concern{
		Rule:       rule,
		Kind:       Tier2Language{Language: language, File: file},
		Suggestion: fmt.Sprintf("Consider using a Tier 1 language instead of %s", language),
	}
}

func compileLanguages(rules []policy.LanguageRule) []compiledLanguage {
	out := make([]compiledLanguage, 0, len(rules))
	for _, r := range rules {
		cl := compiledLanguage{rule: r}
		for _, m := range r.Markers {
			if m == "" {
				continue
			}
			cl.markers = append(cl.markers, regexp.MustCompile("(?i)"+regexp.QuoteMeta(m)))
		}
		out = append(out, cl)
	}
	return out
}

// find returns the location of the first marker, in marker order, that
// occurs in content.
func (l compiledLanguage) find(content string) []int {
	for _, re := range l.markers {
		if loc := re.FindStringIndex(content); loc != nil {
			return loc
		}
	}
	return nil
}

func (l compiledLanguage) matchFiles(files []string) (string, bool) {
	for _, f := range files {
		if l.rule.MatchesPath(f) {
			return f, true
		}
	}
	return "", false
}

// window returns "...<text>..." with contextRadius bytes on each side of
// [start,end), widened to rune boundaries.
func window(content string, start, end int) string {
	lo := max(start-contextRadius, 0)
	for lo > 0 && !utf8.RuneStart(content[lo]) {
		lo--
	}
	hi := min(end+contextRadius, len(content))
	for hi < len(content) && !utf8.RuneStart(content[hi]) {
		hi++
	}
	return "..." + content[lo:hi] + "..."
}

func first(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return files[0]
}
