// Package redteam scores adversarial harness cases: attacks that should
// be blocked and benign inputs that should not.
package redteam

import (
	"context"
	"sort"
	"strings"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/harness"
)

// Category groups adversarial techniques.
type Category string

const (
	DocumentationBypass Category = "DocumentationBypass"
	MarkerObfuscation   Category = "MarkerObfuscation"
	EncodedContent      Category = "EncodedContent"
	BoundaryCondition   Category = "BoundaryCondition"
	ContentInjection    Category = "ContentInjection"
	SecretEvasion       Category = "SecretEvasion"
	FalsePositiveCheck  Category = "FalsePositiveCheck"
)

// customPrefix marks labels outside the known set.
const customPrefix = "Custom:"

// ParseCategory maps a free-form label to a category. Unknown labels
// become Custom categories carrying the lowercased label.
func ParseCategory(label string) Category {
	switch l := strings.ToLower(strings.TrimSpace(label)); l {
	case "documentation_bypass", "doc_bypass", "comment_bypass":
		return DocumentationBypass
	case "marker_split", "marker_obfuscation", "case_evasion", "extension_masking":
		return MarkerObfuscation
	case "encoded_secrets", "encoding":
		return EncodedContent
	case "edge_case", "boundary", "unicode_evasion":
		return BoundaryCondition
	case "polyglot", "injection":
		return ContentInjection
	case "secret_hiding", "secret_splitting":
		return SecretEvasion
	case "false_positive_avoidance", "false_positive":
		return FalsePositiveCheck
	default:
		return Category(customPrefix + l)
	}
}

// IsCustom reports whether c came from an unknown label.
func (c Category) IsCustom() bool {
	return strings.HasPrefix(string(c), customPrefix)
}

// Case is a harness case with adversarial metadata.
type Case struct {
	harness.Case
	Category Category
}

// IsFalsePositiveCheck reports whether the case is benign input that
// must not be blocked.
func (c Case) IsFalsePositiveCheck() bool {
	return c.Category == FalsePositiveCheck || c.ExpectedVerdict == contract.Allow
}

// Select keeps the cases that carry a red-team category.
func Select(cases []harness.Case) []Case {
	var out []Case
	for _, c := range cases {
		if c.RedteamCategory == "" {
			continue
		}
		out = append(out, Case{Case: c, Category: ParseCategory(c.RedteamCategory)})
	}
	return out
}

// Outcome is the result of one adversarial case.
type Outcome struct {
	Name          string           `json:"name"`
	Category      Category         `json:"category"`
	AttackVector  string           `json:"attack_vector,omitempty"`
	Verdict       contract.Verdict `json:"verdict,omitempty"`
	FalsePositive bool             `json:"false_positive"`
	Bypassed      bool             `json:"bypassed"`
	Errored       bool             `json:"errored,omitempty"`
	Error         string           `json:"error,omitempty"`
	Known         bool             `json:"known_limitation"`
}

// CategoryStats counts outcomes within one category.
type CategoryStats struct {
	Total          int `json:"total"`
	Blocked        int `json:"blocked"`
	Bypassed       int `json:"bypassed"`
	FalsePositives int `json:"false_positives"`
	Errors         int `json:"errors"`
	Clean          int `json:"clean"`
}

// Summary aggregates a red-team run.
type Summary struct {
	Total             int                         `json:"total"`
	Blocked           int                         `json:"blocked"`
	Bypassed          int                         `json:"bypassed"`
	FalsePositives    int                         `json:"false_positives"`
	KnownLimitations  int                         `json:"known_limitations"`
	Errors            int                         `json:"errors"`
	ByCategory        map[Category]*CategoryStats `json:"by_category"`
	BypassRate        float64                     `json:"bypass_rate"`
	FalsePositiveRate float64                     `json:"false_positive_rate"`
	SecurityScore     int                         `json:"security_score"`
	Outcomes          []Outcome                   `json:"outcomes"`
}

// Classify turns a case and its harness result into an outcome. Attack
// cases are blocked only by a Block verdict; false-positive checks fail
// only when blocked. A case that could not be evaluated is errored and
// neither blocked nor bypassed.
func Classify(c Case, r harness.Result) Outcome {
	o := Outcome{
		Name:         c.Name,
		Category:     c.Category,
		AttackVector: c.AttackVector,
		Verdict:      r.ActualVerdict,
		Known:        c.KnownLimitation,
	}
	switch {
	case r.Errored:
		o.Verdict = ""
		o.Errored = true
		o.Error = r.Error
	case c.IsFalsePositiveCheck():
		o.FalsePositive = r.ActualVerdict == contract.Block
	default:
		o.Bypassed = r.ActualVerdict != contract.Block
	}
	return o
}

// Summarize aggregates outcomes.
func Summarize(outcomes []Outcome) *Summary {
	s := &Summary{
		ByCategory: map[Category]*CategoryStats{},
		Outcomes:   outcomes,
	}
	for _, o := range outcomes {
		st, ok := s.ByCategory[o.Category]
		if !ok {
			st = &CategoryStats{}
			s.ByCategory[o.Category] = st
		}
		st.Total++
		s.Total++

		switch {
		case o.Errored:
			st.Errors++
			s.Errors++
		case o.FalsePositive:
			st.FalsePositives++
			s.FalsePositives++
		case o.Bypassed:
			st.Bypassed++
			s.Bypassed++
			if o.Known {
				s.KnownLimitations++
			}
		case o.Verdict == contract.Block:
			st.Blocked++
			s.Blocked++
		default:
			st.Clean++
		}
	}
	if s.Total > 0 {
		s.BypassRate = float64(s.Bypassed) / float64(s.Total)
		s.FalsePositiveRate = float64(s.FalsePositives) / float64(s.Total)
	}
	s.SecurityScore = s.Score()
	return s
}

// Score is (blocked rate - half the false-positive rate) as a 0..100
// integer. Errored cases count toward the total but never as blocked.
// An empty run scores 100.
func (s *Summary) Score() int {
	if s.Total == 0 {
		return 100
	}
	score := (float64(s.Blocked) - 0.5*float64(s.FalsePositives)) * 100 / float64(s.Total)
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return int(score)
}

// HasUnexpectedBypasses reports bypasses beyond the known limitations.
func (s *Summary) HasUnexpectedBypasses() bool {
	return s.Bypassed > s.KnownLimitations
}

// HasErrors reports whether any case could not be evaluated.
func (s *Summary) HasErrors() bool {
	return s.Errors > 0
}

// Categories returns the categories present, sorted.
func (s *Summary) Categories() []Category {
	out := make([]Category, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run evaluates red-team cases through the harness and summarizes them.
func Run(ctx context.Context, runner *contract.Runner, cases []Case, jobs int) (*Summary, error) {
	base := make([]harness.Case, len(cases))
	for i, c := range cases {
		base[i] = c.Case
	}
	hs, err := harness.RunAll(ctx, runner, base, harness.Options{Jobs: jobs})
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, len(hs.Results))
	for i, r := range hs.Results {
		outcomes[i] = Classify(cases[i], r)
	}
	return Summarize(outcomes), nil
}
