package oracle

import (
	"encoding/json"
	"fmt"
)

// Severity ranks a violation.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ViolationKind is a closed set of hard-violation variants. Switches over
// it must handle ForbiddenLanguage, ForbiddenToolchain, SecurityViolation
// and ForbiddenPattern.
type ViolationKind interface {
	violationKind()
	Name() string
}

// ForbiddenLanguage is forbidden-language content or a forbidden extension.
type ForbiddenLanguage struct {
	Language string `json:"language"`
	File     string `json:"file"`
	Context  string `json:"context"`
}

// ForbiddenToolchain is a tool used without its required companion.
type ForbiddenToolchain struct {
	Tool    string `json:"tool"`
	Missing string `json:"missing"`
}

// SecurityViolation is a hit on a security-category pattern rule.
// Match is already masked.
type SecurityViolation struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	File        string `json:"file,omitempty"`
	Match       string `json:"match,omitempty"`
}

// ForbiddenPattern is a hit on a generic pattern rule.
type ForbiddenPattern struct {
	Pattern string `json:"pattern"`
	File    string `json:"file"`
	Match   string `json:"match,omitempty"`
}

func (ForbiddenLanguage) violationKind()  {}
func (ForbiddenToolchain) violationKind() {}
func (SecurityViolation) violationKind()  {}
func (ForbiddenPattern) violationKind()   {}

func (ForbiddenLanguage) Name() string  { return "ForbiddenLanguage" }
func (ForbiddenToolchain) Name() string { return "ForbiddenToolchain" }
func (SecurityViolation) Name() string  { return "SecurityViolation" }
func (ForbiddenPattern) Name() string   { return "ForbiddenPattern" }

type (
	forbiddenLanguageJSON  ForbiddenLanguage
	forbiddenToolchainJSON ForbiddenToolchain
	securityViolationJSON  SecurityViolation
	forbiddenPatternJSON   ForbiddenPattern
)

func (v ForbiddenLanguage) MarshalJSON() ([]byte, error) {
	return tagged(v.Name(), forbiddenLanguageJSON(v))
}

func (v ForbiddenToolchain) MarshalJSON() ([]byte, error) {
	return tagged(v.Name(), forbiddenToolchainJSON(v))
}

func (v SecurityViolation) MarshalJSON() ([]byte, error) {
	return tagged(v.Name(), securityViolationJSON(v))
}

func (v ForbiddenPattern) MarshalJSON() ([]byte, error) {
	return tagged(v.Name(), forbiddenPatternJSON(v))
}

// ConcernKind is a closed set of soft-concern variants.
type ConcernKind interface {
	concernKind()
	Name() string
}

type (
	VerbositySmell   struct{}
	PatternDeviation struct{}
	UnusualStructure struct{}
)

// Tier2Language is content or a file in a tolerated language.
type Tier2Language struct {
	Language string `json:"language"`
	File     string `json:"file,omitempty"`
}

func (VerbositySmell) concernKind()   {}
func (PatternDeviation) concernKind() {}
func (UnusualStructure) concernKind() {}
func (Tier2Language) concernKind()    {}

func (VerbositySmell) Name() string   { return "VerbositySmell" }
func (PatternDeviation) Name() string { return "PatternDeviation" }
func (UnusualStructure) Name() string { return "UnusualStructure" }
func (Tier2Language) Name() string    { return "Tier2Language" }

func (c VerbositySmell) MarshalJSON() ([]byte, error)   { return json.Marshal(c.Name()) }
func (c PatternDeviation) MarshalJSON() ([]byte, error) { return json.Marshal(c.Name()) }
func (c UnusualStructure) MarshalJSON() ([]byte, error) { return json.Marshal(c.Name()) }

type tier2LanguageJSON Tier2Language

func (c Tier2Language) MarshalJSON() ([]byte, error) {
	return tagged(c.Name(), tier2LanguageJSON(c))
}

// Violation is one hard finding, traceable to exactly one rule id.
type Violation struct {
	Rule     string        `json:"rule"`
	Kind     ViolationKind `json:"violation_type"`
	Severity Severity      `json:"severity"`
}

// Concern is one soft finding, traceable to exactly one rule id.
type Concern struct {
	Rule       string      `json:"rule"`
	Kind       ConcernKind `json:"concern_type"`
	Suggestion string      `json:"suggestion"`
}

// PolicyVerdict is Compliant, HardViolation or SoftConcern.
type PolicyVerdict interface {
	policyVerdict()
	String() string
}

type Compliant struct{}

// HardViolation carries the first violation in scan order.
type HardViolation struct {
	Kind ViolationKind
}

// SoftConcern carries the first concern in scan order.
type SoftConcern struct {
	Kind ConcernKind
}

func (Compliant) policyVerdict()     {}
func (HardViolation) policyVerdict() {}
func (SoftConcern) policyVerdict()   {}

func (Compliant) String() string       { return "Compliant" }
func (v HardViolation) String() string { return "HardViolation(" + v.Kind.Name() + ")" }
func (v SoftConcern) String() string   { return "SoftConcern(" + v.Kind.Name() + ")" }

func (Compliant) MarshalJSON() ([]byte, error) { return json.Marshal("Compliant") }

func (v HardViolation) MarshalJSON() ([]byte, error) {
	return tagged("HardViolation", v.Kind)
}

func (v SoftConcern) MarshalJSON() ([]byte, error) {
	return tagged("SoftConcern", v.Kind)
}

// VerdictName returns the bare variant name of a verdict.
func VerdictName(v PolicyVerdict) string {
	switch v.(type) {
	case HardViolation:
		return "HardViolation"
	case SoftConcern:
		return "SoftConcern"
	default:
		return "Compliant"
	}
}

// Evaluation is the full result of checking one proposal.
type Evaluation struct {
	ProposalID   string        `json:"proposal_id"`
	Verdict      PolicyVerdict `json:"verdict"`
	RulesChecked []string      `json:"rules_checked"`
	Violations   []Violation   `json:"violations"`
	Concerns     []Concern     `json:"concerns"`
}

// RulesTriggered lists violation rule ids followed by concern rule ids.
func (e *Evaluation) RulesTriggered() []string {
	out := make([]string, 0, len(e.Violations)+len(e.Concerns))
	for _, v := range e.Violations {
		out = append(out, v.Rule)
	}
	for _, c := range e.Concerns {
		out = append(out, c.Rule)
	}
	return out
}

func tagged(tag string, v any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{tag: v})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", tag, err)
	}
	return data, nil
}
