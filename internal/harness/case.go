// Package harness runs labeled training cases through the contract
// runner and accumulates pass/fail results.
package harness

import (
	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/model"
)

// TrainingFile is the on-disk format of one labeled case.
type TrainingFile struct {
	Proposal        *model.Proposal `json:"proposal" yaml:"proposal"`
	ExpectedVerdict string          `json:"expected_verdict" yaml:"expected_verdict"`
	Reasoning       string          `json:"reasoning" yaml:"reasoning"`
	Category        string          `json:"category" yaml:"category"`
	ViolationType   *string         `json:"violation_type" yaml:"violation_type"`
	ConcernType     *string         `json:"concern_type" yaml:"concern_type"`
	SpiritViolation bool            `json:"spirit_violation" yaml:"spirit_violation"`
	RedteamCategory string          `json:"redteam_category" yaml:"redteam_category"`
	AttackVector    string          `json:"attack_vector" yaml:"attack_vector"`
	KnownLimitation bool            `json:"known_limitation" yaml:"known_limitation"`
}

// Case is a loaded, labeled proposal.
type Case struct {
	Name             string
	Description      string
	Proposal         *model.Proposal
	ExpectedVerdict  contract.Verdict
	ExpectedCategory *contract.RefusalCategory

	// Red-team metadata; RedteamCategory is empty for ordinary cases.
	RedteamCategory string
	AttackVector    string
	KnownLimitation bool
}

// Result is the outcome of running one case. Errored marks a case the
// runner could not evaluate; its ActualVerdict is then a placeholder.
type Result struct {
	Name            string                    `json:"name"`
	Passed          bool                      `json:"passed"`
	ActualVerdict   contract.Verdict          `json:"actual_verdict"`
	ExpectedVerdict contract.Verdict          `json:"expected_verdict"`
	ActualCategory  *contract.RefusalCategory `json:"actual_category,omitempty"`
	ActualCode      *contract.RefusalCode     `json:"actual_code,omitempty"`
	Error           string                    `json:"error,omitempty"`
	Errored         bool                      `json:"errored,omitempty"`
	DurationUS      int64                     `json:"duration_us"`
}

// ExpectedCategoryFor derives the refusal category a training file
// expects. The first present field wins: spirit_violation, then
// violation_type, then concern_type, then the free-form category.
func ExpectedCategoryFor(f *TrainingFile, verdict contract.Verdict) *contract.RefusalCategory {
	cat := func(c contract.RefusalCategory) *contract.RefusalCategory { return &c }

	switch {
	case f.SpiritViolation:
		return cat(contract.CategoryVerbositySmell)
	case f.ViolationType != nil:
		switch c := contract.RefusalCategory(*f.ViolationType); c {
		case contract.CategoryForbiddenLanguage, contract.CategoryForbiddenToolchain,
			contract.CategorySecurityViolation, contract.CategoryForbiddenPattern:
			return cat(c)
		}
		return nil
	case f.ConcernType != nil:
		switch *f.ConcernType {
		case "VerbositySmell":
			return cat(contract.CategoryVerbositySmell)
		case "PatternDeviation", "UnusualStructure":
			return cat(contract.CategoryStructuralAnomaly)
		}
		return nil
	}

	switch f.Category {
	case "language":
		if verdict == contract.Block {
			return cat(contract.CategoryForbiddenLanguage)
		}
	case "toolchain":
		return cat(contract.CategoryForbiddenToolchain)
	case "security":
		return cat(contract.CategorySecurityViolation)
	case "pattern":
		return cat(contract.CategoryForbiddenPattern)
	case "spirit":
		return cat(contract.CategoryVerbositySmell)
	}
	return nil
}
