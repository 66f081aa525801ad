package contract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/conative/internal/oracle"
)

const concernRemediation = "Consider refactoring to address the concern"

var languageCodes = map[string]RefusalCode{
	"typescript": CodeTypeScript,
	"python":     CodePython,
	"go":         CodeGo,
	"java":       CodeJava,
	"kotlin":     CodeKotlin,
	"swift":      CodeSwift,
}

var languageRemediations = map[string]string{
	"typescript": "Use ReScript instead of TypeScript",
	"python":     "Python is only allowed in salt/ for SaltStack configs",
	"go":         "Use Rust instead of Go",
	"java":       "Use Rust/Tauri/Dioxus instead of Java",
}

var toolchainCodes = map[string]RefusalCode{
	"npm":          CodeNpmWithoutDeno,
	"yarn":         CodeYarnWithoutDeno,
	"node_modules": CodeNodeModules,
	"package.json": CodePackageJSON,
}

var securityCodes = map[string]RefusalCode{
	"hardcoded_secrets": CodeHardcodedSecret,
	"insecure_hash":     CodeInsecureHash,
	"http_url":          CodeHTTPURL,
	"command_injection": CodeCommandInject,
	"sql_injection":     CodeSQLInjection,
}

var securityRemediations = map[string]string{
	"hardcoded_secrets": "Remove hardcoded secrets and use environment variables",
	"insecure_hash":     "Use SHA-256 or stronger instead of MD5/SHA-1",
	"http_url":          "Use https URLs",
	"command_injection": "Pass arguments directly instead of through a shell",
	"sql_injection":     "Use parameterized queries",
}

var patternCodes = map[string]RefusalCode{
	"forbidden_import": CodeForbiddenImport,
	"unsafe_block":     CodeUnsafeBlock,
}

// Derive maps an oracle evaluation to a verdict and refusal.
// Compliant yields Allow with no refusal, SoftConcern yields an
// overridable Warn, HardViolation yields a non-overridable Block.
func Derive(eval *oracle.Evaluation) (Verdict, *Refusal) {
	switch v := eval.Verdict.(type) {
	case oracle.HardViolation:
		r := violationRefusal(v.Kind)
		r.Evidence = make([]Evidence, 0, len(eval.Violations))
		for _, viol := range eval.Violations {
			r.Evidence = append(r.Evidence, violationEvidence(viol))
		}
		return Block, r
	case oracle.SoftConcern:
		r := concernRefusal(v.Kind)
		r.Evidence = []Evidence{}
		for _, c := range eval.Concerns {
			if ev, ok := concernEvidence(c); ok {
				r.Evidence = append(r.Evidence, ev)
			}
		}
		return Warn, r
	default:
		return Allow, nil
	}
}

func violationRefusal(kind oracle.ViolationKind) *Refusal {
	r := &Refusal{Overridable: false, OverrideLevel: AuthNone}

	switch k := kind.(type) {
	case oracle.ForbiddenLanguage:
		lang := strings.ToLower(k.Language)
		r.Category = CategoryForbiddenLanguage
		r.Code = lookup(languageCodes, lang, CodeOtherLanguage)
		r.Message = fmt.Sprintf("Forbidden language '%s' detected", k.Language)
		r.Remediation = languageRemediations[lang]
	case oracle.ForbiddenToolchain:
		r.Category = CategoryForbiddenToolchain
		r.Code = lookup(toolchainCodes, strings.ToLower(k.Tool), CodeOtherToolchain)
		r.Message = fmt.Sprintf("Toolchain violation: %s requires %s", k.Tool, k.Missing)
		r.Remediation = fmt.Sprintf("Add %s to use %s", k.Missing, k.Tool)
	case oracle.SecurityViolation:
		r.Category = CategorySecurityViolation
		r.Code = lookup(securityCodes, k.Rule, CodeOtherSecurity)
		r.Message = fmt.Sprintf("Security violation: %s", k.Description)
		r.Remediation = securityRemediations[k.Rule]
		if r.Remediation == "" {
			r.Remediation = "Remove the flagged content"
		}
	case oracle.ForbiddenPattern:
		r.Category = CategoryForbiddenPattern
		r.Code = lookup(patternCodes, k.Pattern, CodeOtherPattern)
		r.Message = fmt.Sprintf("Forbidden pattern '%s' detected", k.Pattern)
	default:
		r.Category = CategorySystemError
		r.Code = CodeUnknown
		r.Message = fmt.Sprintf("Unmapped violation %T", kind)
	}
	return r
}

func concernRefusal(kind oracle.ConcernKind) *Refusal {
	r := &Refusal{
		Remediation:   concernRemediation,
		Overridable:   true,
		OverrideLevel: AuthUser,
	}

	switch k := kind.(type) {
	case oracle.VerbositySmell:
		r.Category = CategoryVerbositySmell
		r.Code = CodeVerbosity
		r.Message = "Excessive verbosity detected"
	case oracle.PatternDeviation:
		r.Category = CategoryStructuralAnomaly
		r.Code = CodeIntentMismatch
		r.Message = "Unusual pattern deviation detected"
	case oracle.UnusualStructure:
		r.Category = CategoryStructuralAnomaly
		r.Code = CodeIntentMismatch
		r.Message = "Unusual code structure detected"
	case oracle.Tier2Language:
		r.Category = CategoryForbiddenLanguage
		r.Code = CodeOtherLanguage
		r.Message = fmt.Sprintf("Tier 2 language '%s' - consider Tier 1 alternative", k.Language)
		r.Remediation = fmt.Sprintf("Consider using a Tier 1 language instead of %s", k.Language)
	default:
		r.Category = CategorySystemError
		r.Code = CodeUnknown
		r.Message = fmt.Sprintf("Unmapped concern %T", kind)
	}
	return r
}

func violationEvidence(v oracle.Violation) Evidence {
	switch k := v.Kind.(type) {
	case oracle.ForbiddenLanguage:
		typ := EvidenceContentMarker
		if strings.HasPrefix(v.Rule, oracle.RuleForbiddenFile+":") {
			typ = EvidenceFileExtension
		}
		return Evidence{
			Type:         typ,
			File:         k.File,
			MatchContent: k.Context,
			Explanation:  fmt.Sprintf("%s code detected", k.Language),
		}
	case oracle.ForbiddenToolchain:
		return Evidence{
			Type:         EvidenceFileExtension,
			MatchContent: k.Tool,
			Explanation:  fmt.Sprintf("%s detected without %s", k.Tool, k.Missing),
		}
	case oracle.SecurityViolation:
		return Evidence{
			Type:         EvidenceRegexMatch,
			File:         k.File,
			MatchContent: k.Match,
			Explanation:  k.Description,
		}
	case oracle.ForbiddenPattern:
		match := k.Match
		if match == "" {
			match = k.Pattern
		}
		return Evidence{
			Type:         EvidenceRegexMatch,
			File:         k.File,
			MatchContent: match,
			Explanation:  "Pattern matched forbidden regex",
		}
	default:
		return Evidence{Type: EvidenceSyntaxPattern, MatchContent: v.Rule, Explanation: "unmapped violation"}
	}
}

func concernEvidence(c oracle.Concern) (Evidence, bool) {
	t2, ok := c.Kind.(oracle.Tier2Language)
	if !ok || t2.File == "" {
		return Evidence{}, false
	}
	return Evidence{
		Type:         EvidenceFileExtension,
		File:         t2.File,
		MatchContent: t2.Language,
		Explanation:  c.Suggestion,
	}, true
}

func lookup(table map[string]RefusalCode, key string, fallback RefusalCode) RefusalCode {
	if c, ok := table[key]; ok {
		return c
	}
	return fallback
}
