package contract

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ppiankov/conative/internal/oracle"
)

// RefusalCategory is the closed set of refusal classes.
type RefusalCategory string

const (
	CategoryForbiddenLanguage  RefusalCategory = "ForbiddenLanguage"
	CategoryForbiddenToolchain RefusalCategory = "ForbiddenToolchain"
	CategorySecurityViolation  RefusalCategory = "SecurityViolation"
	CategoryForbiddenPattern   RefusalCategory = "ForbiddenPattern"
	CategoryVerbositySmell     RefusalCategory = "VerbositySmell"
	CategoryStructuralAnomaly  RefusalCategory = "StructuralAnomaly"
	CategoryIntentViolation    RefusalCategory = "IntentViolation"
	CategoryAdversarialInput   RefusalCategory = "AdversarialInput"
	CategoryInvalidRequest     RefusalCategory = "InvalidRequest"
	CategoryRateLimited        RefusalCategory = "RateLimited"
	CategorySystemError        RefusalCategory = "SystemError"
)

type categoryInfo struct {
	display  string
	hard     bool
	severity oracle.Severity
}

var categories = map[RefusalCategory]categoryInfo{
	CategoryForbiddenLanguage:  {"Forbidden Language", true, oracle.SeverityCritical},
	CategoryForbiddenToolchain: {"Forbidden Toolchain", true, oracle.SeverityHigh},
	CategorySecurityViolation:  {"Security Violation", true, oracle.SeverityCritical},
	CategoryForbiddenPattern:   {"Forbidden Pattern", true, oracle.SeverityHigh},
	CategoryVerbositySmell:     {"Verbosity Smell", false, oracle.SeverityLow},
	CategoryStructuralAnomaly:  {"Structural Anomaly", false, oracle.SeverityMedium},
	CategoryIntentViolation:    {"Intent Violation", false, oracle.SeverityMedium},
	CategoryAdversarialInput:   {"Adversarial Input", false, oracle.SeverityCritical},
	CategoryInvalidRequest:     {"Invalid Request", true, oracle.SeverityMedium},
	CategoryRateLimited:        {"Rate Limited", false, oracle.SeverityLow},
	CategorySystemError:        {"System Error", true, oracle.SeverityHigh},
}

// Categories returns every refusal category in declaration order.
func Categories() []RefusalCategory {
	return []RefusalCategory{
		CategoryForbiddenLanguage, CategoryForbiddenToolchain, CategorySecurityViolation,
		CategoryForbiddenPattern, CategoryVerbositySmell, CategoryStructuralAnomaly,
		CategoryIntentViolation, CategoryAdversarialInput, CategoryInvalidRequest,
		CategoryRateLimited, CategorySystemError,
	}
}

// DisplayName returns a human-readable category name.
func (c RefusalCategory) DisplayName() string {
	if info, ok := categories[c]; ok {
		return info.display
	}
	return string(c)
}

// IsHard reports whether the category comes from deterministic checks.
func (c RefusalCategory) IsHard() bool {
	return categories[c].hard
}

// Severity returns the category's severity.
func (c RefusalCategory) Severity() oracle.Severity {
	if info, ok := categories[c]; ok {
		return info.severity
	}
	return oracle.SeverityMedium
}

// Valid reports whether c is a known category.
func (c RefusalCategory) Valid() bool {
	_, ok := categories[c]
	return ok
}

// RefusalCode is a stable numeric refusal code. Codes are grouped by
// hundreds and are append-only: never renumber an existing code.
type RefusalCode int

const (
	CodeTypeScript        RefusalCode = 100
	CodePython            RefusalCode = 101
	CodeGo                RefusalCode = 102
	CodeJava              RefusalCode = 103
	CodeKotlin            RefusalCode = 104
	CodeSwift             RefusalCode = 105
	CodeOtherLanguage     RefusalCode = 199
	CodeNpmWithoutDeno    RefusalCode = 200
	CodeYarnWithoutDeno   RefusalCode = 201
	CodeNodeModules       RefusalCode = 202
	CodePackageJSON       RefusalCode = 203
	CodeOtherToolchain    RefusalCode = 299
	CodeHardcodedSecret   RefusalCode = 300
	CodeInsecureHash      RefusalCode = 301
	CodeHTTPURL           RefusalCode = 302
	CodeCommandInject     RefusalCode = 303
	CodeSQLInjection      RefusalCode = 304
	CodeOtherSecurity     RefusalCode = 399
	CodeForbiddenImport   RefusalCode = 400
	CodeUnsafeBlock       RefusalCode = 401
	CodeOtherPattern      RefusalCode = 499
	CodeVerbosity         RefusalCode = 500
	CodeOverDocumented    RefusalCode = 501
	CodeRedundantComments RefusalCode = 502
	CodeBoilerplate       RefusalCode = 503
	CodeMetaCommentary    RefusalCode = 504
	CodeIntentMismatch    RefusalCode = 505
	CodeOtherSpirit       RefusalCode = 599
	CodeInvalidRequest    RefusalCode = 900
	CodeRateLimited       RefusalCode = 901
	CodeInternalError     RefusalCode = 902
	CodeUnknown           RefusalCode = 999
)

// Code groups, one per hundred.
const (
	GroupLanguage  = "language"
	GroupToolchain = "toolchain"
	GroupSecurity  = "security"
	GroupPattern   = "pattern"
	GroupSpirit    = "spirit"
	GroupSystem    = "system"
)

type codeInfo struct {
	name  string
	group string
}

var codes = map[RefusalCode]codeInfo{
	CodeTypeScript:        {"Lang100TypeScript", GroupLanguage},
	CodePython:            {"Lang101Python", GroupLanguage},
	CodeGo:                {"Lang102Go", GroupLanguage},
	CodeJava:              {"Lang103Java", GroupLanguage},
	CodeKotlin:            {"Lang104Kotlin", GroupLanguage},
	CodeSwift:             {"Lang105Swift", GroupLanguage},
	CodeOtherLanguage:     {"Lang199OtherForbidden", GroupLanguage},
	CodeNpmWithoutDeno:    {"Tool200NpmWithoutDeno", GroupToolchain},
	CodeYarnWithoutDeno:   {"Tool201YarnWithoutDeno", GroupToolchain},
	CodeNodeModules:       {"Tool202NodeModules", GroupToolchain},
	CodePackageJSON:       {"Tool203PackageJson", GroupToolchain},
	CodeOtherToolchain:    {"Tool299OtherToolchain", GroupToolchain},
	CodeHardcodedSecret:   {"Sec300HardcodedSecret", GroupSecurity},
	CodeInsecureHash:      {"Sec301InsecureHash", GroupSecurity},
	CodeHTTPURL:           {"Sec302HttpUrl", GroupSecurity},
	CodeCommandInject:     {"Sec303CommandInjection", GroupSecurity},
	CodeSQLInjection:      {"Sec304SqlInjection", GroupSecurity},
	CodeOtherSecurity:     {"Sec399OtherSecurity", GroupSecurity},
	CodeForbiddenImport:   {"Pat400ForbiddenImport", GroupPattern},
	CodeUnsafeBlock:       {"Pat401UnsafeBlock", GroupPattern},
	CodeOtherPattern:      {"Pat499OtherPattern", GroupPattern},
	CodeVerbosity:         {"Spirit500Verbosity", GroupSpirit},
	CodeOverDocumented:    {"Spirit501OverDocumentation", GroupSpirit},
	CodeRedundantComments: {"Spirit502RedundantComments", GroupSpirit},
	CodeBoilerplate:       {"Spirit503BoilerplateCode", GroupSpirit},
	CodeMetaCommentary:    {"Spirit504MetaCommentary", GroupSpirit},
	CodeIntentMismatch:    {"Spirit505IntentMismatch", GroupSpirit},
	CodeOtherSpirit:       {"Spirit599OtherSpirit", GroupSpirit},
	CodeInvalidRequest:    {"Sys900InvalidRequest", GroupSystem},
	CodeRateLimited:       {"Sys901RateLimited", GroupSystem},
	CodeInternalError:     {"Sys902InternalError", GroupSystem},
	CodeUnknown:           {"Sys999Unknown", GroupSystem},
}

// Codes returns every refusal code in ascending order.
func Codes() []RefusalCode {
	out := make([]RefusalCode, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Numeric returns the stable numeric value.
func (c RefusalCode) Numeric() int { return int(c) }

// Name returns the symbolic name, e.g. "Lang100TypeScript".
func (c RefusalCode) Name() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return fmt.Sprintf("Code%d", int(c))
}

// Group returns the hundred-range group of the code.
func (c RefusalCode) Group() string {
	return codes[c].group
}

func (c RefusalCode) String() string { return c.Name() }

// Valid reports whether c is in the code table.
func (c RefusalCode) Valid() bool {
	_, ok := codes[c]
	return ok
}

// UnmarshalJSON rejects codes outside the table.
func (c *RefusalCode) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if !RefusalCode(n).Valid() {
		return fmt.Errorf("unknown refusal code %d", n)
	}
	*c = RefusalCode(n)
	return nil
}

// EvidenceType says what kind of observation supports a refusal.
type EvidenceType string

const (
	EvidenceFileExtension     EvidenceType = "FileExtension"
	EvidenceContentMarker     EvidenceType = "ContentMarker"
	EvidenceRegexMatch        EvidenceType = "RegexMatch"
	EvidenceSyntaxPattern     EvidenceType = "SyntaxPattern"
	EvidenceSLMAnalysis       EvidenceType = "SlmAnalysis"
	EvidenceHistoricalPattern EvidenceType = "HistoricalPattern"
)

// Evidence is one observation backing a refusal.
type Evidence struct {
	Type         EvidenceType `json:"evidence_type"`
	File         string       `json:"file,omitempty"`
	Line         int          `json:"line,omitempty"`
	MatchContent string       `json:"match_content"`
	Explanation  string       `json:"explanation"`
}

// AuthorizationLevel is who may override a refusal.
type AuthorizationLevel string

const (
	AuthUser       AuthorizationLevel = "User"
	AuthMaintainer AuthorizationLevel = "Maintainer"
	AuthAdmin      AuthorizationLevel = "Admin"
	AuthNone       AuthorizationLevel = "None"
)

// Rank orders levels; None outranks every human role.
func (a AuthorizationLevel) Rank() int {
	switch a {
	case AuthUser:
		return 1
	case AuthMaintainer:
		return 2
	case AuthAdmin:
		return 3
	case AuthNone:
		return 100
	default:
		return 0
	}
}

// Refusal explains a non-Allow verdict.
type Refusal struct {
	Category      RefusalCategory    `json:"category"`
	Code          RefusalCode        `json:"code"`
	Message       string             `json:"message"`
	Remediation   string             `json:"remediation,omitempty"`
	Evidence      []Evidence         `json:"evidence"`
	Overridable   bool               `json:"overridable"`
	OverrideLevel AuthorizationLevel `json:"override_level,omitempty"`
}
