package policy

// LanguageRule classifies content and paths into a language by file
// extension or by case-insensitive content marker.
type LanguageRule struct {
	Name       string   `yaml:"name" json:"name" pkl:"name"`
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty" pkl:"extensions"`
	Markers    []string `yaml:"markers,omitempty" json:"markers,omitempty" pkl:"markers"`
}

// ExceptionRule silences forbidden-language hits for one language when an
// affected path contains one of the allowed prefixes.
type ExceptionRule struct {
	Language     string   `yaml:"language" json:"language" pkl:"language"`
	AllowedPaths []string `yaml:"allowed_paths" json:"allowed_paths" pkl:"allowed_paths"`
	Reason       string   `yaml:"reason" json:"reason" pkl:"reason"`
}

// ToolchainRule is violated when the tool is present without its companion.
type ToolchainRule struct {
	Tool            string   `yaml:"tool" json:"tool" pkl:"tool"`
	ToolMarkers     []string `yaml:"tool_markers" json:"tool_markers" pkl:"tool_markers"`
	Requires        string   `yaml:"requires" json:"requires" pkl:"requires"`
	RequiresMarkers []string `yaml:"requires_markers" json:"requires_markers" pkl:"requires_markers"`
}

// Pattern rule categories.
const (
	CategorySecurity = "security"
	CategoryPattern  = "pattern"
)

// PatternRule forbids content matching a regular expression.
type PatternRule struct {
	Name      string   `yaml:"name" json:"name" pkl:"name"`
	Regex     string   `yaml:"regex" json:"regex" pkl:"regex"`
	FileTypes []string `yaml:"file_types,omitempty" json:"file_types,omitempty" pkl:"file_types"`
	Reason    string   `yaml:"reason" json:"reason" pkl:"reason"`
	Category  string   `yaml:"category,omitempty" json:"category,omitempty" pkl:"category"`
}

// IsSecurity reports whether hits on this rule are security violations.
func (r PatternRule) IsSecurity() bool {
	return r.Category == CategorySecurity
}

// LanguagePolicy groups language tiers and exceptions.
type LanguagePolicy struct {
	Tier1      []LanguageRule  `yaml:"tier1" json:"tier1" pkl:"tier1"`
	Tier2      []LanguageRule  `yaml:"tier2" json:"tier2" pkl:"tier2"`
	Forbidden  []LanguageRule  `yaml:"forbidden" json:"forbidden" pkl:"forbidden"`
	Exceptions []ExceptionRule `yaml:"exceptions" json:"exceptions" pkl:"exceptions"`
}

// ToolchainPolicy holds toolchain co-requirement rules.
type ToolchainPolicy struct {
	Rules []ToolchainRule `yaml:"rules" json:"rules" pkl:"rules"`
}

// PatternPolicy holds forbidden content patterns.
type PatternPolicy struct {
	Forbidden []PatternRule `yaml:"forbidden" json:"forbidden" pkl:"forbidden"`
}

// Enforcement carries weights and thresholds reserved for the neural stage.
type Enforcement struct {
	SLMWeight         float64 `yaml:"slm_weight" json:"slm_weight" pkl:"slm_weight"`
	EscalateThreshold float64 `yaml:"escalate_threshold" json:"escalate_threshold" pkl:"escalate_threshold"`
	BlockThreshold    float64 `yaml:"block_threshold" json:"block_threshold" pkl:"block_threshold"`
}

// Policy is the full rule set. It is read-only once loaded and may be
// shared across goroutines.
type Policy struct {
	Name        string          `yaml:"name" json:"name" pkl:"name"`
	Languages   LanguagePolicy  `yaml:"languages" json:"languages" pkl:"languages"`
	Toolchain   ToolchainPolicy `yaml:"toolchain" json:"toolchain" pkl:"toolchain"`
	Patterns    PatternPolicy   `yaml:"patterns" json:"patterns" pkl:"patterns"`
	Enforcement Enforcement     `yaml:"enforcement" json:"enforcement" pkl:"enforcement"`
}

// RuleCount returns the number of individual rules the oracle checks.
func (p *Policy) RuleCount() int {
	return len(p.Languages.Forbidden)*2 +
		len(p.Toolchain.Rules) +
		len(p.Patterns.Forbidden) +
		len(p.Languages.Tier2)
}
