package policy

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrPolicyParse is matched by every PolicyParseError.
var ErrPolicyParse = errors.New("policy parse error")

// PolicyParseError is a policy authoring fault. It is reported before any
// proposal is evaluated and is fatal for the run.
type PolicyParseError struct {
	Rule    string
	Pattern string
	Err     error
}

func (e *PolicyParseError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("policy parse error: rule %q: pattern %q: %v", e.Rule, e.Pattern, e.Err)
	}
	return fmt.Sprintf("policy parse error: rule %q: %v", e.Rule, e.Err)
}

func (e *PolicyParseError) Unwrap() error { return e.Err }

func (e *PolicyParseError) Is(target error) bool { return target == ErrPolicyParse }

// CompiledPattern pairs a pattern rule with its compiled regex.
type CompiledPattern struct {
	Rule PatternRule
	Re   *regexp.Regexp
}

// CompilePatterns compiles every forbidden pattern in policy order.
func (p *Policy) CompilePatterns() ([]CompiledPattern, error) {
	out := make([]CompiledPattern, 0, len(p.Patterns.Forbidden))
	for _, r := range p.Patterns.Forbidden {
		if r.Name == "" {
			return nil, &PolicyParseError{Pattern: r.Regex, Err: errors.New("pattern rule has no name")}
		}
		switch r.Category {
		case "", CategorySecurity, CategoryPattern:
		default:
			return nil, &PolicyParseError{Rule: r.Name, Err: fmt.Errorf("unknown category %q", r.Category)}
		}
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, &PolicyParseError{Rule: r.Name, Pattern: r.Regex, Err: err}
		}
		out = append(out, CompiledPattern{Rule: r, Re: re})
	}
	return out, nil
}

// Validate checks the policy for authoring errors.
func (p *Policy) Validate() error {
	if _, err := p.CompilePatterns(); err != nil {
		return err
	}
	for _, groups := range [][]LanguageRule{p.Languages.Tier1, p.Languages.Tier2, p.Languages.Forbidden} {
		for _, r := range groups {
			if r.Name == "" {
				return &PolicyParseError{Err: errors.New("language rule has no name")}
			}
		}
	}
	for _, r := range p.Toolchain.Rules {
		if r.Tool == "" || r.Requires == "" {
			return &PolicyParseError{Rule: r.Tool, Err: errors.New("toolchain rule needs tool and requires")}
		}
	}
	return nil
}
