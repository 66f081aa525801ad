package cli

import (
	"fmt"

	"github.com/ppiankov/conative/internal/oracle"
)

func describeViolation(v oracle.Violation) string {
	switch k := v.Kind.(type) {
	case oracle.ForbiddenLanguage:
		return fmt.Sprintf("%s %s: %s", k.Name(), k.Language, k.Context)
	case oracle.ForbiddenToolchain:
		return fmt.Sprintf("%s %s without %s", k.Name(), k.Tool, k.Missing)
	case oracle.SecurityViolation:
		if k.Match != "" {
			return fmt.Sprintf("%s %s: %s (%s)", k.Name(), k.Rule, k.Description, k.Match)
		}
		return fmt.Sprintf("%s %s: %s", k.Name(), k.Rule, k.Description)
	case oracle.ForbiddenPattern:
		return fmt.Sprintf("%s %s: %s", k.Name(), k.Pattern, k.Match)
	default:
		return v.Kind.Name()
	}
}

func describeConcern(c oracle.Concern) string {
	if k, ok := c.Kind.(oracle.Tier2Language); ok {
		return fmt.Sprintf("%s %s - %s", k.Name(), k.Language, c.Suggestion)
	}
	return fmt.Sprintf("%s - %s", c.Kind.Name(), c.Suggestion)
}

func violationFile(v oracle.Violation) string {
	switch k := v.Kind.(type) {
	case oracle.ForbiddenLanguage:
		return k.File
	case oracle.SecurityViolation:
		return k.File
	case oracle.ForbiddenPattern:
		return k.File
	}
	return ""
}

// status is the one-word compact status for a set of findings.
func status(violations, concerns int) string {
	switch {
	case violations > 0:
		return "VIOLATION"
	case concerns > 0:
		return "CONCERN"
	default:
		return "OK"
	}
}
