package contract

import (
	"encoding/json"
	"fmt"
)

// Verdict is the final gating outcome.
type Verdict string

const (
	Allow    Verdict = "Allow"
	Warn     Verdict = "Warn"
	Escalate Verdict = "Escalate"
	Block    Verdict = "Block"
)

// Verdicts lists every verdict in severity order.
var Verdicts = []Verdict{Allow, Warn, Escalate, Block}

// ExitCode returns the CLI exit code for the verdict.
func (v Verdict) ExitCode() int {
	switch v {
	case Allow:
		return 0
	case Block:
		return 1
	case Warn:
		return 2
	case Escalate:
		return 3
	default:
		return ExitSystemError
	}
}

// IsAllowed reports whether the proposal may proceed.
func (v Verdict) IsAllowed() bool {
	return v == Allow || v == Warn
}

// ParseVerdict accepts contract verdict names and the oracle verdict
// names used by labeled training data.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "Allow", "Compliant":
		return Allow, nil
	case "Warn", "SoftConcern":
		return Warn, nil
	case "Escalate":
		return Escalate, nil
	case "Block", "HardViolation":
		return Block, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVerdict(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
