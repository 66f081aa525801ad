package sim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/conative/internal/contract"
)

// DiffEntry represents one case where the decision changed.
type DiffEntry struct {
	Name            string                `json:"name"`
	ExpectedVerdict contract.Verdict      `json:"expected_verdict"`
	OldVerdict      contract.Verdict      `json:"old_verdict"`
	NewVerdict      contract.Verdict      `json:"new_verdict"`
	OldCode         *contract.RefusalCode `json:"old_code,omitempty"`
	NewCode         *contract.RefusalCode `json:"new_code,omitempty"`
}

// SimResult holds the complete simulation output.
type SimResult struct {
	PolicyPath    string      `json:"policy_path"`
	TotalCases    int         `json:"total_cases"`
	ChangedCases  int         `json:"changed_cases"`
	NewlyBlocked  int         `json:"newly_blocked"`
	NewlyAllowed  int         `json:"newly_allowed"`
	PassingBefore int         `json:"passing_before"`
	PassingAfter  int         `json:"passing_after"`
	Changes       []DiffEntry `json:"changes"`
}

// FormatText renders the simulation result as human-readable text.
func FormatText(r *SimResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulating %s against %d labeled cases...\n", r.PolicyPath, r.TotalCases)

	if len(r.Changes) == 0 {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, d := range r.Changes {
		name := d.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		mark := "   "
		if d.NewVerdict == d.ExpectedVerdict {
			mark = "ok "
		} else if d.OldVerdict == d.ExpectedVerdict {
			mark = "!! "
		}
		fmt.Fprintf(&b, "  CHANGED %s %-40s %-8s (%s) → %-8s (%s)\n",
			mark, name, d.OldVerdict, codeString(d.OldCode), d.NewVerdict, codeString(d.NewCode))
	}

	fmt.Fprintf(&b, "\n%d of %d cases changed.", r.ChangedCases, r.TotalCases)
	if r.NewlyBlocked > 0 || r.NewlyAllowed > 0 {
		fmt.Fprintf(&b, " %d newly blocked, %d newly allowed.", r.NewlyBlocked, r.NewlyAllowed)
	}
	fmt.Fprintf(&b, "\nPassing: %d → %d\n", r.PassingBefore, r.PassingAfter)

	return b.String()
}

// FormatJSON renders the simulation result as JSON.
func FormatJSON(r *SimResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sim result: %w", err)
	}
	return string(data), nil
}
