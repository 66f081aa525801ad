package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Policy diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Policy diff: %s → %s\n", r.OldPath, r.NewPath)

	topLevel := filterTopLevel(r.Changes)
	enforcement := filterChanges(r.Changes, "enforcement.")

	if len(topLevel) > 0 {
		b.WriteString("\n")
		for _, c := range topLevel {
			fmt.Fprintf(&b, "  %-24s %s → %s", c.Field+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	if len(enforcement) > 0 {
		b.WriteString("\n  Enforcement:\n")
		for _, c := range enforcement {
			name := strings.TrimPrefix(c.Field, "enforcement.")
			fmt.Fprintf(&b, "    %-20s %s → %s", name+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	section := ""
	for _, rc := range r.RuleChanges {
		if rc.Section != section {
			section = rc.Section
			fmt.Fprintf(&b, "\n  %s:\n", section)
		}
		mark := "~"
		switch rc.Type {
		case "added":
			mark = "+"
		case "removed":
			mark = "-"
		}
		fmt.Fprintf(&b, "    %s %s", mark, rc.Rule)
		if rc.Detail != "" {
			fmt.Fprintf(&b, "  (%s)", rc.Detail)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func filterChanges(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func filterTopLevel(changes []Change) []Change {
	var out []Change
	for _, c := range changes {
		if !strings.Contains(c.Field, ".") {
			out = append(out, c)
		}
	}
	return out
}
