package regression

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders a report for humans.
func FormatText(r *Report) string {
	var b strings.Builder

	b.WriteString("=== Regression Report ===\n\n")
	b.WriteString(r.SummaryText() + "\n")
	if r.BaselineRevision != "" {
		fmt.Fprintf(&b, "\nBaseline revision: %s\n", r.BaselineRevision)
	}

	if len(r.Regressions) > 0 {
		fmt.Fprintf(&b, "\n--- REGRESSIONS (%d) ---\n", len(r.Regressions))
		for _, reg := range r.Regressions {
			fmt.Fprintf(&b, "  %s [%s -> %s]\n", reg.TestName, reg.BaselineVerdict, reg.CurrentVerdict)
			if reg.ErrorMessage != "" {
				fmt.Fprintf(&b, "    Error: %s\n", reg.ErrorMessage)
			}
		}
	}
	if len(r.Improvements) > 0 {
		fmt.Fprintf(&b, "\n--- IMPROVEMENTS (%d) ---\n", len(r.Improvements))
		for _, imp := range r.Improvements {
			fmt.Fprintf(&b, "  %s [%s -> %s]\n", imp.TestName, imp.BaselineVerdict, imp.CurrentVerdict)
		}
	}
	if len(r.BehaviorChanges) > 0 {
		fmt.Fprintf(&b, "\n--- BEHAVIOR CHANGES (%d) ---\n", len(r.BehaviorChanges))
		for _, c := range r.BehaviorChanges {
			fmt.Fprintf(&b, "  %s [%s -> %s]\n", c.TestName, c.BaselineVerdict, c.CurrentVerdict)
		}
	}
	writeNames(&b, "NEW TESTS", r.NewTests)
	writeNames(&b, "REMOVED TESTS", r.RemovedTests)

	switch {
	case r.HasRegressions():
		fmt.Fprintf(&b, "\nWARNING: %d regression(s) detected!\n", len(r.Regressions))
	case r.StableCount == r.TotalCompared:
		b.WriteString("\nAll tests stable.\n")
	}
	return b.String()
}

// FormatCompact renders a report on one line.
func FormatCompact(r *Report) string {
	return fmt.Sprintf("regression compared=%d stable=%d regressed=%d improved=%d changed=%d new=%d removed=%d\n",
		r.TotalCompared, r.StableCount, len(r.Regressions), len(r.Improvements),
		len(r.BehaviorChanges), len(r.NewTests), len(r.RemovedTests))
}

// FormatJSON renders a report as indented JSON.
func FormatJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func writeNames(b *strings.Builder, title string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "\n--- %s (%d) ---\n", title, len(names))
	for _, n := range names {
		fmt.Fprintf(b, "  %s\n", n)
	}
}
