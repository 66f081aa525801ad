package redteam

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders a summary for humans. Verbose adds attack vectors.
func FormatText(s *Summary, verbose bool) string {
	var b strings.Builder

	b.WriteString("=== Red-Team Test Results ===\n\n")
	fmt.Fprintf(&b, "Total Tests:     %d\n", s.Total)
	fmt.Fprintf(&b, "Blocked:         %d (%.1f%%)\n", s.Blocked, percent(s.Blocked, s.Total))
	fmt.Fprintf(&b, "Bypassed:        %d (%.1f%%)\n", s.Bypassed, s.BypassRate*100)
	fmt.Fprintf(&b, "False Positives: %d (%.1f%%)\n", s.FalsePositives, s.FalsePositiveRate*100)
	if s.Errors > 0 {
		fmt.Fprintf(&b, "Errors:          %d\n", s.Errors)
	}
	if s.KnownLimitations > 0 {
		fmt.Fprintf(&b, "Known Limits:    %d\n", s.KnownLimitations)
	}
	fmt.Fprintf(&b, "\nSecurity Score:  %d/100\n", s.SecurityScore)

	writeOutcomes(&b, "Bypasses", s, verbose, func(o Outcome) bool { return o.Bypassed })
	writeOutcomes(&b, "False Positives", s, verbose, func(o Outcome) bool { return o.FalsePositive })
	writeOutcomes(&b, "Errors", s, verbose, func(o Outcome) bool { return o.Errored })

	b.WriteString("\n--- By Category ---\n")
	for _, c := range s.Categories() {
		st := s.ByCategory[c]
		fmt.Fprintf(&b, "  %s: %d total, %d blocked, %d bypassed, %d fps, %d errors\n",
			c, st.Total, st.Blocked, st.Bypassed, st.FalsePositives, st.Errors)
	}
	return b.String()
}

// FormatCompact renders a summary on one line.
func FormatCompact(s *Summary) string {
	return fmt.Sprintf("redteam total=%d blocked=%d bypassed=%d fps=%d errors=%d score=%d\n",
		s.Total, s.Blocked, s.Bypassed, s.FalsePositives, s.Errors, s.SecurityScore)
}

// FormatJSON renders a summary as indented JSON.
func FormatJSON(s *Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal red-team summary: %w", err)
	}
	return string(data), nil
}

func writeOutcomes(b *strings.Builder, title string, s *Summary, verbose bool, keep func(Outcome) bool) {
	first := true
	for _, o := range s.Outcomes {
		if !keep(o) {
			continue
		}
		if first {
			fmt.Fprintf(b, "\n--- %s ---\n", title)
			first = false
		}
		tag := ""
		if o.Known {
			tag = " (known limitation)"
		}
		if o.Errored {
			fmt.Fprintf(b, "  %s: %s\n", o.Name, o.Error)
			continue
		}
		fmt.Fprintf(b, "  %s [%s]%s\n", o.Name, o.Verdict, tag)
		if verbose && o.AttackVector != "" {
			fmt.Fprintf(b, "    Attack: %s\n", o.AttackVector)
		}
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
