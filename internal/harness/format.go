package harness

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders a summary for humans.
func FormatText(s *Summary) string {
	var b strings.Builder

	b.WriteString("=== Contract Test Results ===\n\n")
	fmt.Fprintf(&b, "Total:    %d\n", s.Total)
	fmt.Fprintf(&b, "Passed:   %d\n", s.Passed)
	fmt.Fprintf(&b, "Failed:   %d\n", s.Failed)
	fmt.Fprintf(&b, "Duration: %dμs\n\n", s.TotalDurationUS)

	if s.AllPassed() {
		b.WriteString("All tests passed!\n")
		return b.String()
	}

	b.WriteString("Failed tests:\n")
	for _, r := range s.Results {
		if r.Passed {
			continue
		}
		fmt.Fprintf(&b, "  FAIL  %s\n", r.Name)
		if r.Error != "" {
			fmt.Fprintf(&b, "        %s\n", r.Error)
		}
	}
	return b.String()
}

// FormatCompact renders a summary on one line.
func FormatCompact(s *Summary) string {
	return fmt.Sprintf("tests=%d passed=%d failed=%d duration=%dμs\n",
		s.Total, s.Passed, s.Failed, s.TotalDurationUS)
}

// FormatJSON renders a summary as indented JSON.
func FormatJSON(s *Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
