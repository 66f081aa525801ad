package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder

	s := result.Summary
	fmt.Fprintf(&b, "Audit log | %s–%s UTC\n", formatDateTime(s.FirstTimestamp), formatTimeOnly(s.LastTimestamp))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		code := "-"
		if e.RefusalCode != nil {
			code = fmt.Sprintf("%d", e.RefusalCode.Numeric())
		}
		fmt.Fprintf(&b, "%-10s %-8s %-4s %-8s %-36s %s\n",
			formatTimeOnly(e.Timestamp),
			strings.ToUpper(string(e.Verdict)),
			code,
			truncate(e.Source, 8),
			e.RequestID,
			truncate(strings.Join(e.RulesTriggered, ","), 40))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(s))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s Summary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.WarnCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warn", s.WarnCount))
	}
	if s.EscalateCount > 0 {
		parts = append(parts, fmt.Sprintf("%d escalate", s.EscalateCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	return fmt.Sprintf("Summary: %d decisions (%s)\n", s.Total, strings.Join(parts, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
