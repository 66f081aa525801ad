package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/conative/internal/contract"
)

// Filter selects entries from a log. Zero fields match everything.
type Filter struct {
	RequestID string
	SessionID string
	Verdict   contract.Verdict
	From      time.Time
	To        time.Time
}

// Summary counts decisions in a filtered log.
type Summary struct {
	Total          int    `json:"total"`
	AllowCount     int    `json:"allow_count"`
	WarnCount      int    `json:"warn_count"`
	EscalateCount  int    `json:"escalate_count"`
	BlockCount     int    `json:"block_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	Entries []AuditEntry `json:"entries"`
	Summary Summary      `json:"summary"`
}

// Replay reads the log and returns entries matching the filter.
// Malformed lines are skipped; use Verify to detect them.
func Replay(path string, filter Filter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{Entries: []AuditEntry{}}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !filter.matches(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		result.Summary.add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return result, nil
}

func (f Filter) matches(e AuditEntry) bool {
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Verdict != "" && e.Verdict != f.Verdict {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func (s *Summary) add(e AuditEntry) {
	s.Total++
	switch e.Verdict {
	case contract.Allow:
		s.AllowCount++
	case contract.Warn:
		s.WarnCount++
	case contract.Escalate:
		s.EscalateCount++
	case contract.Block:
		s.BlockCount++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
