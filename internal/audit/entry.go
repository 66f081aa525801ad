package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/ppiankov/conative/internal/contract"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// AuditEntry is one line in the hash-chained JSONL audit log. It never
// carries proposal content, only its fingerprint.
// All fields are concrete types so json.Marshal output is stable for hashing.
type AuditEntry struct {
	Schema          string                    `json:"schema"`
	AuditID         string                    `json:"audit_id"`
	RequestID       string                    `json:"request_id"`
	DecisionID      string                    `json:"decision_id"`
	Timestamp       string                    `json:"timestamp"`
	Verdict         contract.Verdict          `json:"verdict"`
	RefusalCode     *contract.RefusalCode     `json:"refusal_code,omitempty"`
	RefusalCategory *contract.RefusalCategory `json:"refusal_category,omitempty"`
	Source          string                    `json:"source"`
	Repository      string                    `json:"repository,omitempty"`
	SessionID       string                    `json:"session_id,omitempty"`
	RulesChecked    []string                  `json:"rules_checked"`
	RulesTriggered  []string                  `json:"rules_triggered"`
	DurationUS      int64                     `json:"duration_us"`
	Stages          []string                  `json:"stages"`
	ContractVersion string                    `json:"contract_version"`
	ContentHash     string                    `json:"content_hash"`
	PrevHash        string                    `json:"prev_hash,omitempty"`
}

// FromDecision projects a request and its decision into an audit entry.
func FromDecision(req *contract.GatingRequest, d *contract.Decision) AuditEntry {
	e := AuditEntry{
		Schema:          contract.Schema,
		AuditID:         uuid.New().String(),
		RequestID:       d.RequestID,
		DecisionID:      d.DecisionID,
		Timestamp:       d.Timestamp.UTC().Format(TimestampFormat),
		Verdict:         d.Verdict,
		Source:          req.Context.Source,
		SessionID:       req.Context.SessionID,
		RulesChecked:    []string{},
		RulesTriggered:  []string{},
		DurationUS:      d.Processing.DurationUS,
		Stages:          d.Processing.StagesExecuted,
		ContractVersion: d.Processing.ContractVersion,
		ContentHash:     ContentHash(req.Proposal.Content),
	}
	if d.Refusal != nil {
		code, cat := d.Refusal.Code, d.Refusal.Category
		e.RefusalCode = &code
		e.RefusalCategory = &cat
	}
	if req.Context.Repository != nil {
		e.Repository = req.Context.Repository.Name
	}
	if o := d.Evaluations.Oracle; o != nil {
		e.RulesChecked = append(e.RulesChecked, o.RulesChecked...)
		e.RulesTriggered = append(e.RulesTriggered, o.RulesTriggered()...)
	}
	return e
}

// ContentHash returns "sha256:<hex>" of the proposal content.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(h[:])
}
