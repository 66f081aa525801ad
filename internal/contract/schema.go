package contract

import (
	"fmt"
	"io"
	"strings"
)

// Schema sections accepted by WriteSchema.
const (
	SectionInputs   = "inputs"
	SectionOutputs  = "outputs"
	SectionRefusals = "refusals"
	SectionAudit    = "audit"
)

// Field documents one wire field.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// CodeInfo documents one refusal code.
type CodeInfo struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// SchemaDoc describes the contract wire formats.
type SchemaDoc struct {
	Version      string     `json:"version"`
	Schema       string     `json:"schema"`
	Request      []Field    `json:"gating_request,omitempty"`
	Decision     []Field    `json:"gating_decision,omitempty"`
	Verdicts     []Verdict  `json:"verdicts,omitempty"`
	Categories   []string   `json:"refusal_categories,omitempty"`
	RefusalCodes []CodeInfo `json:"refusal_codes,omitempty"`
	Audit        []Field    `json:"audit_entry,omitempty"`
}

var requestFields = []Field{
	{"request_id", "UUID", "unique request identifier"},
	{"timestamp", "RFC 3339 time", "when the request was created"},
	{"proposal", "Proposal", "action_type, content, files_affected"},
	{"context", "RequestContext", "source, session, repository"},
	{"policy_override", "Policy?", "custom policy for this request"},
}

var decisionFields = []Field{
	{"request_id", "UUID", "correlation with the request"},
	{"decision_id", "UUID", "unique decision identifier"},
	{"timestamp", "RFC 3339 time", "when the decision was made"},
	{"verdict", "Verdict", "Allow | Warn | Escalate | Block"},
	{"refusal", "Refusal?", "details when not allowed"},
	{"evaluations", "EvaluationChain", "oracle, slm, arbiter results"},
	{"processing", "ProcessingMetadata", "duration, rules checked, stages"},
}

var auditFields = []Field{
	{"schema", "string", "contract schema identifier"},
	{"audit_id", "UUID", ""},
	{"request_id", "UUID", ""},
	{"decision_id", "UUID", ""},
	{"timestamp", "RFC 3339 time", ""},
	{"verdict", "Verdict", ""},
	{"refusal_code", "int?", ""},
	{"refusal_category", "RefusalCategory?", ""},
	{"source", "string", ""},
	{"repository", "string?", ""},
	{"session_id", "string?", ""},
	{"rules_checked", "[]string", ""},
	{"rules_triggered", "[]string", ""},
	{"duration_us", "int", ""},
	{"stages", "[]string", ""},
	{"contract_version", "string", ""},
	{"content_hash", "string", "sha256 of the proposal content"},
}

// Describe returns the schema, limited to one section when section is
// non-empty.
func Describe(section string) (*SchemaDoc, error) {
	doc := &SchemaDoc{Version: Version, Schema: Schema}
	all := section == ""

	switch section {
	case "", SectionInputs, SectionOutputs, SectionRefusals, SectionAudit:
	default:
		return nil, fmt.Errorf("unknown schema section %q (want inputs, outputs, refusals or audit)", section)
	}

	if all || section == SectionInputs {
		doc.Request = requestFields
	}
	if all || section == SectionOutputs {
		doc.Decision = decisionFields
		doc.Verdicts = Verdicts
	}
	if all || section == SectionRefusals {
		for _, c := range Categories() {
			doc.Categories = append(doc.Categories, string(c))
		}
		for _, c := range Codes() {
			doc.RefusalCodes = append(doc.RefusalCodes, CodeInfo{Code: c.Numeric(), Name: c.Name(), Group: c.Group()})
		}
	}
	if all || section == SectionAudit {
		doc.Audit = auditFields
	}
	return doc, nil
}

// WriteText renders the schema for humans.
func (d *SchemaDoc) WriteText(w io.Writer) {
	fmt.Fprintln(w, "=== Gating Contract Schema ===")
	fmt.Fprintf(w, "Version: %s\n", d.Version)
	fmt.Fprintf(w, "Schema:  %s\n", d.Schema)

	if len(d.Request) > 0 {
		fmt.Fprint(w, "\n--- INPUTS ---\n\nGatingRequest:\n")
		writeFields(w, d.Request)
	}
	if len(d.Decision) > 0 {
		fmt.Fprint(w, "\n--- OUTPUTS ---\n\nGatingDecision:\n")
		writeFields(w, d.Decision)
		fmt.Fprintln(w, "\nVerdicts:")
		for _, v := range d.Verdicts {
			fmt.Fprintf(w, "  %-9s (%d)\n", v, v.ExitCode())
		}
	}
	if len(d.RefusalCodes) > 0 {
		fmt.Fprint(w, "\n--- REFUSAL TAXONOMY ---\n\n")
		fmt.Fprintf(w, "Categories: %s\n\n", strings.Join(d.Categories, ", "))
		for _, c := range d.RefusalCodes {
			fmt.Fprintf(w, "  %3d  %-26s %s\n", c.Code, c.Name, c.Group)
		}
	}
	if len(d.Audit) > 0 {
		fmt.Fprint(w, "\n--- AUDIT LOG FORMAT ---\n\nAuditEntry:\n")
		writeFields(w, d.Audit)
	}
}

func writeFields(w io.Writer, fields []Field) {
	for _, f := range fields {
		if f.Description == "" {
			fmt.Fprintf(w, "  %-18s %s\n", f.Name+":", f.Type)
			continue
		}
		fmt.Fprintf(w, "  %-18s %s (%s)\n", f.Name+":", f.Type, f.Description)
	}
}
