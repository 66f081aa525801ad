package contract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/conative/internal/model"
	"github.com/ppiankov/conative/internal/policy"
)

func newRunner(t testing.TB, cfg RunnerConfig) *Runner {
	t.Helper()
	r, err := NewRunner(policy.BaselinePolicy(), cfg)
	if err != nil {
		t.Fatalf("failed to build runner: %v", err)
	}
	return r
}

func create(path, content string, files ...string) *model.Proposal {
	return model.NewProposal(model.ActionType{Kind: model.CreateFile, Path: path}, content, files...)
}

func check(t *testing.T, r *Runner, p *model.Proposal) *Decision {
	t.Helper()
	d, err := r.Check(p)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	return d
}

func TestScenarioRustAllowed(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("src/main.rs", `fn main() { println!("Hello"); }`, "src/main.rs"))
	if d.Verdict != Allow || d.Refusal != nil {
		t.Errorf("expected Allow without refusal, got %s %+v", d.Verdict, d.Refusal)
	}
}

func TestScenarioTypeScriptBlocked(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("src/utils.ts", `export const foo: string = 'bar';`, "src/utils.ts"))
	if d.Verdict != Block {
		t.Fatalf("expected Block, got %s", d.Verdict)
	}
	if d.Refusal.Category != CategoryForbiddenLanguage || d.Refusal.Code != CodeTypeScript {
		t.Errorf("unexpected refusal %s/%d", d.Refusal.Category, d.Refusal.Code)
	}
	if d.Refusal.Overridable {
		t.Error("hard refusal must not be overridable")
	}
	if len(d.Refusal.Evidence) != 2 {
		t.Errorf("expected content and extension evidence, got %+v", d.Refusal.Evidence)
	}
}

func TestScenarioSecretBlocked(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("config.rs", `let password = "supersecret123456";`, "config.rs"))
	if d.Verdict != Block {
		t.Fatalf("expected Block, got %s", d.Verdict)
	}
	if d.Refusal.Category != CategorySecurityViolation || d.Refusal.Code != CodeHardcodedSecret {
		t.Errorf("unexpected refusal %s/%d", d.Refusal.Category, d.Refusal.Code)
	}
	if d.Refusal.Remediation != "Remove hardcoded secrets and use environment variables" {
		t.Errorf("unexpected remediation %q", d.Refusal.Remediation)
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "supersecret123456") {
		t.Error("decision leaks the secret")
	}
}

func TestScenarioSaltException(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("salt/config.py", "import os", "salt/config.py"))
	if d.Verdict != Allow {
		t.Errorf("expected Allow under salt/, got %s %+v", d.Verdict, d.Refusal)
	}
}

func TestScenarioToolchain(t *testing.T) {
	r := newRunner(t, RunnerConfig{})

	d := check(t, r, create("package.json", "{}", "package.json"))
	if d.Verdict != Block || d.Refusal.Category != CategoryForbiddenToolchain || d.Refusal.Code != CodeNpmWithoutDeno {
		t.Fatalf("expected toolchain block, got %s %+v", d.Verdict, d.Refusal)
	}

	d = check(t, r, create("package.json", "{}", "package.json", "deno.json"))
	if d.Verdict != Allow {
		t.Errorf("expected Allow with deno.json, got %s %+v", d.Verdict, d.Refusal)
	}
}

func TestTier2Warns(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("x.rkt", "#lang racket", "x.rkt"))
	if d.Verdict != Warn {
		t.Fatalf("expected Warn, got %s", d.Verdict)
	}
	if !d.Refusal.Overridable || d.Refusal.OverrideLevel != AuthUser {
		t.Errorf("soft refusal must be user-overridable: %+v", d.Refusal)
	}
	if d.Refusal.Code != CodeOtherLanguage {
		t.Errorf("expected 199, got %d", d.Refusal.Code)
	}
}

func TestRefusalPresentIffNotAllow(t *testing.T) {
	r := newRunner(t, RunnerConfig{})
	proposals := []*model.Proposal{
		create("a.rs", "pub fn a() {}", "a.rs"),
		create("a.go", "package main", "a.go"),
		create("x.rkt", "#lang racket", "x.rkt"),
		create("README.md", "hello"),
		create("main.py", "import os", "main.py"),
	}
	for _, p := range proposals {
		d := check(t, r, p)
		if (d.Verdict == Allow) != (d.Refusal == nil) {
			t.Errorf("%s: verdict %s with refusal %+v", p.ActionType, d.Verdict, d.Refusal)
		}
	}
}

func TestDecisionMetadata(t *testing.T) {
	r := newRunner(t, RunnerConfig{})
	req := NewRequest(create("a.rs", "pub fn a() {}", "a.rs"), RequestConfig{Source: "test"})

	d, err := r.Evaluate(req)
	if err != nil {
		t.Fatal(err)
	}
	if d.RequestID != req.RequestID {
		t.Errorf("request id not propagated")
	}
	if d.DecisionID == "" || d.DecisionID == req.RequestID {
		t.Errorf("expected a fresh decision id, got %q", d.DecisionID)
	}
	if d.Processing.PolicyName != policy.BaselineName {
		t.Errorf("unexpected policy name %q", d.Processing.PolicyName)
	}
	if d.Processing.RulesChecked != 12 {
		t.Errorf("expected 12 rules checked, got %d", d.Processing.RulesChecked)
	}
	if len(d.Processing.StagesExecuted) != 1 || d.Processing.StagesExecuted[0] != StageOracle {
		t.Errorf("unexpected stages %v", d.Processing.StagesExecuted)
	}
	if d.Processing.ContractVersion != Version {
		t.Errorf("unexpected contract version %q", d.Processing.ContractVersion)
	}
	if d.Evaluations.Oracle == nil || d.Evaluations.SLM != nil || d.Evaluations.Arbiter != nil {
		t.Errorf("unexpected evaluation chain %+v", d.Evaluations)
	}
}

func TestSLMStageDoesNotChangeVerdict(t *testing.T) {
	plain := newRunner(t, RunnerConfig{})
	withSLM := newRunner(t, RunnerConfig{EnableSLM: true})

	for _, p := range []*model.Proposal{
		create("a.rs", "pub fn a() {}", "a.rs"),
		create("a.ts", "interface Foo {}", "a.ts"),
	} {
		a := check(t, plain, p)
		b := check(t, withSLM, p)
		if a.Verdict != b.Verdict {
			t.Errorf("slm stage changed verdict %s -> %s", a.Verdict, b.Verdict)
		}
		if b.Evaluations.SLM == nil || b.Evaluations.SLM.ShouldBlock {
			t.Errorf("unexpected slm result %+v", b.Evaluations.SLM)
		}
		if len(b.Processing.StagesExecuted) != 2 || b.Processing.StagesExecuted[1] != StageSLM {
			t.Errorf("unexpected stages %v", b.Processing.StagesExecuted)
		}
	}
}

func TestPolicyOverride(t *testing.T) {
	r := newRunner(t, RunnerConfig{})

	override := policy.BaselinePolicy()
	override.Name = "permissive"
	override.Languages.Forbidden = nil

	p := create("a.go", "package main", "a.go")
	d, err := r.Evaluate(NewRequest(p, RequestConfig{PolicyOverride: override}))
	if err != nil {
		t.Fatal(err)
	}
	if d.Verdict != Allow {
		t.Errorf("expected Allow under override, got %s", d.Verdict)
	}
	if d.Processing.PolicyName != "permissive" {
		t.Errorf("unexpected policy name %q", d.Processing.PolicyName)
	}

	broken := policy.BaselinePolicy()
	broken.Patterns.Forbidden[0].Regex = "("
	_, err = r.Evaluate(NewRequest(p, RequestConfig{PolicyOverride: broken}))
	if !errors.Is(err, policy.ErrPolicyParse) {
		t.Errorf("expected policy parse error, got %v", err)
	}
}

func TestInvalidRequest(t *testing.T) {
	r := newRunner(t, RunnerConfig{})

	tests := []struct {
		name string
		req  *GatingRequest
	}{
		{"nil", nil},
		{"no proposal", NewRequest(nil, RequestConfig{})},
		{"bad id", NewRequest(create("a.rs", ""), RequestConfig{RequestID: "not-a-uuid"})},
		{"bad confidence", func() *GatingRequest {
			p := create("a.rs", "")
			p.LLMConfidence = 2
			return NewRequest(p, RequestConfig{})
		}()},
		{"nameless repo", NewRequest(create("a.rs", ""), RequestConfig{Repository: &RepositoryContext{}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Evaluate(tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if d != nil {
				t.Error("invalid request must not produce a decision")
			}
		})
	}
}

func TestParseRequest(t *testing.T) {
	data := []byte(`{
		"proposal": {
			"action_type": {"CreateFile": {"path": "src/main.rs"}},
			"content": "fn main() {}",
			"files_affected": ["src/main.rs"],
			"llm_confidence": 0.9
		},
		"context": {"source": "agent", "repository": {"name": "demo", "is_new": false}}
	}`)

	req, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if req.RequestID == "" || req.Proposal.ID == "" {
		t.Error("expected generated ids")
	}
	if req.Context.Source != "agent" || req.Context.Repository.Name != "demo" {
		t.Errorf("unexpected context %+v", req.Context)
	}

	d := func() *Decision {
		d, err := newRunner(t, RunnerConfig{}).Evaluate(req)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}()
	if d.Verdict != Allow {
		t.Errorf("expected Allow, got %s", d.Verdict)
	}

	for _, bad := range []string{`{`, `{"context": {}}`, `{"proposal": {"action_type": {}}}`} {
		if _, err := ParseRequest([]byte(bad)); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: expected ErrInvalidRequest, got %v", bad, err)
		}
	}
}

type countingObserver struct{ n map[Verdict]int }

func (c *countingObserver) ObserveDecision(d *Decision) { c.n[d.Verdict]++ }

func TestObserver(t *testing.T) {
	obs := &countingObserver{n: map[Verdict]int{}}
	r := newRunner(t, RunnerConfig{Observer: obs})

	check(t, r, create("a.rs", "pub fn a() {}", "a.rs"))
	check(t, r, create("a.go", "package main", "a.go"))
	check(t, r, create("b.go", "package main", "b.go"))

	if obs.n[Allow] != 1 || obs.n[Block] != 2 {
		t.Errorf("unexpected observations %v", obs.n)
	}
}

func TestNewRunnerRejectsBadPolicy(t *testing.T) {
	p := policy.BaselinePolicy()
	p.Patterns.Forbidden[0].Regex = "[unclosed"
	_, err := NewRunner(p, RunnerConfig{})

	var pe *policy.PolicyParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PolicyParseError, got %v", err)
	}
	if pe.Rule != "hardcoded_secrets" {
		t.Errorf("unexpected rule %q", pe.Rule)
	}
}

func TestDecisionJSON(t *testing.T) {
	d := check(t, newRunner(t, RunnerConfig{}), create("src/utils.ts", `export const foo: string = 'bar';`, "src/utils.ts"))
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"request_id", "decision_id", "timestamp", "verdict", "refusal", "evaluations", "processing"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing %q in %s", key, data)
		}
	}
	refusal := raw["refusal"].(map[string]any)
	if refusal["code"].(float64) != 100 {
		t.Errorf("expected numeric code 100, got %v", refusal["code"])
	}
	if refusal["override_level"] != "None" {
		t.Errorf("unexpected override level %v", refusal["override_level"])
	}
}

func TestDescribe(t *testing.T) {
	doc, err := Describe("")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Request) == 0 || len(doc.Decision) == 0 || len(doc.RefusalCodes) != len(Codes()) || len(doc.Audit) == 0 {
		t.Errorf("incomplete schema %+v", doc)
	}

	doc, err = Describe(SectionRefusals)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Request) != 0 || len(doc.RefusalCodes) == 0 {
		t.Errorf("section filter not applied: %+v", doc)
	}

	var b strings.Builder
	doc.WriteText(&b)
	if !strings.Contains(b.String(), "Lang100TypeScript") || strings.Contains(b.String(), "INPUTS") {
		t.Errorf("unexpected text:\n%s", b.String())
	}

	if _, err := Describe("bogus"); err == nil {
		t.Error("expected error for unknown section")
	}
}
