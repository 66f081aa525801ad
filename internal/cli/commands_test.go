package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/regression"
)

// setupCLI isolates a test in a temp working directory with captured
// output and default flag values.
func setupCLI(t *testing.T) (dir string, out, errOut *bytes.Buffer) {
	t.Helper()
	dir = t.TempDir()
	t.Chdir(dir)

	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	origOut, origErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = origOut, origErr })

	policyPath = ""
	verbosity = verbosityNormal
	dryRun = false
	metricsFile = ""
	recorder = nil
	return dir, out, errOut
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func trainingCase(path, content, verdict, category string) string {
	return `{
  "proposal": {
    "action_type": {"CreateFile": {"path": "` + path + `"}},
    "content": ` + jsonString(content) + `,
    "files_affected": ["` + path + `"],
    "llm_confidence": 0.9
  },
  "expected_verdict": "` + verdict + `",
  "reasoning": "",
  "category": "` + category + `"
}`
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func writeTraining(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "rust.json"), trainingCase("src/main.rs", "fn main() {}", "Compliant", "language"))
	writeFile(t, filepath.Join(dir, "python.json"), trainingCase("src/app.py", "import os", "HardViolation", "language"))
	writeFile(t, filepath.Join(dir, "ts.json"), trainingCase("src/app.ts", "const x: string = 'a'", "HardViolation", "language"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{exitWith(1), 1},
		{exitWith(3), 3},
		{errors.New("boom"), contract.ExitSystemError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
	if exitWith(0) != nil {
		t.Error("exitWith(0) should be nil")
	}
}

func TestSetupRejectsUnknownVerbosity(t *testing.T) {
	setupCLI(t)
	verbosity = "loud"
	if err := setup(nil, nil); err == nil {
		t.Fatal("expected error for unknown verbosity")
	}
}

func TestRunCheckVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		want    int
	}{
		{"rust allowed", "fn main() {}", "src/main.rs", 0},
		{"typescript blocked", "const x: string = 'a'", "src/app.ts", 1},
		{"nickel warns", "{ a = 1 }", "config.ncl", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, _ := setupCLI(t)
			checkFile, checkContent, checkAssumePath = "", tt.content, tt.path
			checkFormatFlag, checkSLM = formatCompact, false

			err := runCheck(nil, nil)
			if got := exitCode(err); got != tt.want {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.want, err)
			}
			if !strings.HasPrefix(out.String(), "verdict=") {
				t.Errorf("unexpected compact output: %q", out.String())
			}
		})
	}
}

func TestRunCheckFileText(t *testing.T) {
	dir, out, _ := setupCLI(t)
	path := filepath.Join(dir, "app.py")
	writeFile(t, path, "import os\n")
	checkFile, checkContent, checkAssumePath = path, "", ""
	checkFormatFlag, checkSLM = formatText, false

	if got := exitCode(runCheck(nil, nil)); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
	for _, want := range []string{"=== Check Result ===", "Verdict: Block", "VIOLATIONS:", "Code:     101 (Lang101Python)", "Override: not permitted"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunCheckWarnShowsOverrideLevel(t *testing.T) {
	dir, out, _ := setupCLI(t)
	path := filepath.Join(dir, "x.rkt")
	writeFile(t, path, "#lang racket\n(define x 1)\n")
	checkFile, checkContent, checkAssumePath = path, "", ""
	checkFormatFlag, checkSLM = formatText, false

	if got := exitCode(runCheck(nil, nil)); got != 2 {
		t.Fatalf("exit code = %d, want 2", got)
	}
	for _, want := range []string{"Verdict: Warn", "CONCERNS:", "Override: User or higher"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunCheckStdin(t *testing.T) {
	_, out, _ := setupCLI(t)
	origIn := stdin
	stdin = strings.NewReader("fn main() {}")
	t.Cleanup(func() { stdin = origIn })

	checkFile, checkContent, checkAssumePath = "", "-", "main.rs"
	checkFormatFlag, checkSLM = formatJSON, true

	if err := runCheck(nil, nil); err != nil {
		t.Fatal(err)
	}
	var d struct {
		Verdict     contract.Verdict `json:"verdict"`
		Evaluations struct {
			SLM json.RawMessage `json:"slm"`
		} `json:"evaluations"`
	}
	if err := json.Unmarshal(out.Bytes(), &d); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if d.Verdict != contract.Allow || len(d.Evaluations.SLM) == 0 {
		t.Errorf("unexpected decision: %s", out.String())
	}
}

func TestRunCheckRequiresInput(t *testing.T) {
	setupCLI(t)
	checkFile, checkContent = "", ""
	checkFormatFlag = formatText
	if got := exitCode(runCheck(nil, nil)); got != contract.ExitSystemError {
		t.Errorf("exit code = %d, want %d", got, contract.ExitSystemError)
	}
}

func TestRunCheckBadPolicyIsSystemError(t *testing.T) {
	setupCLI(t)
	policyPath = "missing.yaml"
	checkFile, checkContent, checkAssumePath = "", "fn main() {}", "main.rs"
	checkFormatFlag = formatText

	if got := exitCode(runCheck(nil, nil)); got != contract.ExitSystemError {
		t.Errorf("exit code = %d, want %d", got, contract.ExitSystemError)
	}
}

func TestRunScan(t *testing.T) {
	dir, out, _ := setupCLI(t)
	writeFile(t, filepath.Join(dir, "proj", "src", "main.rs"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "proj", "scripts", "build.py"), "import os")
	writeFile(t, filepath.Join(dir, "proj", "config.ncl"), "{}")

	scanIncludeHidden, scanDepth, scanInclude, scanExclude, scanWatch = false, 0, nil, nil, false
	scanFormat = formatText

	if got := exitCode(runScan(nil, []string{filepath.Join(dir, "proj")})); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
	for _, want := range []string{"Files scanned: 3", "VIOLATIONS (1):", "CONCERNS (1):", "Verdict: HardViolation"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	scanExclude = []string{"*.py"}
	scanFormat = formatCompact
	if got := exitCode(runScan(nil, []string{filepath.Join(dir, "proj")})); got != 2 {
		t.Fatalf("exit code = %d, want 2", got)
	}
	if !strings.HasPrefix(out.String(), "CONCERN ") {
		t.Errorf("unexpected compact output: %q", out.String())
	}
}

func TestRunScanMissingPath(t *testing.T) {
	dir, _, _ := setupCLI(t)
	scanWatch, scanFormat = false, formatText
	if got := exitCode(runScan(nil, []string{filepath.Join(dir, "missing")})); got != contract.ExitSystemError {
		t.Errorf("exit code = %d, want %d", got, contract.ExitSystemError)
	}
}

func TestDryRun(t *testing.T) {
	_, out, _ := setupCLI(t)
	dryRun = true
	scanFormat = formatText

	if err := runScan(nil, []string{"."}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[dry-run] Would scan: .") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunValidate(t *testing.T) {
	dir, out, _ := setupCLI(t)
	path := filepath.Join(dir, "proposal.json")
	writeFile(t, path, `{
  "id": "7b0c7c2e-8d0e-4a53-9a59-3f3a4c0e8a11",
  "action_type": {"CreateFile": {"path": "config.ncl"}},
  "content": "{ a = 1 }",
  "files_affected": ["config.ncl"],
  "llm_confidence": 0.95
}`)

	validateFormat, validateStrict = formatText, false
	if err := runValidate(nil, []string{path}); err != nil {
		t.Fatalf("non-strict concern should exit 0: %v", err)
	}
	if !strings.Contains(out.String(), "Proposal: 7b0c7c2e-8d0e-4a53-9a59-3f3a4c0e8a11") ||
		!strings.Contains(out.String(), "Rules checked: 12") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	validateStrict = true
	if got := exitCode(runValidate(nil, []string{path})); got != 2 {
		t.Errorf("strict exit code = %d, want 2", got)
	}
}

func TestRunValidateRejectsBadJSON(t *testing.T) {
	dir, _, _ := setupCLI(t)
	path := filepath.Join(dir, "proposal.json")
	writeFile(t, path, "{not json")
	validateFormat = formatJSON
	if got := exitCode(runValidate(nil, []string{path})); got != contract.ExitSystemError {
		t.Errorf("exit code = %d, want %d", got, contract.ExitSystemError)
	}
}

func TestRunPolicyShow(t *testing.T) {
	_, out, _ := setupCLI(t)
	policyShowFormat, policyShowSection = formatText, ""

	if err := runPolicyShow(nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"=== RSR Default Policy ===", "TIER 1 (Preferred):", "  - python (.py)", "npm requires deno", "hardcoded_secrets [security]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	policyShowSection = sectionToolchain
	if err := runPolicyShow(nil, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "FORBIDDEN:") {
		t.Errorf("section output should omit languages:\n%s", out.String())
	}

	policyShowSection = "bogus"
	if err := runPolicyShow(nil, nil); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestRunPolicyShowYAMLRoundTrips(t *testing.T) {
	_, out, _ := setupCLI(t)
	policyShowFormat, policyShowSection = "yaml", ""

	if err := runPolicyShow(nil, nil); err != nil {
		t.Fatal(err)
	}
	p, err := policy.Parse(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != policy.BaselineName {
		t.Errorf("unexpected name %q", p.Name)
	}
}

func TestRunPolicyDiff(t *testing.T) {
	dir, out, _ := setupCLI(t)
	oldPath := filepath.Join(dir, "old.yaml")
	newPath := filepath.Join(dir, "new.yaml")
	writeFile(t, oldPath, "name: Old\n")
	writeFile(t, newPath, "name: New\nenforcement:\n  slm_weight: 1.5\n  escalate_threshold: 0.4\n  block_threshold: 0.5\n")

	policyDiffFormat = formatText
	if err := runPolicyDiff(nil, []string{oldPath, newPath}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name:", "Old → New", "block_threshold:", "(stricter)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunContractTest(t *testing.T) {
	dir, out, _ := setupCLI(t)
	cases := filepath.Join(dir, "training")
	writeTraining(t, cases)

	contractTestFormat, contractTestFailFast, contractTestJobs = formatCompact, false, 2
	if err := runContractTest(nil, []string{cases}); err != nil {
		t.Fatalf("expected all cases to pass: %v\n%s", err, out.String())
	}
	if !strings.HasPrefix(out.String(), "tests=3 passed=3 failed=0") {
		t.Errorf("unexpected output: %q", out.String())
	}

	writeFile(t, filepath.Join(cases, "wrong.json"), trainingCase("src/main.rs", "fn main() {}", "Block", "language"))
	out.Reset()
	contractTestFormat = formatText
	if got := exitCode(runContractTest(nil, []string{cases})); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
	if !strings.Contains(out.String(), "FAIL  wrong") {
		t.Errorf("output missing failed case:\n%s", out.String())
	}
}

func TestRunContractTestEmptyDir(t *testing.T) {
	dir, _, _ := setupCLI(t)
	contractTestFormat = formatText
	if got := exitCode(runContractTest(nil, []string{dir})); got != contract.ExitSystemError {
		t.Errorf("exit code = %d, want %d", got, contract.ExitSystemError)
	}
}

func TestRunContractEvalWithAuditLog(t *testing.T) {
	dir, out, _ := setupCLI(t)
	reqPath := filepath.Join(dir, "request.json")
	writeFile(t, reqPath, `{
  "proposal": {
    "action_type": {"CreateFile": {"path": "src/app.ts"}},
    "content": "const x: string = 'a'",
    "files_affected": ["src/app.ts"],
    "llm_confidence": 0.9
  },
  "context": {"source": "ci", "session_id": "s-1"}
}`)
	logPath := filepath.Join(dir, "audit", "audit.jsonl")

	evalFormat, evalAudit, evalAuditLog, evalSLM = formatJSON, true, logPath, false
	for i := 0; i < 2; i++ {
		out.Reset()
		if got := exitCode(runContractEval(nil, []string{reqPath})); got != 1 {
			t.Fatalf("exit code = %d, want 1", got)
		}
	}
	var payload struct {
		Decision struct {
			Refusal *contract.Refusal `json:"refusal"`
		} `json:"decision"`
		Audit map[string]any `json:"audit"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Decision.Refusal == nil || payload.Decision.Refusal.Code != contract.CodeTypeScript {
		t.Errorf("unexpected refusal: %+v", payload.Decision.Refusal)
	}
	if payload.Audit["source"] != "ci" {
		t.Errorf("unexpected audit source: %v", payload.Audit["source"])
	}

	out.Reset()
	auditVerifyFormat = formatText
	if err := runAuditVerify(nil, []string{logPath}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(out.String(), "OK: 2 entries verified") {
		t.Errorf("unexpected verify output: %s", out.String())
	}

	out.Reset()
	showRequest, showSession, showVerdict, showFrom, showTo = "", "s-1", "Block", "", ""
	showFormat = formatText
	if err := runAuditShow(nil, []string{logPath}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Summary: 2 decisions") {
		t.Errorf("unexpected timeline:\n%s", out.String())
	}
}

func TestRunAuditVerifyDetectsTampering(t *testing.T) {
	dir, _, errOut := setupCLI(t)
	logPath := filepath.Join(dir, "audit.jsonl")
	writeFile(t, logPath, `{"audit_id":"x","prev_hash":"sha256:bogus"}`+"\n")

	auditVerifyFormat = formatText
	if got := exitCode(runAuditVerify(nil, []string{logPath})); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
	if !strings.Contains(errOut.String(), "FAILED at line 1") {
		t.Errorf("unexpected stderr: %s", errOut.String())
	}
}

func TestRunAuditShowRejectsBadTime(t *testing.T) {
	dir, _, _ := setupCLI(t)
	showRequest, showSession, showVerdict, showFrom, showTo = "", "", "", "yesterday", ""
	showFormat = formatText
	if err := runAuditShow(nil, []string{filepath.Join(dir, "audit.jsonl")}); err == nil {
		t.Error("expected error for invalid --from")
	}
}

func TestRunContractSchema(t *testing.T) {
	_, out, _ := setupCLI(t)
	schemaFormat, schemaSection = formatText, ""
	if err := runContractSchema(nil, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "=== Gating Contract Schema ===") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	schemaSection = "nope"
	if err := runContractSchema(nil, nil); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestRunContractRegression(t *testing.T) {
	dir, out, _ := setupCLI(t)
	cases := filepath.Join(dir, "training")
	writeTraining(t, cases)
	baseline := filepath.Join(dir, ".conative", "baseline.json")

	regressionBaseline, regressionStrict, regressionFormat, regressionJobs = baseline, false, formatText, 1

	regressionSave = false
	if got := exitCode(runContractRegression(nil, []string{cases})); got != contract.ExitSystemError {
		t.Fatalf("missing baseline: exit code = %d, want %d", got, contract.ExitSystemError)
	}

	regressionSave = true
	if err := runContractRegression(nil, []string{cases}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Tests: 3 total, 3 passed, 0 failed") {
		t.Errorf("unexpected save output:\n%s", out.String())
	}

	regressionSave = false
	if err := runContractRegression(nil, []string{cases}); err != nil {
		t.Fatalf("unchanged corpus should exit 0: %v", err)
	}

	// A stricter policy now blocks rust, which used to pass.
	policyFile := filepath.Join(dir, "strict.yaml")
	writeFile(t, policyFile, `languages:
  forbidden:
    - name: rust
      extensions: [".rs"]
`)
	policyPath = policyFile
	if got := exitCode(runContractRegression(nil, []string{cases})); got != 2 {
		t.Errorf("regression exit code = %d, want 2", got)
	}
	regressionStrict = true
	if got := exitCode(runContractRegression(nil, []string{cases})); got != 1 {
		t.Errorf("strict regression exit code = %d, want 1", got)
	}
}

func TestRunContractRegressionSaveFlagsErrors(t *testing.T) {
	dir, _, errOut := setupCLI(t)
	cases := filepath.Join(dir, "training")
	writeTraining(t, cases)
	writeFile(t, filepath.Join(cases, "broken.json"), trainingCase("", "import os", "HardViolation", "language"))
	baseline := filepath.Join(dir, ".conative", "baseline.json")

	regressionBaseline, regressionStrict, regressionFormat, regressionJobs = baseline, false, formatText, 1
	regressionSave = true
	if err := runContractRegression(nil, []string{cases}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut.String(), "1 cases could not be evaluated") || !strings.Contains(errOut.String(), "broken") {
		t.Errorf("missing error warning:\n%s", errOut.String())
	}

	b, err := regression.Load(baseline)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range b.Results {
		if (e.Name == "broken") != (e.Error != "") {
			t.Errorf("unexpected entry %+v", e)
		}
	}
}

func TestRunContractRedteam(t *testing.T) {
	dir, out, _ := setupCLI(t)
	cases := filepath.Join(dir, "redteam")
	writeFile(t, filepath.Join(cases, "comment.json"), `{
  "proposal": {
    "action_type": {"CreateFile": {"path": "src/lib.rs"}},
    "content": "// import os\nfn main() {}",
    "files_affected": ["src/lib.rs"],
    "llm_confidence": 0.9
  },
  "expected_verdict": "Block",
  "redteam_category": "documentation_bypass",
  "attack_vector": "python marker inside a comment"
}`)
	writeFile(t, filepath.Join(cases, "fp.json"), `{
  "proposal": {
    "action_type": {"CreateFile": {"path": "src/main.rs"}},
    "content": "fn main() {}",
    "files_affected": ["src/main.rs"],
    "llm_confidence": 0.9
  },
  "expected_verdict": "Allow",
  "redteam_category": "false_positive"
}`)

	redteamFormat, redteamVerbose, redteamJobs = formatCompact, false, 1
	if err := runContractRedteam(nil, []string{cases}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "redteam total=2 blocked=1 bypassed=0 fps=0") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunSimulate(t *testing.T) {
	dir, out, _ := setupCLI(t)
	cases := filepath.Join(dir, "training")
	writeTraining(t, cases)
	candidate := filepath.Join(dir, "candidate.yaml")
	writeFile(t, candidate, `languages:
  forbidden:
    - name: typescript
      extensions: [".ts", ".tsx"]
      markers: [": string"]
`)

	simCases, simJobs, simFormat = cases, 1, formatText
	if err := runSimulate(nil, []string{candidate}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Simulating " + candidate, "python", "1 of 3 cases changed.", "1 newly allowed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestMetricsFileRecordsDecisions(t *testing.T) {
	dir, _, _ := setupCLI(t)
	metricsFile = filepath.Join(dir, "metrics", "conative.prom")
	if err := setup(nil, nil); err != nil {
		t.Fatal(err)
	}
	checkFile, checkContent, checkAssumePath = "", "import os", "app.py"
	checkFormatFlag, checkSLM = formatCompact, false
	_ = runCheck(nil, nil)

	if err := recorder.WriteTextfile(metricsFile); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `conative_gate_decisions_total{verdict="Block"} 1`) {
		t.Errorf("metrics missing block decision:\n%s", data)
	}
}
