package policy

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestBaselinePolicyContents(t *testing.T) {
	p := BaselinePolicy()

	if p.Name != "RSR Default Policy" {
		t.Errorf("expected baseline name, got %q", p.Name)
	}
	if len(p.Languages.Tier1) != 6 {
		t.Errorf("expected 6 tier1 languages, got %d", len(p.Languages.Tier1))
	}
	if len(p.Languages.Tier2) != 2 {
		t.Errorf("expected 2 tier2 languages, got %d", len(p.Languages.Tier2))
	}
	if len(p.Languages.Forbidden) != 4 {
		t.Errorf("expected 4 forbidden languages, got %d", len(p.Languages.Forbidden))
	}
	if len(p.Languages.Exceptions) != 1 || p.Languages.Exceptions[0].Language != "python" {
		t.Errorf("expected single python exception, got %+v", p.Languages.Exceptions)
	}
	if len(p.Toolchain.Rules) != 1 || p.Toolchain.Rules[0].Tool != "npm" {
		t.Errorf("expected single npm toolchain rule, got %+v", p.Toolchain.Rules)
	}
	if len(p.Patterns.Forbidden) != 1 || !p.Patterns.Forbidden[0].IsSecurity() {
		t.Errorf("expected single security pattern, got %+v", p.Patterns.Forbidden)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("baseline should validate: %v", err)
	}
}

func TestBaselinePolicyIsFreshCopy(t *testing.T) {
	a := BaselinePolicy()
	b := BaselinePolicy()
	a.Languages.Forbidden[0].Name = "mutated"
	if b.Languages.Forbidden[0].Name != "typescript" {
		t.Errorf("expected independent copies, got %q", b.Languages.Forbidden[0].Name)
	}
}

func TestDefaultPolicyYAMLMatchesBaseline(t *testing.T) {
	var parsed Policy
	if err := yaml.Unmarshal([]byte(DefaultPolicyYAML()), &parsed); err != nil {
		t.Fatalf("failed to parse DefaultPolicyYAML: %v", err)
	}
	if !reflect.DeepEqual(&parsed, BaselinePolicy()) {
		t.Errorf("DefaultPolicyYAML drifted from BaselinePolicy:\n%+v\n%+v", parsed, *BaselinePolicy())
	}
}

func TestLoadMissingDefaultUsesBaseline(t *testing.T) {
	dir := t.TempDir()
	old := DefaultPath
	DefaultPath = filepath.Join(dir, "nope", "policy.yaml")
	defer func() { DefaultPath = old }()

	p, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error for missing default, got %v", err)
	}
	if p.Name != BaselineName {
		t.Errorf("expected baseline, got %q", p.Name)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit path")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
name: Custom
toolchain:
  rules:
    - tool: yarn
      tool_markers: ["yarn.lock"]
      requires: deno
      requires_markers: ["deno.json"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if p.Name != "Custom" {
		t.Errorf("expected name=Custom, got %q", p.Name)
	}
	if len(p.Toolchain.Rules) != 1 || p.Toolchain.Rules[0].Tool != "yarn" {
		t.Errorf("expected yarn rule, got %+v", p.Toolchain.Rules)
	}
	if len(p.Languages.Forbidden) != 4 {
		t.Errorf("expected default forbidden languages, got %d", len(p.Languages.Forbidden))
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	content := `{"name": "JSON Policy", "enforcement": {"slm_weight": 2, "escalate_threshold": 0.5, "block_threshold": 0.9}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if p.Name != "JSON Policy" || p.Enforcement.BlockThreshold != 0.9 {
		t.Errorf("unexpected policy: %+v", p)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadRejectsBadRegex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
patterns:
  forbidden:
    - name: broken
      regex: "(unclosed"
      reason: "broken"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(context.Background(), path)
	if !errors.Is(err, ErrPolicyParse) {
		t.Fatalf("expected ErrPolicyParse, got %v", err)
	}
	var pe *PolicyParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PolicyParseError, got %T", err)
	}
	if pe.Rule != "broken" {
		t.Errorf("expected rule=broken, got %q", pe.Rule)
	}
}

func TestValidateRejectsUnknownCategory(t *testing.T) {
	p := BaselinePolicy()
	p.Patterns.Forbidden[0].Category = "style"
	if err := p.Validate(); !errors.Is(err, ErrPolicyParse) {
		t.Errorf("expected ErrPolicyParse, got %v", err)
	}
}

func TestLoadWithHashBaseline(t *testing.T) {
	old := DefaultPath
	DefaultPath = filepath.Join(t.TempDir(), "policy.yaml")
	defer func() { DefaultPath = old }()

	_, hash, err := LoadWithHash(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if hash != "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected empty hash %s", hash)
	}
}

func TestLoadPkl(t *testing.T) {
	if _, err := exec.LookPath("pkl"); err != nil {
		t.Skip("pkl binary not installed")
	}
	p, err := Load(context.Background(), filepath.Join("testdata", "strict.pkl"))
	if err != nil {
		t.Fatalf("failed to load pkl: %v", err)
	}
	if p.Name != "Strict Policy" {
		t.Errorf("expected Strict Policy, got %q", p.Name)
	}
	if len(p.Languages.Forbidden) != 1 || p.Languages.Forbidden[0].Name != "python" {
		t.Errorf("unexpected forbidden list: %+v", p.Languages.Forbidden)
	}
	if p.Enforcement.BlockThreshold != 0.7 {
		t.Errorf("expected baseline enforcement, got %+v", p.Enforcement)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(BaselinePolicy())
	if err != nil {
		t.Fatal(err)
	}
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, BaselinePolicy()) {
		t.Error("marshal round trip changed the policy")
	}
}
