package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apple/pkl-go/pkl"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
var DefaultPath = filepath.Join(".conative", "policy.yaml")

// Load reads a policy file and validates it.
// Empty path falls back to .conative/policy.yaml, and a missing default file
// yields the baseline policy. An explicit path that does not exist is an error.
// YAML and JSON files overlay the baseline; .pkl files are evaluated with pkl.
func Load(ctx context.Context, path string) (*Policy, error) {
	p, _, err := LoadWithHash(ctx, path)
	return p, err
}

// LoadWithHash is Load that also returns the SHA-256 of the file bytes.
// When the baseline is used the hash is the SHA-256 of empty input.
func LoadWithHash(ctx context.Context, path string) (*Policy, string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return BaselinePolicy(), hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read policy: %w", err)
	}

	var p *Policy
	if strings.EqualFold(filepath.Ext(path), ".pkl") {
		p, err = loadPkl(ctx, path)
	} else {
		p, err = Parse(data)
	}
	if err != nil {
		return nil, "", err
	}
	if err := p.Validate(); err != nil {
		return nil, "", err
	}
	return p, hashBytes(data), nil
}

// Parse decodes YAML (or JSON) policy bytes over the baseline policy.
func Parse(data []byte) (*Policy, error) {
	p := BaselinePolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return p, nil
}

func loadPkl(ctx context.Context, path string) (*Policy, error) {
	evaluator, err := pkl.NewEvaluator(ctx, pkl.PreconfiguredOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to start pkl evaluator: %w", err)
	}
	defer evaluator.Close()

	var p Policy
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(path), &p); err != nil {
		return nil, fmt.Errorf("failed to evaluate pkl policy: %w", err)
	}

	base := BaselinePolicy()
	if p.Name == "" {
		p.Name = base.Name
	}
	if p.Enforcement == (Enforcement{}) {
		p.Enforcement = base.Enforcement
	}
	return &p, nil
}

// Marshal renders a policy as YAML.
func Marshal(p *Policy) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	return data, nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
