// Package regression records harness results as a baseline and
// classifies later runs against it.
package regression

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/harness"
)

// Schema identifies the baseline file format.
const Schema = "regression-baseline-v1"

// DefaultPath is where baselines are stored when no path is given.
const DefaultPath = ".conative/baseline.json"

// Entry is one recorded case outcome. Error is set when the case could
// not be evaluated; such an entry never counts as passed.
type Entry struct {
	Name            string                    `json:"name"`
	Verdict         contract.Verdict          `json:"verdict"`
	Category        *contract.RefusalCategory `json:"category,omitempty"`
	Code            *contract.RefusalCode     `json:"code,omitempty"`
	Error           string                    `json:"error,omitempty"`
	RecordedAt      time.Time                 `json:"recorded_at"`
	ContractVersion string                    `json:"contract_version"`
}

// Passed reports whether the recorded outcome satisfies expected.
func (e Entry) Passed(expected contract.Verdict) bool {
	return e.Error == "" && e.Verdict == expected
}

// Baseline is a saved set of outcomes.
type Baseline struct {
	Schema          string            `json:"schema"`
	CreatedAt       time.Time         `json:"created_at"`
	ContractVersion string            `json:"contract_version"`
	Revision        string            `json:"revision,omitempty"`
	Results         []Entry           `json:"results"`
	Metadata        map[string]string `json:"metadata"`
}

// NewBaseline records the actual outcome of every result.
func NewBaseline(results []harness.Result, revision string) *Baseline {
	now := time.Now().UTC()
	b := &Baseline{
		Schema:          Schema,
		CreatedAt:       now,
		ContractVersion: contract.Version,
		Revision:        revision,
		Results:         make([]Entry, 0, len(results)),
		Metadata:        map[string]string{},
	}
	for _, r := range results {
		e := Entry{
			Name:            r.Name,
			Verdict:         r.ActualVerdict,
			Category:        r.ActualCategory,
			Code:            r.ActualCode,
			RecordedAt:      now,
			ContractVersion: contract.Version,
		}
		if r.Errored {
			e.Error = r.Error
		}
		b.Results = append(b.Results, e)
	}
	return b
}

// Errored returns the names of entries recorded with an evaluation error.
func (b *Baseline) Errored() []string {
	var names []string
	for _, e := range b.Results {
		if e.Error != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// Load reads a baseline file.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	if b.Schema != Schema {
		return nil, fmt.Errorf("parse baseline %s: unsupported schema %q", path, b.Schema)
	}
	return &b, nil
}

// Save writes the baseline atomically: readers see either the old file
// or the complete new one.
func (b *Baseline) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp baseline: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write baseline: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace baseline: %w", err)
	}
	return nil
}

// GitRevision returns the HEAD commit of the repository containing dir,
// or "" when it cannot be determined.
func GitRevision(ctx context.Context, dir string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
