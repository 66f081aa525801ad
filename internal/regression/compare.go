package regression

import (
	"fmt"
	"time"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/harness"
)

// Regression is a case that passed against the baseline and now fails.
type Regression struct {
	TestName        string           `json:"test_name"`
	BaselineVerdict contract.Verdict `json:"baseline_verdict"`
	CurrentVerdict  contract.Verdict `json:"current_verdict"`
	BaselinePassed  bool             `json:"baseline_passed"`
	CurrentPassed   bool             `json:"current_passed"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// Improvement is a case that failed against the baseline and now passes.
type Improvement struct {
	TestName        string           `json:"test_name"`
	BaselineVerdict contract.Verdict `json:"baseline_verdict"`
	CurrentVerdict  contract.Verdict `json:"current_verdict"`
}

// BehaviorChange is a case whose verdict changed without flipping
// pass/fail.
type BehaviorChange struct {
	TestName         string                    `json:"test_name"`
	BaselineVerdict  contract.Verdict          `json:"baseline_verdict"`
	CurrentVerdict   contract.Verdict          `json:"current_verdict"`
	BaselineCategory *contract.RefusalCategory `json:"baseline_category,omitempty"`
	CurrentCategory  *contract.RefusalCategory `json:"current_category,omitempty"`
}

// Report classifies every compared name into exactly one bucket.
type Report struct {
	Timestamp        time.Time        `json:"timestamp"`
	BaselineRevision string           `json:"baseline_revision,omitempty"`
	CurrentVersion   string           `json:"current_version"`
	TotalCompared    int              `json:"total_compared"`
	Regressions      []Regression     `json:"regressions"`
	Improvements     []Improvement    `json:"improvements"`
	BehaviorChanges  []BehaviorChange `json:"behavior_changes"`
	StableCount      int              `json:"stable_count"`
	StableTests      []string         `json:"stable_tests"`
	NewTests         []string         `json:"new_tests"`
	RemovedTests     []string         `json:"removed_tests"`
}

// Compare classifies current results against a baseline. A baseline
// case counts as passed when its recorded verdict equals the current
// case's expected verdict, so edited expectations surface as changes.
// An entry recorded with an error never counts as passed.
// With a nil baseline every current result is new. When a name repeats
// in current, the first occurrence is used.
func Compare(b *Baseline, current []harness.Result) *Report {
	r := &Report{
		Timestamp:       time.Now().UTC(),
		CurrentVersion:  contract.Version,
		Regressions:     []Regression{},
		Improvements:    []Improvement{},
		BehaviorChanges: []BehaviorChange{},
		StableTests:     []string{},
		NewTests:        []string{},
		RemovedTests:    []string{},
	}

	seen := make(map[string]bool, len(current))
	var unique []harness.Result
	for _, c := range current {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		unique = append(unique, c)
	}
	r.TotalCompared = len(unique)

	if b == nil {
		for _, c := range unique {
			r.NewTests = append(r.NewTests, c.Name)
		}
		return r
	}
	r.BaselineRevision = b.Revision

	recorded := make(map[string]Entry, len(b.Results))
	for _, e := range b.Results {
		if _, dup := recorded[e.Name]; !dup {
			recorded[e.Name] = e
		}
	}

	for _, c := range unique {
		base, ok := recorded[c.Name]
		if !ok {
			r.NewTests = append(r.NewTests, c.Name)
			continue
		}
		basePassed := base.Passed(c.ExpectedVerdict)
		changed := base.Verdict != c.ActualVerdict || (base.Error != "") != c.Errored

		switch {
		case basePassed && !c.Passed:
			r.Regressions = append(r.Regressions, Regression{
				TestName:        c.Name,
				BaselineVerdict: base.Verdict,
				CurrentVerdict:  c.ActualVerdict,
				BaselinePassed:  basePassed,
				CurrentPassed:   c.Passed,
				ErrorMessage:    c.Error,
			})
		case !basePassed && c.Passed:
			r.Improvements = append(r.Improvements, Improvement{
				TestName:        c.Name,
				BaselineVerdict: base.Verdict,
				CurrentVerdict:  c.ActualVerdict,
			})
		case changed:
			r.BehaviorChanges = append(r.BehaviorChanges, BehaviorChange{
				TestName:         c.Name,
				BaselineVerdict:  base.Verdict,
				CurrentVerdict:   c.ActualVerdict,
				BaselineCategory: base.Category,
				CurrentCategory:  c.ActualCategory,
			})
		default:
			r.StableCount++
			r.StableTests = append(r.StableTests, c.Name)
		}
	}

	removed := make(map[string]bool)
	for _, e := range b.Results {
		if !seen[e.Name] && !removed[e.Name] {
			removed[e.Name] = true
			r.RemovedTests = append(r.RemovedTests, e.Name)
		}
	}
	return r
}

// HasRegressions reports whether any case regressed.
func (r *Report) HasRegressions() bool {
	return len(r.Regressions) > 0
}

// HasChanges reports whether any case regressed or changed verdict.
func (r *Report) HasChanges() bool {
	return len(r.Regressions) > 0 || len(r.BehaviorChanges) > 0
}

// SummaryText is a one-line description of the report.
func (r *Report) SummaryText() string {
	return fmt.Sprintf("Compared %d tests: %d stable, %d regressions, %d improvements, %d behavior changes, %d new, %d removed",
		r.TotalCompared, r.StableCount, len(r.Regressions), len(r.Improvements),
		len(r.BehaviorChanges), len(r.NewTests), len(r.RemovedTests))
}

// ExitCode is 0 without regressions, 2 with regressions, and 1 with
// regressions in strict mode.
func (r *Report) ExitCode(strict bool) int {
	switch {
	case !r.HasRegressions():
		return 0
	case strict:
		return 1
	default:
		return 2
	}
}
