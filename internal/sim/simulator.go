package sim

import (
	"context"
	"fmt"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/harness"
)

// Simulate runs the same labeled cases under the current and the
// candidate runner and returns the cases whose decision changed.
// Cases are matched by position, so both runs see identical input.
func Simulate(ctx context.Context, cases []harness.Case, current, candidate *contract.Runner, jobs int) (*SimResult, error) {
	opts := harness.Options{Jobs: jobs}

	before, err := harness.RunAll(ctx, current, cases, opts)
	if err != nil {
		return nil, fmt.Errorf("run current policy: %w", err)
	}
	after, err := harness.RunAll(ctx, candidate, cases, opts)
	if err != nil {
		return nil, fmt.Errorf("run candidate policy: %w", err)
	}

	result := &SimResult{
		TotalCases:    len(cases),
		PassingBefore: before.Passed,
		PassingAfter:  after.Passed,
	}

	for i, old := range before.Results {
		cur := after.Results[i]
		if old.ActualVerdict == cur.ActualVerdict && codeString(old.ActualCode) == codeString(cur.ActualCode) {
			continue
		}

		result.Changes = append(result.Changes, DiffEntry{
			Name:            old.Name,
			ExpectedVerdict: old.ExpectedVerdict,
			OldVerdict:      old.ActualVerdict,
			NewVerdict:      cur.ActualVerdict,
			OldCode:         old.ActualCode,
			NewCode:         cur.ActualCode,
		})
		result.ChangedCases++

		if old.ActualVerdict.IsAllowed() && !cur.ActualVerdict.IsAllowed() {
			result.NewlyBlocked++
		}
		if !old.ActualVerdict.IsAllowed() && cur.ActualVerdict.IsAllowed() {
			result.NewlyAllowed++
		}
	}

	return result, nil
}

func codeString(c *contract.RefusalCode) string {
	if c == nil {
		return "-"
	}
	return c.String()
}
