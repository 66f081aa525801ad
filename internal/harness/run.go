package harness

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/conative/internal/contract"
)

// Options controls a harness run.
type Options struct {
	// FailFast stops at the first failing case. It forces a sequential run.
	FailFast bool
	// Jobs is the number of cases evaluated concurrently. Values below 2
	// run sequentially.
	Jobs int
	// OnResult, if set, is called for each result in input order.
	OnResult func(Result)
}

// Summary accumulates results. The zero value is ready to use.
type Summary struct {
	Total           int      `json:"total"`
	Passed          int      `json:"passed"`
	Failed          int      `json:"failed"`
	TotalDurationUS int64    `json:"total_duration_us"`
	Results         []Result `json:"results"`
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	s.Total++
	if r.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	s.TotalDurationUS += r.DurationUS
	s.Results = append(s.Results, r)
}

// AllPassed reports whether every case passed.
func (s *Summary) AllPassed() bool {
	return s.Failed == 0
}

// FailedNames returns the names of failing cases in run order.
func (s *Summary) FailedNames() []string {
	var names []string
	for _, r := range s.Results {
		if !r.Passed {
			names = append(names, r.Name)
		}
	}
	return names
}

// Run evaluates one case. An evaluation error never passes: it is
// reported as a failed Block with the error attached.
func Run(runner *contract.Runner, c Case) Result {
	start := time.Now()
	res := Result{Name: c.Name, ExpectedVerdict: c.ExpectedVerdict}

	req := contract.NewRequest(c.Proposal, contract.RequestConfig{Source: "harness"})
	d, err := runner.Evaluate(req)
	if err != nil {
		res.ActualVerdict = contract.Block
		res.Errored = true
		res.Error = err.Error()
		res.DurationUS = time.Since(start).Microseconds()
		return res
	}

	res.ActualVerdict = d.Verdict
	if d.Refusal != nil {
		cat, code := d.Refusal.Category, d.Refusal.Code
		res.ActualCategory, res.ActualCode = &cat, &code
	}

	res.Passed = d.Verdict == c.ExpectedVerdict && categoryMatches(c.ExpectedCategory, res.ActualCategory)
	if !res.Passed {
		res.Error = fmt.Sprintf("expected %s with %s, got %s with %s",
			c.ExpectedVerdict, categoryString(c.ExpectedCategory), d.Verdict, categoryString(res.ActualCategory))
	}
	res.DurationUS = time.Since(start).Microseconds()
	return res
}

// RunAll evaluates cases and returns the accumulated summary. Results
// keep input order regardless of Jobs.
func RunAll(ctx context.Context, runner *contract.Runner, cases []Case, opts Options) (*Summary, error) {
	summary := &Summary{Results: make([]Result, 0, len(cases))}

	if opts.FailFast || opts.Jobs < 2 {
		for _, c := range cases {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			r := Run(runner, c)
			summary.Add(r)
			if opts.OnResult != nil {
				opts.OnResult(r)
			}
			if opts.FailFast && !r.Passed {
				break
			}
		}
		return summary, nil
	}

	slots := make([]Result, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = Run(runner, cases[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, r := range slots {
		summary.Add(r)
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
	}
	return summary, nil
}

func categoryMatches(expected, actual *contract.RefusalCategory) bool {
	switch {
	case expected == nil && actual == nil:
		return true
	case expected != nil && actual != nil:
		return *expected == *actual
	default:
		return false
	}
}

func categoryString(c *contract.RefusalCategory) string {
	if c == nil {
		return "no refusal"
	}
	return string(*c)
}
