package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/harness"
	"github.com/ppiankov/conative/internal/regression"
)

var (
	regressionBaseline string
	regressionSave     bool
	regressionStrict   bool
	regressionFormat   string
	regressionJobs     int
)

func init() {
	contractCmd.AddCommand(contractRegressionCmd)
	contractRegressionCmd.Flags().StringVarP(&regressionBaseline, "baseline", "b", regression.DefaultPath, "Baseline file path")
	contractRegressionCmd.Flags().BoolVar(&regressionSave, "save", false, "Save current results as the new baseline")
	contractRegressionCmd.Flags().BoolVar(&regressionStrict, "strict", false, "Exit 1 instead of 2 on regressions")
	contractRegressionCmd.Flags().StringVarP(&regressionFormat, "format", "f", formatText, "Output format (text|json|compact)")
	contractRegressionCmd.Flags().IntVarP(&regressionJobs, "jobs", "j", 1, "Number of cases evaluated concurrently")
}

var contractRegressionCmd = &cobra.Command{
	Use:     "regression [path]",
	Aliases: []string{"reg"},
	Short:   "Compare test results against a saved baseline",
	Long: `Runs the labeled cases and compares each outcome with a saved baseline
to find regressions (used to pass, now fail) and improvements.

Workflow:
  1. conative contract regression --save
  2. change the policy or the code
  3. conative contract regression

Exit code 2 on regressions, 1 with --strict.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runContractRegression,
}

func runContractRegression(cmd *cobra.Command, args []string) error {
	if err := checkFormat(regressionFormat); err != nil {
		return err
	}
	path := "training"
	if len(args) > 0 {
		path = args[0]
	}
	if dryRun {
		fmt.Fprintln(stdout, "[dry-run] Would run regression tests")
		fmt.Fprintf(stdout, "[dry-run] Tests: %s, Baseline: %s\n", path, regressionBaseline)
		return nil
	}

	corpus, err := loadCorpus(path)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	runner, err := newRunner(ctx, false)
	if err != nil {
		return err
	}
	summary, err := harness.RunAll(ctx, runner, corpus.Cases, harness.Options{Jobs: regressionJobs})
	if err != nil {
		return err
	}

	if regressionSave {
		b := regression.NewBaseline(summary.Results, regression.GitRevision(ctx, "."))
		if err := b.Save(regressionBaseline); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Baseline saved to: %s\n", regressionBaseline)
		fmt.Fprintf(stdout, "Tests: %d total, %d passed, %d failed\n", summary.Total, summary.Passed, summary.Failed)
		if errored := b.Errored(); len(errored) > 0 {
			fmt.Fprintf(stderr, "Warning: %d cases could not be evaluated and are recorded as errors: %s\n",
				len(errored), strings.Join(errored, ", "))
		}
		return nil
	}

	baseline, err := regression.Load(regressionBaseline)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "No baseline found at: %s\n", regressionBaseline)
			fmt.Fprintln(stderr, "Run with --save to create a new baseline")
		}
		return err
	}

	report := regression.Compare(baseline, summary.Results)
	switch regressionFormat {
	case formatJSON:
		out, err := regression.FormatJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
	case formatCompact:
		fmt.Fprint(stdout, regression.FormatCompact(report))
	default:
		fmt.Fprint(stdout, regression.FormatText(report))
	}

	return exitWith(report.ExitCode(regressionStrict))
}
