package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/harness"
)

var (
	contractTestFormat   string
	contractTestFailFast bool
	contractTestJobs     int
)

func init() {
	rootCmd.AddCommand(contractCmd)
	contractCmd.AddCommand(contractTestCmd)
	contractTestCmd.Flags().StringVarP(&contractTestFormat, "format", "f", formatText, "Output format (text|json|compact)")
	contractTestCmd.Flags().BoolVar(&contractTestFailFast, "fail-fast", false, "Stop at the first failing case")
	contractTestCmd.Flags().IntVarP(&contractTestJobs, "jobs", "j", 1, "Number of cases evaluated concurrently")
}

var contractCmd = &cobra.Command{
	Use:     "contract",
	Aliases: []string{"ct"},
	Short:   "Gating contract test runner and tools",
	Long: `Runs labeled test cases and evaluates requests through the gating
contract. The contract defines the request (inputs), the decision (outputs),
the refusal taxonomy and the audit log format.

Examples:
  conative contract test training/
  conative contract eval request.json --audit
  conative contract regression --save`,
}

var contractTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Run contract tests from labeled case files",
	Long: "Loads JSON or YAML training files from a file or directory and checks\n" +
		"each decision against its expected verdict and refusal category.\n\n" +
		"Exit code 1 if any case fails.",
	Args: cobra.MaximumNArgs(1),
	RunE: runContractTest,
}

func runContractTest(cmd *cobra.Command, args []string) error {
	if err := checkFormat(contractTestFormat); err != nil {
		return err
	}
	path := "training"
	if len(args) > 0 {
		path = args[0]
	}
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would run contract tests from: %s\n", path)
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

	if verbose() {
		fmt.Fprintf(stderr, "Running %d test cases...\n", len(corpus.Cases))
	}
	summary, err := harness.RunAll(ctx, runner, corpus.Cases, harness.Options{
		FailFast: contractTestFailFast,
		Jobs:     contractTestJobs,
		OnResult: func(r harness.Result) {
			if !verbose() {
				return
			}
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(stderr, "  %s %s (%dμs)\n", status, r.Name, r.DurationUS)
		},
	})
	if err != nil {
		return err
	}

	switch contractTestFormat {
	case formatJSON:
		out, err := harness.FormatJSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
	case formatCompact:
		fmt.Fprint(stdout, harness.FormatCompact(summary))
	default:
		fmt.Fprint(stdout, harness.FormatText(summary))
	}

	if !summary.AllPassed() {
		return exitWith(1)
	}
	return nil
}

// loadCorpus loads labeled cases and logs skipped files. An empty corpus
// is an error.
func loadCorpus(path string) (*harness.Corpus, error) {
	corpus, err := harness.Load(path)
	if err != nil {
		return nil, err
	}
	for _, s := range corpus.Skipped {
		logger.Warn("skipping case file", "path", s.Path, "error", s.Err)
	}
	if len(corpus.Cases) == 0 {
		return nil, errors.New("no test cases found in: " + path)
	}
	return corpus, nil
}
