package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/redteam"
)

var (
	redteamFormat  string
	redteamVerbose bool
	redteamJobs    int
)

func init() {
	contractCmd.AddCommand(contractRedteamCmd)
	contractRedteamCmd.Flags().StringVarP(&redteamFormat, "format", "f", formatText, "Output format (text|json|compact)")
	contractRedteamCmd.Flags().BoolVar(&redteamVerbose, "verbose", false, "Show attack vectors of bypasses and false positives")
	contractRedteamCmd.Flags().IntVarP(&redteamJobs, "jobs", "j", 1, "Number of cases evaluated concurrently")
}

var contractRedteamCmd = &cobra.Command{
	Use:     "redteam [path]",
	Aliases: []string{"rt"},
	Short:   "Run red-team adversarial tests",
	Long: `Runs adversarial cases designed to slip past the gate and reports the
bypass rate, false positives and a security score.

Categories:
  documentation_bypass  forbidden code hidden in docs or comments
  marker_split          marker splitting and case variation
  encoding              base64 or hex encoded secrets
  boundary              empty files, unicode, edge cases
  injection             polyglot files, hidden secrets
  false_positive        legitimate content that must be allowed

Exit code 1 when a bypass is not a known limitation or a case cannot
be evaluated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runContractRedteam,
}

func runContractRedteam(cmd *cobra.Command, args []string) error {
	if err := checkFormat(redteamFormat); err != nil {
		return err
	}
	path := "training/redteam"
	if len(args) > 0 {
		path = args[0]
	}
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would run red-team tests from: %s\n", path)
		return nil
	}

	corpus, err := loadCorpus(path)
	if err != nil {
		return err
	}
	cases := redteam.Select(corpus.Cases)
	if len(cases) == 0 {
		return fmt.Errorf("no red-team test cases found in: %s", path)
	}

	ctx := commandContext(cmd)
	runner, err := newRunner(ctx, false)
	if err != nil {
		return err
	}
	if verbose() {
		fmt.Fprintf(stderr, "Running %d red-team tests...\n", len(cases))
	}
	summary, err := redteam.Run(ctx, runner, cases, redteamJobs)
	if err != nil {
		return err
	}

	switch redteamFormat {
	case formatJSON:
		out, err := redteam.FormatJSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
	case formatCompact:
		fmt.Fprint(stdout, redteam.FormatCompact(summary))
	default:
		fmt.Fprint(stdout, redteam.FormatText(summary, redteamVerbose))
	}

	if summary.HasUnexpectedBypasses() || summary.HasErrors() {
		return exitWith(1)
	}
	return nil
}
