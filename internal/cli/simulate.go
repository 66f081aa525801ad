package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/sim"
)

var (
	simCases  string
	simJobs   int
	simFormat string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simCases, "cases", "training", "Labeled cases to replay (file or directory)")
	simulateCmd.Flags().IntVarP(&simJobs, "jobs", "j", 1, "Number of cases evaluated concurrently")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", formatText, "Output format (text|json)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <candidate-policy>",
	Short: "Replay labeled cases against a candidate policy and show decision diffs",
	Long: "Runs every labeled case under the active policy (--policy) and under the\n" +
		"candidate policy file, and shows which verdicts changed.\n\n" +
		"Use this to preview policy changes before adopting them.",
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := checkFormat(simFormat, formatText, formatJSON); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would simulate %s against: %s\n", args[0], simCases)
		return nil
	}

	ctx := commandContext(cmd)
	corpus, err := loadCorpus(simCases)
	if err != nil {
		return err
	}
	current, err := newRunner(ctx, false)
	if err != nil {
		return err
	}
	candidatePolicy, err := policy.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load candidate policy: %w", err)
	}
	candidate, err := contract.NewRunner(candidatePolicy, contract.RunnerConfig{Logger: logger})
	if err != nil {
		return err
	}

	result, err := sim.Simulate(ctx, corpus.Cases, current, candidate, simJobs)
	if err != nil {
		return err
	}
	result.PolicyPath = args[0]

	if simFormat == formatJSON {
		out, err := sim.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
		return nil
	}
	fmt.Fprint(stdout, sim.FormatText(result))
	return nil
}
