package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/model"
	"github.com/ppiankov/conative/internal/oracle"
)

var (
	validateStrict bool
	validateFormat string
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Return a non-zero exit code on concerns too")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", formatJSON, "Output format (text|json)")
}

var validateCmd = &cobra.Command{
	Use:     "validate <proposal.json>",
	Aliases: []string{"v"},
	Short:   "Validate a proposal JSON file",
	Long: `Checks a structured proposal against every policy rule and prints the
oracle evaluation. Use '-' to read the proposal from stdin.

Proposal format:
  {
    "id": "uuid",
    "action_type": {"CreateFile": {"path": "src/main.rs"}},
    "content": "file contents",
    "files_affected": ["src/main.rs"],
    "llm_confidence": 0.95
  }

Exit code 1 on a violation. With --strict, exit code 2 on a concern.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := checkFormat(validateFormat, formatText, formatJSON); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would validate: %s\n", args[0])
		return nil
	}

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	var p model.Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse proposal %s: %w", args[0], err)
	}

	runner, err := newRunner(commandContext(cmd), false)
	if err != nil {
		return err
	}
	d, err := runner.Check(&p)
	if err != nil {
		return err
	}
	eval := d.Evaluations.Oracle
	debugDump("oracle evaluation", eval)

	if validateFormat == formatText {
		fmt.Fprintf(stdout, "Proposal: %s\n", eval.ProposalID)
		fmt.Fprintf(stdout, "Verdict: %s\n", oracle.VerdictName(eval.Verdict))
		fmt.Fprintf(stdout, "Rules checked: %d\n", len(eval.RulesChecked))
		fmt.Fprintf(stdout, "Violations: %d\n", len(eval.Violations))
		fmt.Fprintf(stdout, "Concerns: %d\n", len(eval.Concerns))
	} else if err := printJSON(eval); err != nil {
		return err
	}

	switch {
	case d.Verdict == contract.Block:
		return exitWith(contract.Block.ExitCode())
	case validateStrict && d.Verdict == contract.Warn:
		return exitWith(contract.Warn.ExitCode())
	}
	return nil
}
