package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/model"
)

var (
	checkFile       string
	checkContent    string
	checkAssumePath string
	checkFormatFlag string
	checkSLM        bool
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFile, "file", "F", "", "File to check")
	checkCmd.Flags().StringVarP(&checkContent, "content", "C", "", "Content to check ('-' reads stdin)")
	checkCmd.Flags().StringVarP(&checkAssumePath, "assume-path", "a", "", "Path assumed for --content (affects language detection)")
	checkCmd.Flags().StringVarP(&checkFormatFlag, "format", "f", formatText, "Output format (text|json|compact)")
	checkCmd.Flags().BoolVar(&checkSLM, "slm", false, "Also run the neural evaluator stage")
	checkCmd.MarkFlagsMutuallyExclusive("file", "content")
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"c"},
	Short:   "Check a single file or inline content",
	Long: `Evaluates one file or content string against the policy and prints the
gating decision.

Examples:
  conative check --file src/utils.ts
  conative check --content "const x: string = 'hello'"
  cat file.py | conative check --content - --assume-path file.py`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFormat(checkFormatFlag); err != nil {
		return err
	}
	if checkFile == "" && checkContent == "" {
		return errors.New("either --file or --content must be provided")
	}

	if dryRun {
		target := checkFile
		if target == "" {
			target = "content"
		}
		fmt.Fprintf(stdout, "[dry-run] Would check: %s\n", target)
		return nil
	}

	var (
		content string
		path    string
	)
	if checkFile != "" {
		logger.Info("reading file", "path", checkFile)
		data, err := readInput(checkFile)
		if err != nil {
			return err
		}
		content, path = string(data), checkFile
	} else {
		content, path = checkContent, checkAssumePath
		if checkContent == "-" {
			data, err := readInput("-")
			if err != nil {
				return err
			}
			content = string(data)
		}
		if path == "" {
			path = "stdin"
		}
	}

	runner, err := newRunner(commandContext(cmd), checkSLM)
	if err != nil {
		return err
	}
	p := model.NewProposal(model.ActionType{Kind: model.CreateFile, Path: path}, content, path)
	d, err := runner.Check(p)
	if err != nil {
		return err
	}
	debugDump("oracle evaluation", d.Evaluations.Oracle)

	switch checkFormatFlag {
	case formatJSON:
		if err := printJSON(d); err != nil {
			return err
		}
	case formatCompact:
		fmt.Fprintln(stdout, compactDecision(d))
	default:
		printCheckText(d)
	}
	return exitWith(d.Verdict.ExitCode())
}

func compactDecision(d *contract.Decision) string {
	code := 0
	if d.Refusal != nil {
		code = d.Refusal.Code.Numeric()
	}
	return fmt.Sprintf("verdict=%s code=%d duration=%dμs", d.Verdict, code, d.Processing.DurationUS)
}

func printCheckText(d *contract.Decision) {
	fmt.Fprintln(stdout, "=== Check Result ===")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Verdict: %s\n\n", d.Verdict)

	if eval := d.Evaluations.Oracle; eval != nil {
		if len(eval.Violations) > 0 {
			fmt.Fprintln(stdout, "VIOLATIONS:")
			for _, v := range eval.Violations {
				fmt.Fprintf(stdout, "  [%s] %s\n", v.Rule, describeViolation(v))
			}
		}
		if len(eval.Concerns) > 0 {
			fmt.Fprintln(stdout, "CONCERNS:")
			for _, c := range eval.Concerns {
				fmt.Fprintf(stdout, "  [%s] %s\n", c.Rule, describeConcern(c))
			}
		}
	}

	if d.Refusal == nil {
		fmt.Fprintln(stdout, "Content is compliant.")
		return
	}
	printRefusal(d.Refusal)
}

func printRefusal(r *contract.Refusal) {
	fmt.Fprintln(stdout, "\nRefusal Details:")
	fmt.Fprintf(stdout, "  Category: %s\n", r.Category.DisplayName())
	fmt.Fprintf(stdout, "  Code:     %d (%s)\n", r.Code.Numeric(), r.Code.Name())
	fmt.Fprintf(stdout, "  Message:  %s\n", r.Message)
	if r.Remediation != "" {
		fmt.Fprintf(stdout, "  Fix:      %s\n", r.Remediation)
	}
	if r.Overridable && r.OverrideLevel.Rank() < contract.AuthNone.Rank() {
		fmt.Fprintf(stdout, "  Override: %s or higher\n", r.OverrideLevel)
	} else {
		fmt.Fprintln(stdout, "  Override: not permitted")
	}
}
