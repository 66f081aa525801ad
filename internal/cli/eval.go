package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/audit"
	"github.com/ppiankov/conative/internal/contract"
)

var (
	evalFormat   string
	evalAudit    bool
	evalAuditLog string
	evalSLM      bool
)

func init() {
	contractCmd.AddCommand(contractEvalCmd)
	contractEvalCmd.Flags().StringVarP(&evalFormat, "format", "f", formatJSON, "Output format (text|json|compact)")
	contractEvalCmd.Flags().BoolVar(&evalAudit, "audit", false, "Include the audit log entry in the output")
	contractEvalCmd.Flags().StringVar(&evalAuditLog, "audit-log", "", "Append the audit entry to this hash-chained log")
	contractEvalCmd.Flags().BoolVar(&evalSLM, "slm", false, "Also run the neural evaluator stage")
}

var contractEvalCmd = &cobra.Command{
	Use:   "eval <request.json>",
	Short: "Evaluate a gating request through the contract",
	Long: "Reads a GatingRequest JSON ('-' for stdin) and prints the decision.\n" +
		"The exit code is the verdict exit code.",
	Args: cobra.ExactArgs(1),
	RunE: runContractEval,
}

func runContractEval(cmd *cobra.Command, args []string) error {
	if err := checkFormat(evalFormat); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would evaluate request: %s\n", args[0])
		return nil
	}

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	req, err := contract.ParseRequest(data)
	if err != nil {
		return err
	}

	runner, err := newRunner(commandContext(cmd), evalSLM)
	if err != nil {
		return err
	}
	d, err := runner.Evaluate(req)
	if err != nil {
		return err
	}
	debugDump("decision", d)

	entry := audit.FromDecision(req, d)
	if evalAuditLog != "" {
		if err := appendAudit(evalAuditLog, entry); err != nil {
			return err
		}
	}

	switch evalFormat {
	case formatJSON:
		if evalAudit {
			err = printJSON(struct {
				Decision *contract.Decision `json:"decision"`
				Audit    audit.AuditEntry   `json:"audit"`
			}{d, entry})
		} else {
			err = printJSON(d)
		}
		if err != nil {
			return err
		}
	case formatCompact:
		fmt.Fprintln(stdout, compactDecision(d))
	default:
		printDecisionText(d)
		if evalAudit {
			fmt.Fprintln(stdout, "\nAudit Log Entry:")
			if err := printJSON(entry); err != nil {
				return err
			}
		}
	}

	return exitWith(d.Verdict.ExitCode())
}

func appendAudit(path string, entry audit.AuditEntry) error {
	log, err := audit.Open(path)
	if err != nil {
		return err
	}
	if err := log.Record(entry); err != nil {
		log.Close()
		return err
	}
	return log.Close()
}

func printDecisionText(d *contract.Decision) {
	fmt.Fprintln(stdout, "=== Gating Decision ===")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Request ID:  %s\n", d.RequestID)
	fmt.Fprintf(stdout, "Decision ID: %s\n", d.DecisionID)
	fmt.Fprintf(stdout, "Verdict:     %s\n", d.Verdict)
	fmt.Fprintf(stdout, "Duration:    %dμs\n", d.Processing.DurationUS)
	if d.Refusal != nil {
		printRefusal(d.Refusal)
	}
}
