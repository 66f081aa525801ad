package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/audit"
	"github.com/ppiankov/conative/internal/contract"
)

var (
	auditVerifyFormat string

	showRequest string
	showSession string
	showVerdict string
	showFrom    string
	showTo      string
	showFormat  string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditShowCmd)

	auditVerifyCmd.Flags().StringVarP(&auditVerifyFormat, "format", "f", formatText, "Output format (text|json)")

	auditShowCmd.Flags().StringVar(&showRequest, "request", "", "Only entries for this request id")
	auditShowCmd.Flags().StringVar(&showSession, "session", "", "Only entries for this session id")
	auditShowCmd.Flags().StringVar(&showVerdict, "verdict", "", "Only entries with this verdict (Allow|Warn|Escalate|Block)")
	auditShowCmd.Flags().StringVar(&showFrom, "from", "", "Only entries at or after this RFC3339 time")
	auditShowCmd.Flags().StringVar(&showTo, "to", "", "Only entries at or before this RFC3339 time")
	auditShowCmd.Flags().StringVarP(&showFormat, "format", "f", formatText, "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous line. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show a filtered timeline of audit entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	if err := checkFormat(auditVerifyFormat, formatText, formatJSON); err != nil {
		return err
	}
	result := audit.Verify(args[0])

	if auditVerifyFormat == formatJSON {
		if err := printJSON(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(stdout, "OK: %d entries verified\n", result.Lines)
	} else {
		fmt.Fprintf(stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	}

	if !result.Valid {
		return exitWith(1)
	}
	return nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(showFormat, formatText, formatJSON); err != nil {
		return err
	}

	filter := audit.Filter{RequestID: showRequest, SessionID: showSession}
	if showVerdict != "" {
		v, err := contract.ParseVerdict(showVerdict)
		if err != nil {
			return err
		}
		filter.Verdict = v
	}
	var err error
	if filter.From, err = parseTimeFlag("from", showFrom); err != nil {
		return err
	}
	if filter.To, err = parseTimeFlag("to", showTo); err != nil {
		return err
	}

	result, err := audit.Replay(args[0], filter)
	if err != nil {
		return err
	}

	if showFormat == formatJSON {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
		return nil
	}
	fmt.Fprint(stdout, audit.FormatTimeline(result))
	return nil
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}
