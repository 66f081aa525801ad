package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/oracle"
	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/watch"
)

var (
	scanIncludeHidden bool
	scanDepth         int
	scanInclude       []string
	scanExclude       []string
	scanWatch         bool
	scanFormat        string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().IntVarP(&scanDepth, "depth", "d", 0, "Maximum directory depth to scan (0 = unlimited)")
	scanCmd.Flags().StringSliceVarP(&scanInclude, "include", "I", nil, "File name globs to include")
	scanCmd.Flags().StringSliceVarP(&scanExclude, "exclude", "E", nil, "File name globs to exclude")
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "Rescan after filesystem changes until interrupted")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", formatText, "Output format (text|json|compact)")
}

var scanCmd = &cobra.Command{
	Use:     "scan [path]",
	Aliases: []string{"s"},
	Short:   "Scan a directory tree for policy violations",
	Long: "Checks every file under the path by extension against the forbidden\n" +
		"and tier 2 languages. Skips hidden entries, node_modules, target/ and\n" +
		"_build/ by default.\n\n" +
		"Exit code 1 on a violation, 2 on a concern, 0 otherwise.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := checkFormat(scanFormat); err != nil {
		return err
	}
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would scan: %s\n", root)
		fmt.Fprintf(stdout, "[dry-run] Format: %s\n", scanFormat)
		return nil
	}

	ctx := commandContext(cmd)
	p, err := loadPolicy(ctx)
	if err != nil {
		return err
	}
	o, err := oracle.New(p)
	if err != nil {
		return err
	}
	opts := oracle.ScanOptions{
		IncludeHidden: scanIncludeHidden,
		MaxDepth:      scanDepth,
		Include:       scanInclude,
		Exclude:       scanExclude,
	}

	code, err := scanOnce(o, root, opts)
	if err != nil {
		return err
	}
	if !scanWatch {
		return exitWith(code)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchScan(ctx, o, root, opts)
}

func watchScan(ctx context.Context, o *oracle.Oracle, root string, opts oracle.ScanOptions) error {
	w, err := watch.New(root, watch.Options{IncludeHidden: opts.IncludeHidden, Logger: logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Watching %s (%d directories) for changes (Ctrl-C to stop)\n", root, len(w.Watched()))
	return w.Run(ctx, func() {
		if _, err := scanOnce(o, root, opts); err != nil {
			logger.Error("rescan failed", "path", root, "error", err)
		}
	})
}

// scanOnce scans root, prints the result and returns the verdict exit code.
func scanOnce(o *oracle.Oracle, root string, opts oracle.ScanOptions) (int, error) {
	logger.Info("scanning", "path", root)

	res, err := o.ScanDirectory(root, opts)
	if err != nil {
		return contract.ExitSystemError, err
	}
	debugDump("scan result", res)

	switch scanFormat {
	case formatJSON:
		if err := printJSON(res); err != nil {
			return contract.ExitSystemError, err
		}
	case formatCompact:
		fmt.Fprintf(stdout, "%s %s files=%d violations=%d concerns=%d\n",
			status(len(res.Violations), len(res.Concerns)), res.Root,
			res.FilesScanned, len(res.Violations), len(res.Concerns))
	default:
		printScanText(res)
	}

	verdict, _ := contract.Derive(&oracle.Evaluation{
		Verdict:    res.Verdict,
		Violations: res.Violations,
		Concerns:   res.Concerns,
	})
	return verdict.ExitCode(), nil
}

func printScanText(res *oracle.ScanResult) {
	fmt.Fprintln(stdout, "=== Conative Gating Scan Results ===")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Path: %s\n", res.Root)
	fmt.Fprintf(stdout, "Files scanned: %d\n", res.FilesScanned)
	fmt.Fprintf(stdout, "Tiers: tier1=%d tier2=%d forbidden=%d unclassified=%d\n",
		res.Tiers[policy.TierPreferred], res.Tiers[policy.TierTolerated],
		res.Tiers[policy.TierForbidden], res.Tiers[policy.TierUnclassified])
	fmt.Fprintf(stdout, "Verdict: %s\n\n", oracle.VerdictName(res.Verdict))

	if len(res.Violations) > 0 {
		fmt.Fprintf(stdout, "VIOLATIONS (%d):\n", len(res.Violations))
		for _, v := range res.Violations {
			fmt.Fprintf(stdout, "  %s - %s\n", violationFile(v), v.Kind.Name())
		}
		fmt.Fprintln(stdout)
	}

	if len(res.Concerns) > 0 {
		fmt.Fprintf(stdout, "CONCERNS (%d):\n", len(res.Concerns))
		for _, c := range res.Concerns {
			file := ""
			if k, ok := c.Kind.(oracle.Tier2Language); ok {
				file = k.File
			}
			fmt.Fprintf(stdout, "  %s - %s\n", file, c.Kind.Name())
		}
		fmt.Fprintln(stdout)
	}

	if len(res.Violations) == 0 && len(res.Concerns) == 0 {
		fmt.Fprintln(stdout, "No violations or concerns found.")
	}
}
