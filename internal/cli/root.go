package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
	"github.com/ppiankov/conative/internal/metrics"
	"github.com/ppiankov/conative/internal/policy"
)

// Verbosity levels.
const (
	verbosityQuiet   = "quiet"
	verbosityNormal  = "normal"
	verbosityVerbose = "verbose"
	verbosityDebug   = "debug"
)

// Output formats.
const (
	formatText    = "text"
	formatJSON    = "json"
	formatCompact = "compact"
)

var (
	policyPath  string
	verbosity   string
	dryRun      bool
	metricsFile string

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin

	logger   = slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder *metrics.Recorder
)

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Policy file (.yaml, .json or .pkl; default .conative/policy.yaml)")
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", verbosityNormal, "Output verbosity (quiet|normal|verbose|debug)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without doing it")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
}

var rootCmd = &cobra.Command{
	Use:   "conative",
	Short: "Policy gating for LLM-generated code proposals",
	Long: `Checks proposed code changes against a language and toolchain policy
before they are applied, and returns a verdict with a structured refusal.

Exit codes:
  0  Allow
  1  Block
  2  Warn
  3  Escalate
  4  System or I/O error`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	var level slog.Level
	switch verbosity {
	case verbosityQuiet:
		level = slog.LevelError
	case verbosityNormal:
		level = slog.LevelWarn
	case verbosityVerbose:
		level = slog.LevelInfo
	case verbosityDebug:
		level = slog.LevelDebug
	default:
		return fmt.Errorf("invalid verbosity %q (quiet|normal|verbose|debug)", verbosity)
	}
	logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if metricsFile != "" && recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return nil
}

// exitError carries a verdict-driven exit code. It is not printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode maps a command error to a process exit code. Errors that are
// not verdict-driven are system faults.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return contract.ExitSystemError
}

// exitWith returns nil for code 0 and an exitError otherwise.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

// Execute runs the root command and exits with its code.
func Execute() {
	err := rootCmd.Execute()
	if recorder != nil {
		if werr := recorder.WriteTextfile(metricsFile); werr != nil && err == nil {
			err = werr
		}
	}
	code := exitCode(err)
	if code == contract.ExitSystemError {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func loadPolicy(ctx context.Context) (*policy.Policy, error) {
	p, hash, err := policy.LoadWithHash(ctx, policyPath)
	if err != nil {
		return nil, err
	}
	logger.Info("policy loaded", "name", p.Name, "rules", p.RuleCount(), "hash", hash)
	debugDump("policy", p)
	return p, nil
}

func newRunner(ctx context.Context, enableSLM bool) (*contract.Runner, error) {
	p, err := loadPolicy(ctx)
	if err != nil {
		return nil, err
	}
	cfg := contract.RunnerConfig{EnableSLM: enableSLM, Logger: logger}
	if recorder != nil {
		cfg.Observer = recorder
	}
	return contract.NewRunner(p, cfg)
}

// debugDump writes internal state to stderr at debug verbosity.
func debugDump(label string, v any) {
	if verbosity != verbosityDebug {
		return
	}
	fmt.Fprintf(stderr, "--- %s ---\n", label)
	spew.Fdump(stderr, v)
}

func verbose() bool {
	return verbosity == verbosityVerbose || verbosity == verbosityDebug
}

func checkFormat(format string, allowed ...string) error {
	if len(allowed) == 0 {
		allowed = []string{formatText, formatJSON, formatCompact}
	}
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q", format)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
