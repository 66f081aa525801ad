package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/policy"
)

var (
	initForce   bool
	initMinimal bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing policy file")
	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "Write a minimal policy that inherits the baseline")
}

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Create .conative/policy.yaml in the current directory",
	Long: `Writes a commented policy file equal to the built-in baseline. Fields
left out of the file keep their baseline values, so the --minimal file only
names the policy.

To revert: rm -rf .conative/`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

const minimalPolicyYAML = `# conative gating policy
# Generated by: conative init --minimal
#
# Every section left out inherits the built-in baseline.
# Run "conative policy show --format yaml" to see the full policy.

name: "Project Policy"
`

func runInit(cmd *cobra.Command, args []string) error {
	path := policy.DefaultPath
	if dryRun {
		fmt.Fprintf(stdout, "[dry-run] Would create %s\n", path)
		fmt.Fprintf(stdout, "[dry-run] Force: %t, Minimal: %t\n", initForce, initMinimal)
		return nil
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(stderr, "%s already exists. Use --force to overwrite.\n", path)
		return exitWith(1)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	content := policy.DefaultPolicyYAML()
	if initMinimal {
		content = minimalPolicyYAML
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "Initialized conative configuration in %s\n", filepath.Dir(path))
	fmt.Fprintf(stdout, "  %s  - policy configuration\n", path)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "To revert: rm -rf %s/\n", filepath.Dir(path))
	return nil
}
