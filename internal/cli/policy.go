package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/policydiff"
)

// Policy sections accepted by --section.
const (
	sectionLanguages = "languages"
	sectionToolchain = "toolchain"
	sectionPatterns  = "patterns"
)

var (
	policyShowFormat  string
	policyShowSection string
	policyDiffFormat  string
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyDiffCmd)

	for _, c := range []*cobra.Command{policyCmd, policyShowCmd} {
		c.Flags().StringVarP(&policyShowFormat, "format", "f", formatText, "Output format (text|json|yaml)")
		c.Flags().StringVarP(&policyShowSection, "section", "s", "", "Show only one section (languages|toolchain|patterns)")
	}
	policyDiffCmd.Flags().StringVarP(&policyDiffFormat, "format", "f", formatText, "Output format (text|json)")
}

var policyCmd = &cobra.Command{
	Use:     "policy",
	Aliases: []string{"p"},
	Short:   "Show or compare policy configuration",
	Long: `Shows language tiers, toolchain rules, forbidden patterns and exceptions
of the active policy. Without a subcommand this is "policy show".

Tiers:
  Tier 1     preferred languages, never produce findings
  Tier 2     tolerated languages, produce a warning
  Forbidden  blocked languages`,
	Args: cobra.NoArgs,
	RunE: runPolicyShow,
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the active policy",
	Args:  cobra.NoArgs,
	RunE:  runPolicyShow,
}

var policyDiffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two policy files and show changes",
	Long: "Loads two policy files and shows what changed: name, enforcement\n" +
		"thresholds, and languages, exceptions, toolchain and pattern rules\n" +
		"added, removed or changed.",
	Args: cobra.ExactArgs(2),
	RunE: runPolicyDiff,
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(policyShowFormat, formatText, formatJSON, "yaml"); err != nil {
		return err
	}
	switch policyShowSection {
	case "", sectionLanguages, sectionToolchain, sectionPatterns:
	default:
		return fmt.Errorf("unknown section %q (languages|toolchain|patterns)", policyShowSection)
	}

	p, err := loadPolicy(commandContext(cmd))
	if err != nil {
		return err
	}

	switch policyShowFormat {
	case formatJSON:
		return printJSON(policySection(p, policyShowSection))
	case "yaml":
		if policyShowSection != "" {
			return fmt.Errorf("--section is not supported with yaml output")
		}
		data, err := policy.Marshal(p)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	fmt.Fprint(stdout, formatPolicyText(p, policyShowSection))
	return nil
}

func policySection(p *policy.Policy, section string) any {
	switch section {
	case sectionLanguages:
		return p.Languages
	case sectionToolchain:
		return p.Toolchain
	case sectionPatterns:
		return p.Patterns
	default:
		return p
	}
}

func formatPolicyText(p *policy.Policy, section string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", p.Name)

	if section == "" || section == sectionLanguages {
		b.WriteString("\nTIER 1 (Preferred):\n")
		for _, l := range p.Languages.Tier1 {
			fmt.Fprintf(&b, "  + %s (%s)\n", l.Name, strings.Join(l.Extensions, ", "))
		}
		b.WriteString("\nTIER 2 (Acceptable):\n")
		for _, l := range p.Languages.Tier2 {
			fmt.Fprintf(&b, "  ~ %s (%s)\n", l.Name, strings.Join(l.Extensions, ", "))
		}
		b.WriteString("\nFORBIDDEN:\n")
		for _, l := range p.Languages.Forbidden {
			fmt.Fprintf(&b, "  - %s (%s)\n", l.Name, strings.Join(l.Extensions, ", "))
		}
		b.WriteString("\nEXCEPTIONS:\n")
		for _, e := range p.Languages.Exceptions {
			fmt.Fprintf(&b, "  %s allowed in: %s\n", e.Language, strings.Join(e.AllowedPaths, ", "))
			if e.Reason != "" {
				fmt.Fprintf(&b, "    Reason: %s\n", e.Reason)
			}
		}
	}

	if section == "" || section == sectionToolchain {
		b.WriteString("\nTOOLCHAIN RULES:\n")
		for _, r := range p.Toolchain.Rules {
			fmt.Fprintf(&b, "  %s requires %s\n", r.Tool, r.Requires)
		}
	}

	if section == "" || section == sectionPatterns {
		b.WriteString("\nFORBIDDEN PATTERNS:\n")
		for _, r := range p.Patterns.Forbidden {
			category := r.Category
			if category == "" {
				category = policy.CategoryPattern
			}
			fmt.Fprintf(&b, "  %s [%s] - %s\n", r.Name, category, r.Reason)
		}
	}

	return b.String()
}

func runPolicyDiff(cmd *cobra.Command, args []string) error {
	if err := checkFormat(policyDiffFormat, formatText, formatJSON); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	oldPolicy, err := policy.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load old policy: %w", err)
	}
	newPolicy, err := policy.Load(ctx, args[1])
	if err != nil {
		return fmt.Errorf("load new policy: %w", err)
	}

	result := policydiff.Diff(oldPolicy, newPolicy)
	result.OldPath = args[0]
	result.NewPath = args[1]

	if policyDiffFormat == formatJSON {
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
		return nil
	}
	fmt.Fprint(stdout, policydiff.FormatText(result))
	return nil
}
