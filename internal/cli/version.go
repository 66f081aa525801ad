package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
)

const version = "0.1.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(map[string]string{
			"version":          version,
			"name":             "conative",
			"contract_version": contract.Version,
			"contract_schema":  contract.Schema,
		})
	},
}
