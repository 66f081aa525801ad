package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/conative/internal/contract"
)

var (
	schemaFormat  string
	schemaSection string
)

func init() {
	contractCmd.AddCommand(contractSchemaCmd)
	contractSchemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", formatText, "Output format (text|json)")
	contractSchemaCmd.Flags().StringVarP(&schemaSection, "section", "s", "", "Show only one section (inputs|outputs|refusals|audit)")
}

var contractSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Display the gating contract schema",
	Long:  "Shows the contract version, request and decision fields, the refusal\ntaxonomy and the audit entry format.",
	Args:  cobra.NoArgs,
	RunE:  runContractSchema,
}

func runContractSchema(cmd *cobra.Command, args []string) error {
	if err := checkFormat(schemaFormat, formatText, formatJSON); err != nil {
		return err
	}
	doc, err := contract.Describe(schemaSection)
	if err != nil {
		return err
	}
	if schemaFormat == formatJSON {
		return printJSON(doc)
	}
	doc.WriteText(stdout)
	return nil
}
