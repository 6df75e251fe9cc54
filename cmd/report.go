// =============================================================================
// Incident Form Converter - Report Command
// =============================================================================
//
// This file defines the 'report' command, which validates the XML record set
// and writes the reports of one variant.
//
// COMMAND USAGE:
//   converter report [flags]
//
// FLAGS:
//   --variant  : filter | json | valid_invalid (overrides report.variant)
//   --xml      : The XML file to read (overrides xml_file)
//   --no-color : Write reports without ANSI colors
//
// VARIANTS:
//   filter        : valid records only -> incidencies_filtrat.txt
//   json          : valid records only -> screen + incidencies_filtrat.json
//   valid_invalid : every record, with errors ->
//                   incidencies_filtrat_valid_invalid.txt +
//                   incidencies_valid_invalid.json
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
)

// newReportCmd creates the 'report' command.
func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Validate the XML record set and write the reports",
		Long: `The report command reads the XML record set, validates every record, and
writes the text and JSON reports of the selected variant.

The filter and json variants keep only records passing every check. The
valid_invalid variant keeps every record and lists the failing fields of
invalid ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.newConverter(cmd)
			if err != nil {
				return err
			}
			result, err := conv.Report(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().String(config.KeyXML, "", "XML record set to read (overrides xml_file)")
	addReportFlags(cmd)

	return cmd
}

// addReportFlags adds the --variant and --no-color flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyVariant, "", "Report variant: filter, json, valid_invalid (overrides report.variant)")
	cmd.Flags().Bool(config.KeyNoColor, false, "Write reports without ANSI colors")
}
