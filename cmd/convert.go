// =============================================================================
// Incident Form Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which turns the form export into
// the XML record set.
//
// COMMAND USAGE:
//   converter convert [flags]
//
// FLAGS:
//   --input : The form export to read (overrides input_file)
//   --xml   : The XML file to write (overrides xml_file)
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
)

// newConvertCmd creates the 'convert' command.
func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the form export (CSV or XLSX) to XML",
		Long: `The convert command reads the form export, turns every header into an XML
tag (accents removed, spaces and punctuation replaced by underscores), applies
the configured transformation rules, and writes one <Registro> per response
into <Registros>.

Invalid records are kept unless xml.include_invalid is false in the
configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.newConverter(cmd)
			if err != nil {
				return err
			}
			result, err := conv.Convert(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	addInputFlags(cmd)

	return cmd
}

// addInputFlags adds the --input and --xml flags.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyInput, "", "Form export to read, .csv or .xlsx (overrides input_file)")
	cmd.Flags().String(config.KeyXML, "", "XML record set to write (overrides xml_file)")
}
