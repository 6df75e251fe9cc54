// =============================================================================
// Incident Form Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the whole pipeline.
//
// COMMAND USAGE:
//   converter process [flags]
//
// FLAGS:
//   --input    : The form export to read (overrides input_file)
//   --xml      : The XML file to write and read (overrides xml_file)
//   --variant  : The report variant (overrides report.variant)
//   --no-color : Write reports without ANSI colors
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Read the form export
//   3. Apply transformation rules
//   4. Validate and write the XML record set
//   5. Read the XML back and write the reports of the variant
//   6. Write the run summary (when write_summary is set)
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newProcessCmd creates the 'process' command.
func newProcessCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Convert the form export and write the reports",
		Long: `The process command runs convert and then report in one locked run.

On success:
  - The XML record set and the variant's reports are in the output directory
  - Files they replaced are copied to archive_dir, when configured
  - A run summary is written, when write_summary is set

On error:
  - The error and a hint are printed to stderr
  - The command exits with status 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.newConverter(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result, err := conv.Process(cmd.Context())
			if err != nil {
				return err
			}

			printResult(out, result)
			fmt.Fprintf(out, "Temps: %s\n", result.Stats.ProcessingTime.Round(time.Millisecond))
			return nil
		},
	}

	addInputFlags(cmd)
	addReportFlags(cmd)

	return cmd
}
