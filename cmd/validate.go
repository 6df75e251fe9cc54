// =============================================================================
// Incident Form Converter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// without processing anything.
//
// COMMAND USAGE:
//   converter validate [--config FILE]
//
// OUTPUT:
//   The effective configuration (file + flags + environment) as YAML.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/incident-form-converter/internal/converter"
)

// newValidateCmd creates the 'validate' command.
func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print it",
		Long: `The validate command loads the configuration, applies flags and CONVERTER_*
environment variables, checks every setting, and prints the effective
configuration as YAML. Transformation rules are compiled as well, so a bad
regular expression is reported here rather than at conversion time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Settings were validated by the pre-run hook; compile the rules.
			if _, err := converter.NewTransformer(a.cfg.TransformationRules); err != nil {
				return err
			}

			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}

			a.logger.Debug("configuration is valid",
				zap.Int("transformation_rules", len(a.cfg.TransformationRules)))
			return nil
		},
	}
}
