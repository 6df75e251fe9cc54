// =============================================================================
// Incident Form Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── convertCmd  (converter convert)   form export -> Incidencies.xml
//   ├── reportCmd   (converter report)    Incidencies.xml -> TXT/JSON reports
//   ├── processCmd  (converter process)   convert + report
//   ├── validateCmd (converter validate)  check and print the configuration
//   └── versionCmd  (converter version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --output-dir, --log-level)
//   2. Loading config.yaml and overlaying flags and CONVERTER_* variables
//      through viper
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/converter"
	"github.com/ginjaninja78/incident-form-converter/internal/logging"
)

// EnvPrefix prefixes the environment variables that override flags.
// Example: CONVERTER_OUTPUT_DIR overrides --output-dir.
const EnvPrefix = "CONVERTER"

// =============================================================================
// APPLICATION STATE
// =============================================================================

// app holds the state shared by the commands of one invocation.
type app struct {
	// v overlays flags and environment variables on the configuration.
	v *viper.Viper

	// cfg is the effective configuration, set by the pre-run hook.
	cfg *config.MainConfig

	// logger is set by the pre-run hook.
	logger *zap.Logger
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// NewRootCmd creates a new root command with all subcommands attached.
// A fresh tree is built per call, so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "converter",
		Short: "Incident Form Converter - Turn incident form exports into XML and reports",
		Long: `Incident Form Converter turns the responses of the incident reporting form
into an XML record set, validates every record field by field, and renders
colored text and JSON reports.

Key Features:
  - CSV and XLSX form exports
  - Eleven field validators with strict and detailed modes
  - Three report variants: filter, json, valid_invalid
  - Configurable answer domains and value transformations
  - Archival of previous outputs before they are overwritten

Example Usage:
  converter process                         # respostes.csv -> Incidencies.xml -> reports
  converter convert --input export.xlsx     # Convert an XLSX export
  converter report --variant json           # Print valid records and write JSON
  converter validate --config ./my.yaml     # Check a configuration file`,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},

		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print the help message.
			cmd.Help()
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	cmd.PersistentFlags().String(
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file (optional unless set explicitly)",
	)
	cmd.PersistentFlags().BoolP(
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
	cmd.PersistentFlags().String(
		config.KeyOutputDir,
		"",
		"Directory for the XML and reports (overrides output_dir)",
	)
	cmd.PersistentFlags().String(
		config.KeyLogLevel,
		"",
		"Log level: debug, info, warn, error (overrides log_level)",
	)

	cmd.AddCommand(
		newConvertCmd(a),
		newReportCmd(a),
		newProcessCmd(a),
		newValidateCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// load reads the configuration, applies flag and environment overrides, and
// builds the logger. It runs before every subcommand.
func (a *app) load(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := bindFlags(cmd.Flags(), a.v); err != nil {
		return err
	}

	// A config file named by flag or environment must exist; the default
	// one is optional.
	cfgFile := a.v.GetString("config")
	cfg, err := config.LoadMainConfig(cfgFile, a.v.IsSet("config"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverrides(a.v); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, a.v.GetBool("verbose"), isTerminal(cmd.ErrOrStderr()))
	if err != nil {
		return errors.Wrap(err, "failed to set up logging")
	}
	a.logger = logger
	a.logger.Debug("configuration loaded",
		zap.String("config_file", cfgFile),
		zap.String("input_file", cfg.InputFile),
		zap.String("xml_file", cfg.XMLFile),
		zap.String("output_dir", cfg.OutputDir))

	return nil
}

// bindFlags binds every flag of a command, persistent ones included, to v.
func bindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	var result error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = errors.CombineErrors(result, err)
		}
	})
	return result
}

// newConverter builds the converter for the loaded configuration.
func (a *app) newConverter(cmd *cobra.Command) (*converter.Converter, error) {
	return converter.New(a.cfg,
		converter.WithLogger(a.logger),
		converter.WithStdout(cmd.OutOrStdout()))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// OUTPUT
// =============================================================================

// printResult lists the files an operation wrote.
func printResult(w io.Writer, result *converter.Result) {
	for _, out := range result.Outputs {
		kind := strings.ToUpper(strings.TrimPrefix(filepath.Ext(out.Path), "."))
		fmt.Fprintf(w, "%s generat correctament: %s\n", kind, out.Path)
	}
	if result.SummaryFile != "" {
		fmt.Fprintf(w, "Resum de l'execució: %s\n", result.SummaryFile)
	}
	fmt.Fprintf(w, "Registres: %d llegits, %d vàlids, %d invàlids, %d escrits\n",
		result.Stats.RecordsRead,
		result.Stats.ValidRecords,
		result.Stats.InvalidRecords,
		result.Stats.RecordsWritten)
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute builds the command tree and runs it. This is called by main.main().
//
// RETURNS:
//   - The process exit code: 0 on success, 1 on any error.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, NewRootCmd(), os.Stderr)
}

// run executes root and reports a failure, with its hints, on stderr.
func run(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(stderr, "Hint: %s\n", hint)
		}
		return 1
	}
	return 0
}
