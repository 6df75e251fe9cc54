// =============================================================================
// Incident Form Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Incident Form Converter CLI. It
// delegates command execution to the cmd package.
//
// USAGE:
//   converter convert   - Convert the form export to Incidencies.xml
//   converter report    - Write the TXT/JSON reports of Incidencies.xml
//   converter process   - Convert and report in one run
//   converter validate  - Validate the configuration without processing
//   converter version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra + Viper)
//   - internal/      : Core logic (parsers, validation, XML, reports)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"os"

	"github.com/ginjaninja78/incident-form-converter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
