// =============================================================================
// Incident Form Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (lowest to highest precedence):
//   1. Built-in defaults: the fixed file names used by the incident form
//      workflow (respostes.csv -> Incidencies.xml -> reports).
//   2. config.yaml: optional; a missing default file is not an error.
//   3. Overrides: command-line flags and CONVERTER_* environment variables,
//      applied through the Overrides interface (satisfied by *viper.Viper).
//
// ARCHITECTURE:
//   - Load:      yaml.v3 into MainConfig
//   - Defaults:  applyMainConfigDefaults fills every unset option
//   - Validate:  go-playground/validator struct tags, reported with the YAML
//                key names so messages point at the file
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/incident-form-converter/internal/validation"
)

// DefaultConfigFile is the configuration file read when none is named.
const DefaultConfigFile = "config.yaml"

// Report variants.
const (
	VariantFilter       = "filter"
	VariantJSON         = "json"
	VariantValidInvalid = "valid_invalid"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InputFile is the form export to convert (.csv or .xlsx).
	// Default: "respostes.csv"
	InputFile string `yaml:"input_file" validate:"required"`

	// XMLFile is the record set written by convert and read by report.
	// Relative paths are resolved against OutputDir.
	// Default: "Incidencies.xml"
	XMLFile string `yaml:"xml_file" validate:"required"`

	// OutputDir is the directory where the XML and reports are written.
	// Default: "." (the working directory)
	OutputDir string `yaml:"output_dir" validate:"required"`

	// ArchiveDir, when set, receives a timestamped copy of every output file
	// that is about to be overwritten.
	// Default: "" (no archiving)
	ArchiveDir string `yaml:"archive_dir"`

	// WriteSummary writes a run summary log next to the outputs.
	// Default: false
	WriteSummary bool `yaml:"write_summary"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// SOURCE SETTINGS
	// =========================================================================

	// CSVSettings contains settings for parsing the input CSV file.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// XLSXSettings contains settings for reading XLSX exports.
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// XML contains settings for the generated record set.
	XML XMLSettings `yaml:"xml"`

	// Report contains settings for the text and JSON reports.
	Report ReportSettings `yaml:"report"`

	// =========================================================================
	// VALIDATION SETTINGS
	// =========================================================================

	// Domains holds the accepted answers and limits of the validators.
	Domains DomainSettings `yaml:"domains"`

	// =========================================================================
	// TRANSFORMATION RULES
	// =========================================================================

	// TransformationRules rewrite answers before they are written to XML.
	// Rules are applied in order.
	TransformationRules []TransformationRule `yaml:"transformation_rules,omitempty" validate:"dive"`
}

// =============================================================================
// SECTION STRUCTURES
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Accepts a single character or one of: "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter" validate:"required"`

	// Encoding is the character encoding of the CSV file.
	// Valid values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding" validate:"oneof=UTF-8 ISO-8859-1 Windows-1252"`

	// TrimValues removes surrounding whitespace from every answer.
	// Default: false (answers are kept byte-for-byte)
	TrimValues bool `yaml:"trim_values"`
}

// XLSXSettings contains settings for reading XLSX exports.
type XLSXSettings struct {
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// XMLSettings contains settings for the generated XML.
type XMLSettings struct {
	// IncludeInvalid keeps records that fail strict validation in the XML.
	// Default: true
	IncludeInvalid *bool `yaml:"include_invalid"`
}

// IncludeInvalidRecords reports whether invalid records are written to XML.
func (x XMLSettings) IncludeInvalidRecords() bool {
	return x.IncludeInvalid == nil || *x.IncludeInvalid
}

// ReportSettings contains settings for the reports.
type ReportSettings struct {
	// Variant selects the report produced by the report command.
	// Valid values: "filter", "json", "valid_invalid"
	// Default: "valid_invalid"
	Variant string `yaml:"variant" validate:"oneof=filter json valid_invalid"`

	// TextFile overrides the text report name of the selected variant.
	TextFile string `yaml:"text_file"`

	// JSONFile overrides the JSON report name of the selected variant.
	JSONFile string `yaml:"json_file"`

	// NoColor renders reports without ANSI escape sequences.
	NoColor bool `yaml:"no_color"`
}

// DomainSettings holds the parameters of the field validators.
type DomainSettings struct {
	AffectedDomains []string `yaml:"affected_domains" validate:"min=1,dive,required"`
	EquipmentTypes  []string `yaml:"equipment_types" validate:"min=1,dive,required"`
	Severities      []string `yaml:"severities" validate:"min=1,dive,required"`
	Frequencies     []string `yaml:"frequencies" validate:"min=1,dive,required"`

	// MinYear and MaxYear bound the detection date, inclusive.
	MinYear int `yaml:"min_year" validate:"gte=1,ltefield=MaxYear"`
	MaxYear int `yaml:"max_year" validate:"lte=9999"`

	// MaxLocationLength is the longest accepted location, in characters.
	MaxLocationLength int `yaml:"max_location_length" validate:"gte=1"`

	Description TextLimits `yaml:"description"`
	Cause       TextLimits `yaml:"cause"`
}

// TextLimits is an inclusive character-count range.
type TextLimits struct {
	Min int `yaml:"min" validate:"gte=1,ltefield=Max"`
	Max int `yaml:"max"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines transformations to apply to a specific field.
type TransformationRule struct {
	// Field is the question to transform, either as its XML tag
	// ("Nom_i_cognoms") or as the original header ("Nom i cognoms").
	Field string `yaml:"field" validate:"required"`

	// Actions is a list of transformations to apply to this field.
	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions" validate:"min=1,dive"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "prepend_string"      : Add Value to the beginning of the answer
	//   - "append_string"       : Add Value to the end of the answer
	//   - "pad_zeros_to_length" : Pad with leading zeros to length Value
	//   - "uppercase"           : Convert to uppercase
	//   - "lowercase"           : Convert to lowercase
	//   - "trim"                : Remove leading and trailing whitespace
	//   - "replace"             : Replace every Find with Value
	//   - "regex_replace"       : Replace matches of pattern Find with Value
	//   - "lookup"              : Replace the answer using LookupTable
	Type string `yaml:"type" validate:"oneof=prepend_string append_string pad_zeros_to_length uppercase lowercase trim replace regex_replace lookup"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value,omitempty"`

	// Find is used for "replace" and "regex_replace" transformations.
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup" transformations.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the built-in configuration.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//   - required:   Whether a missing file is an error. The default file
//                 name is optional; a file named on the command line is not.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", configPath),
			"create the file or omit --config to use the built-in defaults")
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", configPath)
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", configPath)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputFile == "" {
		config.InputFile = "respostes.csv"
	}
	if config.XMLFile == "" {
		config.XMLFile = "Incidencies.xml"
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	config.LogLevel = strings.ToLower(config.LogLevel)

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	config.CSVSettings.Encoding = canonicalEncoding(config.CSVSettings.Encoding)

	// XML defaults.
	if config.XML.IncludeInvalid == nil {
		includeInvalid := true
		config.XML.IncludeInvalid = &includeInvalid
	}

	// Report defaults.
	if config.Report.Variant == "" {
		config.Report.Variant = VariantValidInvalid
	}

	// Validation defaults.
	d := &config.Domains
	if len(d.AffectedDomains) == 0 {
		d.AffectedDomains = append([]string(nil), validation.DefaultAffectedDomains...)
	}
	if len(d.EquipmentTypes) == 0 {
		d.EquipmentTypes = append([]string(nil), validation.DefaultEquipmentTypes...)
	}
	if len(d.Severities) == 0 {
		d.Severities = append([]string(nil), validation.DefaultSeverities...)
	}
	if len(d.Frequencies) == 0 {
		d.Frequencies = append([]string(nil), validation.DefaultFrequencies...)
	}

	rules := validation.DefaultRules()
	if d.MinYear == 0 {
		d.MinYear = rules.MinYear
	}
	if d.MaxYear == 0 {
		d.MaxYear = rules.MaxYear
	}
	if d.MaxLocationLength == 0 {
		d.MaxLocationLength = rules.MaxLocationLength
	}
	if d.Description == (TextLimits{}) {
		d.Description = TextLimits{Min: rules.Description.Min, Max: rules.Description.Max}
	}
	if d.Cause == (TextLimits{}) {
		d.Cause = TextLimits{Min: rules.Cause.Min, Max: rules.Cause.Max}
	}
}

// canonicalEncoding maps common spellings of the supported charsets to the
// names accepted by validation. Unknown names are returned unchanged so the
// validator can report them.
func canonicalEncoding(name string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return "UTF-8"
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return "ISO-8859-1"
	case "windows-1252", "cp1252":
		return "Windows-1252"
	default:
		return name
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration against its struct tags.
//
// Field names in the returned error use the YAML keys, e.g.
// "report.variant" rather than "Report.Variant".
func (c *MainConfig) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "failed to validate configuration")
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}
	return errors.WithHint(
		errors.Newf("%s", strings.Join(messages, "; ")),
		"run 'converter validate' to print the effective configuration")
}

// describe renders one validation failure.
func describe(fe validator.FieldError) string {
	// Namespace is "MainConfig.report.variant"; drop the type name.
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "ltefield":
		return fmt.Sprintf("%s must not be greater than %s", key, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q check (%s)", key, fe.Tag(), fe.Param())
	}
}

// Rules converts the domain settings into the validator's rule set.
func (c *MainConfig) Rules() validation.Rules {
	d := c.Domains
	return validation.Rules{
		AffectedDomains:   validation.NewSet(d.AffectedDomains...),
		EquipmentTypes:    validation.NewSet(d.EquipmentTypes...),
		Severities:        validation.NewSet(d.Severities...),
		Frequencies:       validation.NewSet(d.Frequencies...),
		MinYear:           d.MinYear,
		MaxYear:           d.MaxYear,
		MaxLocationLength: d.MaxLocationLength,
		Description:       validation.TextLimits{Min: d.Description.Min, Max: d.Description.Max},
		Cause:             validation.TextLimits{Min: d.Cause.Min, Max: d.Cause.Max},
	}
}

// =============================================================================
// OVERRIDES
// =============================================================================

// Overrides is a source of flag and environment values keyed by flag name.
// *viper.Viper satisfies it.
type Overrides interface {
	IsSet(key string) bool
	GetString(key string) string
	GetBool(key string) bool
}

// Override keys, named after the command-line flags that feed them.
const (
	KeyInput     = "input"
	KeyXML       = "xml"
	KeyOutputDir = "output-dir"
	KeyVariant   = "variant"
	KeyNoColor   = "no-color"
	KeyLogLevel  = "log-level"
)

// ApplyOverrides copies every set override into the configuration and
// re-validates it.
func (c *MainConfig) ApplyOverrides(o Overrides) error {
	setString := func(key string, dst *string) {
		if o.IsSet(key) {
			if v := o.GetString(key); v != "" {
				*dst = v
			}
		}
	}

	setString(KeyInput, &c.InputFile)
	setString(KeyXML, &c.XMLFile)
	setString(KeyOutputDir, &c.OutputDir)
	setString(KeyVariant, &c.Report.Variant)
	setString(KeyLogLevel, &c.LogLevel)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if o.IsSet(KeyNoColor) {
		c.Report.NoColor = o.GetBool(KeyNoColor)
	}

	return c.Validate()
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// YAML renders the effective configuration.
func (c *MainConfig) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render configuration")
	}
	return out, nil
}
