// =============================================================================
// Incident Form Converter - Reports
// =============================================================================
//
// This module turns a record set into the report files of one variant.
//
// VARIANTS:
//
//   | Variant       | Mode     | Records    | Text file                      | JSON file                     | Screen  |
//   |---------------|----------|------------|--------------------------------|-------------------------------|---------|
//   | filter        | strict   | valid only | incidencies_filtrat.txt        | -                             | -       |
//   | json          | strict   | valid only | -                              | incidencies_filtrat.json      | listing |
//   | valid_invalid | detailed | all        | incidencies_filtrat_valid_...  | incidencies_valid_invalid.json| -       |
//
// Generation is pure: the same records always give byte-identical output.
// Writing the files is left to the caller.
//
// =============================================================================

package report

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/validation"
)

// Variant describes which records a report includes and where it goes.
type Variant struct {
	// Name is the configuration name of the variant.
	Name string

	// Mode is the validation mode applied to every record.
	Mode validation.Mode

	// TextFile is the text report name; empty means no text report.
	TextFile string

	// JSONFile is the JSON report name; empty means no JSON report.
	JSONFile string

	// Screen prints the valid records to the terminal.
	Screen bool
}

// IncludesInvalid reports whether invalid records appear in the output.
func (v Variant) IncludesInvalid() bool {
	return v.Mode == validation.ModeDetailed
}

var variants = map[string]Variant{
	"filter": {
		Name:     "filter",
		Mode:     validation.ModeStrict,
		TextFile: "incidencies_filtrat.txt",
	},
	"json": {
		Name:     "json",
		Mode:     validation.ModeStrict,
		JSONFile: "incidencies_filtrat.json",
		Screen:   true,
	},
	"valid_invalid": {
		Name:     "valid_invalid",
		Mode:     validation.ModeDetailed,
		TextFile: "incidencies_filtrat_valid_invalid.txt",
		JSONFile: "incidencies_valid_invalid.json",
	},
}

// LookupVariant returns the preset of a variant name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("unknown report variant %q (expected filter, json or valid_invalid)", name)
	}
	return v, nil
}

// WithFileNames overrides the output names of the files the variant
// produces. Empty names keep the preset; a variant never gains a file it
// does not produce.
func (v Variant) WithFileNames(textFile, jsonFile string) Variant {
	if textFile != "" && v.TextFile != "" {
		v.TextFile = textFile
	}
	if jsonFile != "" && v.JSONFile != "" {
		v.JSONFile = jsonFile
	}
	return v
}

// Output is the rendered report of one variant.
type Output struct {
	// Text is the text report; nil when the variant has none.
	Text []byte

	// JSON is the JSON report; nil when the variant has none.
	JSON []byte

	// Screen is the on-screen listing; nil when the variant has none.
	Screen []byte

	// Summary counts the validated records.
	Summary validation.Summary

	// Written is the number of records included in the reports.
	Written int
}

// Generate validates records and renders the reports of variant.
//
// PARAMETERS:
//   - records:   The records, in document order.
//   - validator: The validator to apply.
//   - variant:   The report variant.
//   - color:     Whether to emit ANSI colors.
//
// RETURNS:
//   - The rendered output.
//   - An error if the JSON document cannot be encoded.
func Generate(records []types.Record, validator *validation.Validator, variant Variant, color bool) (*Output, error) {
	fileRenderer := NewRenderer(WithStyle(StyleFile), WithColor(color))
	screenRenderer := NewRenderer(WithStyle(StyleTerminal), WithColor(color))

	var text, screen strings.Builder
	entries := make([]Entry, 0, len(records))
	out := &Output{}

	for _, record := range records {
		outcome := validator.Validate(record, variant.Mode)
		out.Summary.Add(outcome)

		if !outcome.Valid() && !variant.IncludesInvalid() {
			continue
		}
		out.Written++

		if variant.TextFile != "" {
			text.WriteString(fileRenderer.Block(record, outcome))
		}
		if variant.Screen {
			screen.WriteString(screenRenderer.Block(record, outcome))
		}
		if variant.JSONFile != "" {
			entries = append(entries, NewEntry(record, outcome))
		}
	}

	if variant.TextFile != "" {
		out.Text = []byte(text.String())
	}
	if variant.Screen {
		out.Screen = []byte(screen.String())
	}
	if variant.JSONFile != "" {
		doc, err := EncodeDocument(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON report: %w", err)
		}
		out.JSON = doc
	}

	return out, nil
}
