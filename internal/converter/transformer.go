// =============================================================================
// Incident Form Converter - Transformation Engine
// =============================================================================
//
// This module rewrites form answers before they are written to XML.
//
// TRANSFORMATION TYPES:
//   - String manipulations (prepend, append, trim, case conversion)
//   - Substring and regular expression replacements
//   - Zero padding
//   - Lookup table replacements
//
// RULE MATCHING:
//   A rule names its question either by tag ("Grau_de_gravetat") or by the
//   header as exported ("Grau de gravetat"). Both are sanitized before
//   matching, so either spelling selects the same column.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/xmlwriter"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer handles field value transformations.
type Transformer struct {
	rules []compiledRule
}

type compiledRule struct {
	tag     string
	actions []compiledAction
}

type compiledAction struct {
	config.TransformationAction
	re *regexp.Regexp
}

// NewTransformer creates a new Transformer with the given rules.
//
// RETURNS:
//   - The transformer.
//   - An error if a regex_replace pattern does not compile.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{rules: make([]compiledRule, 0, len(rules))}

	for _, rule := range rules {
		cr := compiledRule{tag: xmlwriter.SanitizeTag(rule.Field)}
		for _, action := range rule.Actions {
			ca := compiledAction{TransformationAction: action}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("invalid regex pattern for field '%s': %w", rule.Field, err)
				}
				ca.re = re
			}
			cr.actions = append(cr.actions, ca)
		}
		t.rules = append(t.rules, cr)
	}

	return t, nil
}

// Len returns the number of rules.
func (t *Transformer) Len() int {
	return len(t.rules)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Transform applies every rule for a tag to a value.
//
// PARAMETERS:
//   - tag: The sanitized tag of the field being transformed.
//   - value: The current value of the field.
//
// RETURNS:
//   - The transformed value.
//   - An error if any transformation fails.
func (t *Transformer) Transform(tag, value string) (string, error) {
	result := value
	for _, rule := range t.rules {
		if rule.tag != tag {
			continue
		}
		for _, action := range rule.actions {
			var err error
			result, err = applyAction(result, action)
			if err != nil {
				return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
			}
		}
	}
	return result, nil
}

// TransformRecord applies all transformations to a record in place.
func (t *Transformer) TransformRecord(record *types.Record) error {
	if len(t.rules) == 0 {
		return nil
	}
	for i := range record.Values {
		v := &record.Values[i]
		transformed, err := t.Transform(v.Name, v.Text)
		if err != nil {
			return fmt.Errorf("error transforming field '%s' of record %d: %w", v.Name, record.RowNumber, err)
		}
		v.Text = transformed
	}
	return nil
}

// ApplyTransformation applies a single transformation action.
//
// PARAMETERS:
//   - value: The current value.
//   - action: The transformation action to apply.
//
// RETURNS:
//   - The transformed value.
//   - An error if the transformation fails.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	ca := compiledAction{TransformationAction: action}
	if action.Type == "regex_replace" && action.Find != "" {
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		ca.re = re
	}
	return applyAction(value, ca)
}

func applyAction(value string, action compiledAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		// EXAMPLE:
		//   Input: "Aula 12"
		//   Action: prepend_string with value "Edifici A - "
		//   Output: "Edifici A - Aula 12"
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		// USE CASE: normalizing email addresses.
		return strings.ToLower(value), nil

	case "replace":
		// EXAMPLE:
		//   Input: "12.03.2024"
		//   Action: replace with find "." and value "/"
		//   Output: "12/03/2024"
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		// EXAMPLE:
		//   Input: "9:05:00"
		//   Action: regex_replace with find "^(\d):" and value "0$1:"
		//   Output: "09:05:00"
		if action.re == nil {
			return value, nil
		}
		return action.re.ReplaceAllString(value, action.Value), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// EXAMPLE:
		//   Input: "7"
		//   Action: pad_zeros_to_length with value "3"
		//   Output: "007"
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 {
			return value, nil
		}
		return PadLeft(value, targetLength, '0'), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// EXAMPLE:
		//   Input: "Baixa"
		//   Action: lookup with lookup_table {"Baixa": "Baixa (no impedeix el treball)"}
		//   Output: "Baixa (no impedeix el treball)"
		//
		// Values missing from the table are kept.
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length, counted in characters.
func PadLeft(s string, length int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
