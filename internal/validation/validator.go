// =============================================================================
// Incident Form Converter - Validation Engine
// =============================================================================
//
// This module combines the field rules into a decision about a whole record.
//
// VALIDATION MODES:
//   - strict:   the record is valid only if all eleven fields are valid.
//               Produces a boolean; evaluation may stop at the first failure.
//   - detailed: every field is evaluated, and each failing field contributes
//               one error message. An empty error list means valid.
//
// ERROR HANDLING:
//   - Field failures are data, never Go errors.
//   - A panic while evaluating a field is recovered and counted as a failure
//     of that field, so one bad record cannot abort a run.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects how field results are aggregated.
type Mode string

const (
	// ModeStrict yields only a valid/invalid decision.
	ModeStrict Mode = "strict"

	// ModeDetailed yields a per-field error list.
	ModeDetailed Mode = "detailed"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict:
		return ModeStrict, nil
	case ModeDetailed:
		return ModeDetailed, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// =============================================================================
// OUTCOME
// =============================================================================

// FieldError is a single failed field.
type FieldError struct {
	// Field is the field that failed.
	Field types.Field

	// Message is the human-readable reason. Never empty.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Outcome is the result of validating one record.
type Outcome struct {
	// Mode is the aggregation mode that produced the outcome.
	Mode Mode

	// Errors lists failing fields in form order. Always empty in strict
	// mode; use Valid for the decision.
	Errors []FieldError

	valid bool
}

// Valid reports whether the record passed.
func (o Outcome) Valid() bool {
	return o.valid
}

// Has reports whether field failed.
func (o Outcome) Has(field types.Field) bool {
	_, ok := o.Message(field)
	return ok
}

// Message returns the error message for field, if it failed.
func (o Outcome) Message(field types.Field) (string, bool) {
	for _, e := range o.Errors {
		if e.Field == field {
			return e.Message, true
		}
	}
	return "", false
}

// Fields returns the failing fields in order.
func (o Outcome) Fields() []types.Field {
	fields := make([]types.Field, len(o.Errors))
	for i, e := range o.Errors {
		fields[i] = e.Field
	}
	return fields
}

// =============================================================================
// VALIDATOR
// =============================================================================

// check evaluates one field of a record.
type check struct {
	field types.Field
	run   func(value string) string
}

// Validator applies a Rules value to records.
type Validator struct {
	rules  Rules
	checks []check
}

// New creates a Validator for the given rules.
func New(rules Rules) *Validator {
	v := &Validator{rules: rules}
	v.checks = []check{
		{types.FieldName, ValidateName},
		{types.FieldEmail, ValidateEmail},
		{types.FieldDate, func(s string) string { return ValidateDate(s, rules.MinYear, rules.MaxYear) }},
		{types.FieldTime, ValidateTime},
		{types.FieldLocation, func(s string) string { return ValidateLocation(s, rules.MaxLocationLength) }},
		{types.FieldDomain, func(s string) string { return ValidateChoice(s, rules.AffectedDomains, MsgDomain) }},
		{types.FieldEquipment, func(s string) string { return ValidateChoice(s, rules.EquipmentTypes, MsgEquipment) }},
		{types.FieldSeverity, func(s string) string { return ValidateChoice(s, rules.Severities, MsgSeverity) }},
		{types.FieldDescription, func(s string) string { return ValidateText(s, rules.Description) }},
		{types.FieldCause, func(s string) string { return ValidateText(s, rules.Cause) }},
		{types.FieldFrequency, func(s string) string { return ValidateChoice(s, rules.Frequencies, MsgFrequency) }},
	}
	return v
}

// Rules returns the rule set the validator was built with.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate validates a record in the given mode.
func (v *Validator) Validate(record types.Record, mode Mode) Outcome {
	if mode == ModeDetailed {
		return v.Detailed(record)
	}
	return Outcome{Mode: ModeStrict, valid: v.Strict(record)}
}

// Strict reports whether every field of the record is valid.
func (v *Validator) Strict(record types.Record) bool {
	for _, c := range v.checks {
		if msg := evaluate(c, record); msg != "" {
			return false
		}
	}
	return true
}

// Detailed evaluates every field and collects one error per failing field.
func (v *Validator) Detailed(record types.Record) Outcome {
	outcome := Outcome{Mode: ModeDetailed}
	for _, c := range v.checks {
		if msg := evaluate(c, record); msg != "" {
			outcome.Errors = append(outcome.Errors, FieldError{Field: c.field, Message: msg})
		}
	}
	outcome.valid = len(outcome.Errors) == 0
	return outcome
}

// ValidateField runs the rule of a single known field against value.
// It returns "" for unknown fields.
func (v *Validator) ValidateField(field types.Field, value string) string {
	for _, c := range v.checks {
		if c.field == field {
			return evaluate(c, types.Record{Values: []types.Value{{Name: string(field), Text: value}}})
		}
	}
	return ""
}

// evaluate runs one check, converting a panic into a failure message.
func evaluate(c check, record types.Record) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = MsgUnexpectedFail
		}
	}()
	return c.run(record.Field(c.field))
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary counts outcomes over a record set.
type Summary struct {
	Total   int
	Valid   int
	Invalid int

	// FieldFailures counts failures per field (detailed mode only).
	FieldFailures map[types.Field]int
}

// Add records one outcome in the summary.
func (s *Summary) Add(o Outcome) {
	s.Total++
	if o.Valid() {
		s.Valid++
	} else {
		s.Invalid++
	}
	for _, e := range o.Errors {
		if s.FieldFailures == nil {
			s.FieldFailures = make(map[types.Field]int)
		}
		s.FieldFailures[e.Field]++
	}
}
