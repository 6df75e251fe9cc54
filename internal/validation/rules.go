// =============================================================================
// Incident Form Converter - Field Rules
// =============================================================================
//
// This file contains one predicate per form question. Every predicate takes
// the raw text of the field and returns:
//   - ""            when the value is valid
//   - a message     describing why the value is invalid
//
// Messages are written in Catalan because they are copied verbatim into the
// text and JSON reports read by the people filling in the form.
//
// ENUMERATED DOMAINS:
//   The closed sets of accepted answers (affected domain, equipment type,
//   severity, frequency) live in a Rules value rather than in package state,
//   so a configuration file can replace them.
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// MESSAGES
// =============================================================================

const (
	MsgNameTokens     = "Nom invàlid: calen mínim nom i cognoms."
	MsgNameEmail      = "Nom invàlid: sembla un correu."
	MsgNameDigits     = "Nom invàlid: no pot ser només números."
	MsgNameShort      = "Nom invàlid: massa curt."
	MsgEmail          = "Email invàlid."
	MsgDateFormat     = "Format de data incorrecte (dd/mm/yyyy)."
	MsgTime           = "Hora invàlida (hh:mm:ss)."
	MsgDomain         = "Àmbit no vàlid."
	MsgEquipment      = "Tipus d'equip no vàlid."
	MsgSeverity       = "Grau de gravetat no vàlid."
	MsgFrequency      = "Freqüència no vàlida."
	MsgTextEmpty      = "El camp és buit."
	MsgUnexpectedFail = "Error inesperat en validar el camp."
)

// =============================================================================
// PATTERNS
// =============================================================================

var (
	// emailLikePattern matches anything shaped like user@host.tld anywhere
	// after the start of the string; used to reject emails typed as names.
	emailLikePattern = regexp.MustCompile(`^.+@.+\..+`)

	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	timePattern = regexp.MustCompile(`^(?:[01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$`)
)

// dateLayout is dd/mm/yyyy. time.Parse requires exactly two digits for
// "02" and "01" and four for "2006", and rejects impossible days.
const dateLayout = "02/01/2006"

// =============================================================================
// RULE SET
// =============================================================================

// Set is a closed set of accepted answers. Membership is exact string
// equality: no trimming, no case folding, no Unicode normalization.
type Set map[string]struct{}

// NewSet builds a Set from its members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Contains reports whether value is a member of the set.
func (s Set) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

// TextLimits is an inclusive length range, in characters.
type TextLimits struct {
	Min int
	Max int
}

// Rules holds every parameter of the field predicates.
type Rules struct {
	// AffectedDomains are the accepted answers for "Quin àmbit ha estat afectat".
	AffectedDomains Set

	// EquipmentTypes are the accepted answers for "Tipus d'equip afectat".
	EquipmentTypes Set

	// Severities are the accepted answers for "Grau de gravetat".
	Severities Set

	// Frequencies are the accepted answers for "Freqüència".
	Frequencies Set

	// MinYear and MaxYear bound the detection date, inclusive.
	MinYear int
	MaxYear int

	// MaxLocationLength is the longest accepted location, in characters.
	MaxLocationLength int

	// Description and Cause are the free-text length ranges.
	Description TextLimits
	Cause       TextLimits
}

// Default answer sets of the incident form.
var (
	DefaultAffectedDomains = []string{
		"Equipament Informatic",
		"Equipament audiovisual",
		"Xarxa",
	}

	DefaultEquipmentTypes = []string{
		"Ordinador d'escriptori",
		"Projector",
		"Impressora",
		"Xarxa",
		"Sistema de so",
		"Portàtil",
		"Altaveus",
		"Pantalla interactiva",
	}

	DefaultSeverities = []string{
		"Baixa (no impedeix el treball)",
		"Mitjana (dificulta parcialment el treball)",
		"Alta (impossibilita el treball)",
	}

	// The last answer is typed with U+2019 (right single quotation mark),
	// exactly as the form tool exports it. A straight apostrophe does not match.
	DefaultFrequencies = []string{
		"Només ha passat una vegada",
		"Passa sovint (intermitent)",
		"Sempre que s\u2019utilitza l\u2019equip",
	}
)

// DefaultRules returns the rule set of the incident form.
func DefaultRules() Rules {
	return Rules{
		AffectedDomains:   NewSet(DefaultAffectedDomains...),
		EquipmentTypes:    NewSet(DefaultEquipmentTypes...),
		Severities:        NewSet(DefaultSeverities...),
		Frequencies:       NewSet(DefaultFrequencies...),
		MinYear:           2000,
		MaxYear:           2025,
		MaxLocationLength: 50,
		Description:       TextLimits{Min: 5, Max: 300},
		Cause:             TextLimits{Min: 3, Max: 200},
	}
}

// =============================================================================
// FIELD PREDICATES
// =============================================================================

// ValidateName checks the "Nom i cognoms" answer.
//
// RULES (checked in order, first failure wins):
//   - at least two whitespace-separated tokens
//   - must not look like an email address
//   - must not consist only of digits (whitespace ignored)
//   - at least three characters
func ValidateName(name string) string {
	if name == "" || len(strings.Fields(name)) < 2 {
		return MsgNameTokens
	}
	if emailLikePattern.MatchString(name) {
		return MsgNameEmail
	}
	if onlyDigits(name) {
		return MsgNameDigits
	}
	if utf8.RuneCountInString(name) < 3 {
		return MsgNameShort
	}
	return ""
}

// onlyDigits reports whether s has at least one ASCII digit and nothing
// else apart from Unicode whitespace.
func onlyDigits(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return digits > 0
}

// ValidateEmail checks that the whole value is local@domain.tld, with a
// TLD of at least two letters.
func ValidateEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return MsgEmail
	}
	return ""
}

// ValidateDate checks a dd/mm/yyyy calendar date within [minYear, maxYear].
func ValidateDate(date string, minYear, maxYear int) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return MsgDateFormat
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return fmt.Sprintf("Data fora de rang permès (%d-%d).", minYear, maxYear)
	}
	return ""
}

// ValidateTime checks a 24-hour HH:MM:SS time.
func ValidateTime(value string) string {
	if !timePattern.MatchString(value) {
		return MsgTime
	}
	return ""
}

// ValidateLocation checks that the location is present and at most
// maxLength characters.
func ValidateLocation(location string, maxLength int) string {
	if location == "" || utf8.RuneCountInString(location) > maxLength {
		return fmt.Sprintf("Ubicació invàlida o massa llarga (max %d).", maxLength)
	}
	return ""
}

// ValidateChoice checks membership of value in set, returning message
// on failure.
func ValidateChoice(value string, set Set, message string) string {
	if !set.Contains(value) {
		return message
	}
	return ""
}

// ValidateText checks that a free-text answer is present and its length
// lies within limits.
func ValidateText(text string, limits TextLimits) string {
	if text == "" {
		return MsgTextEmpty
	}
	n := utf8.RuneCountInString(text)
	if n < limits.Min || n > limits.Max {
		return fmt.Sprintf("Text fora de límits (%d-%d caràcters).", limits.Min, limits.Max)
	}
	return ""
}
