package xmlwriter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonWordRun matches each run of characters that cannot appear in a tag.
var nonWordRun = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// SanitizeTag converts a spreadsheet header into an XML element name.
//
// STEPS:
//  1. Trim surrounding whitespace.
//  2. NFD-decompose and drop nonspacing marks ("Adreça" -> "Adreca").
//  3. Replace every run of non letter/digit/underscore characters with "_".
//  4. Prefix "_" when the result starts with a digit.
//
// The result may be empty; SanitizeHeaders substitutes a positional name in
// that case. SanitizeTag(SanitizeTag(s)) == SanitizeTag(s).
func SanitizeTag(name string) string {
	name = strings.TrimSpace(name)

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), name)
	if err == nil {
		name = stripped
	}

	name = nonWordRun.ReplaceAllString(name, "_")

	if r, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(r) {
		name = "_" + name
	}
	return name
}

// SanitizeHeaders sanitizes a header row. A header that sanitizes to the
// empty string becomes Column_<n>, n being its 1-indexed position.
func SanitizeHeaders(headers []string) []string {
	tags := make([]string, len(headers))
	for i, h := range headers {
		tag := SanitizeTag(h)
		if tag == "" {
			tag = fmt.Sprintf("Column_%d", i+1)
		}
		tags[i] = tag
	}
	return tags
}
