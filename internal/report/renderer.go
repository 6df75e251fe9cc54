// =============================================================================
// Incident Form Converter - Record Renderer
// =============================================================================
//
// This module renders one record as a colored text block.
//
// VALID BLOCK:
//
//   ==============================            (bold yellow)
//      REGISTRE D'INCIDÈNCIA VÀLID            (bold green)
//   ==============================            (bold yellow)
//   Nom i cognoms: Maria Garcia               (field color)
//   ...                                       (one line per form field)
//   <blank line>
//
// INVALID BLOCK (detailed validation only):
//
//   ==============================            (bold red)
//      REGISTRE D'INCIDÈNCIA INVÀLID          (bold red)
//   ==============================            (bold red)
//   Errors trobats:                           (bold red)
//    - Adreca electronica: Email invàlid.     (red, one line per error)
//   <blank line>
//
// LINE STYLES:
//   - StyleFile:     ESC[<c>m<text>\nESC[0m   (text reports)
//   - StyleTerminal: ESC[<c>m<text>ESC[0m\n   (on-screen listing)
//
// =============================================================================

package report

import (
	"strings"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/validation"
)

// Block text.
const (
	Border       = "=============================="
	TitleValid   = "   REGISTRE D'INCIDÈNCIA VÀLID"
	TitleInvalid = "   REGISTRE D'INCIDÈNCIA INVÀLID"
	ErrorsHeader = "Errors trobats:"
)

// Style selects where the line break goes relative to the color reset.
type Style int

const (
	// StyleFile puts the line break inside the colored span.
	StyleFile Style = iota

	// StyleTerminal puts the line break after the color reset.
	StyleTerminal
)

// Renderer renders records as text blocks.
type Renderer struct {
	style Style
	color bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle sets the line style.
func WithStyle(s Style) Option {
	return func(r *Renderer) { r.style = s }
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) Option {
	return func(r *Renderer) { r.color = enabled }
}

// NewRenderer returns a renderer; by default it writes colored
// StyleFile lines.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{style: StyleFile, color: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// line writes one colored line.
func (r *Renderer) line(b *strings.Builder, code, text string) {
	if !r.color {
		b.WriteString(text)
		b.WriteByte('\n')
		return
	}

	b.WriteString(sgr(code))
	b.WriteString(text)
	if r.style == StyleFile {
		b.WriteByte('\n')
		b.WriteString(sgr(colorReset))
	} else {
		b.WriteString(sgr(colorReset))
		b.WriteByte('\n')
	}
}

// Valid renders the block of a valid record. Every form field is listed;
// a field missing from the record is shown empty.
func (r *Renderer) Valid(record types.Record) string {
	var b strings.Builder

	r.line(&b, colorBorder, Border)
	r.line(&b, colorValidTitle, TitleValid)
	r.line(&b, colorBorder, Border)

	for _, f := range types.Fields() {
		r.line(&b, FieldColor(f), f.Label()+": "+record.Field(f))
	}
	b.WriteByte('\n')

	return b.String()
}

// Invalid renders the block of an invalid record from its detailed
// outcome.
func (r *Renderer) Invalid(outcome validation.Outcome) string {
	var b strings.Builder

	r.line(&b, colorInvalid, Border)
	r.line(&b, colorInvalid, TitleInvalid)
	r.line(&b, colorInvalid, Border)
	r.line(&b, colorInvalid, ErrorsHeader)

	for _, e := range outcome.Errors {
		r.line(&b, colorError, " - "+e.Field.Label()+": "+e.Message)
	}
	b.WriteByte('\n')

	return b.String()
}

// Block renders a record according to its outcome.
func (r *Renderer) Block(record types.Record, outcome validation.Outcome) string {
	if outcome.Valid() {
		return r.Valid(record)
	}
	return r.Invalid(outcome)
}
