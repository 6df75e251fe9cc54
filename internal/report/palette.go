package report

import "github.com/ginjaninja78/incident-form-converter/internal/types"

// SGR parameters of the report colors.
const (
	colorBorder     = "1;33" // bold yellow
	colorValidTitle = "1;32" // bold green
	colorInvalid    = "1;31" // bold red
	colorError      = "31"   // red
	colorReset      = "0"
)

// fieldColors gives every form field its own color so that long listings
// can be scanned by eye.
var fieldColors = map[types.Field]string{
	types.FieldName:        "1;34", // bold blue
	types.FieldEmail:       "1;35", // bold magenta
	types.FieldDate:        "1;36", // bold cyan
	types.FieldTime:        "36",   // cyan
	types.FieldLocation:    "33",   // yellow
	types.FieldDomain:      "32",   // green
	types.FieldEquipment:   "92",   // bright green
	types.FieldSeverity:    "31",   // red
	types.FieldDescription: "94",   // bright blue
	types.FieldCause:       "95",   // bright magenta
	types.FieldFrequency:   "93",   // bright yellow
}

// FieldColor returns the SGR parameter used for a field, or "0" for a
// field outside the form.
func FieldColor(f types.Field) string {
	if c, ok := fieldColors[f]; ok {
		return c
	}
	return colorReset
}

// sgr returns the escape sequence selecting an SGR parameter.
func sgr(code string) string {
	return "\033[" + code + "m"
}
