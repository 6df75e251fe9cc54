// =============================================================================
// Incident Form Converter - Shared Types
// =============================================================================
//
// This package contains the record model shared by every stage of the
// pipeline. Types defined here are used by:
//   - csvparser / xlsxparser (records built from spreadsheet rows)
//   - xmlreader / xmlwriter  (records read from / written to XML)
//   - validation             (records checked field by field)
//   - report                 (records rendered as text and JSON)
//
// =============================================================================

package types

import "strings"

// =============================================================================
// FIELD ENUMERATION
// =============================================================================

// Field is the sanitized tag name of one form question.
type Field string

// The eleven questions of the incident form, as sanitized XML tags.
const (
	FieldName        Field = "Nom_i_cognoms"
	FieldEmail       Field = "Adreca_electronica"
	FieldDate        Field = "Data_deteccio_de_la_incidencia"
	FieldTime        Field = "Hora_deteccio_de_la_incidencia"
	FieldLocation    Field = "Ubicacio_equip_afectat"
	FieldDomain      Field = "Quin_ambit_ha_estat_afectat"
	FieldEquipment   Field = "Tipus_d_equip_afectat"
	FieldSeverity    Field = "Grau_de_gravetat"
	FieldDescription Field = "Descripcio_de_la_incidencia"
	FieldCause       Field = "Possible_motiu_de_l_incident"
	FieldFrequency   Field = "Frequencia_en_que_es_produeix_el_problema"
)

// Fields returns the known fields in form order. Validation errors and
// rendered output follow this order.
func Fields() []Field {
	return []Field{
		FieldName,
		FieldEmail,
		FieldDate,
		FieldTime,
		FieldLocation,
		FieldDomain,
		FieldEquipment,
		FieldSeverity,
		FieldDescription,
		FieldCause,
		FieldFrequency,
	}
}

// Label returns the human-readable label: the tag with underscores
// replaced by spaces.
func (f Field) Label() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// =============================================================================
// RECORD
// =============================================================================

// Value is a single named value within a record.
type Value struct {
	// Name is the (sanitized) tag name.
	Name string

	// Text is the raw text. Absent and empty are not distinguished.
	Text string
}

// Record represents one form submission.
// Values keep the order of the source (CSV columns or XML children).
// Duplicate names are allowed; lookups return the first occurrence.
type Record struct {
	// Values contains the record's named values in source order.
	Values []Value

	// RowNumber is the 1-indexed position of the record in its source
	// (data row for spreadsheets, Registro element for XML).
	RowNumber int
}

// Get returns the text of the first value named name, or "" when absent.
func (r Record) Get(name string) string {
	text, _ := r.Lookup(name)
	return text
}

// Lookup returns the text of the first value named name and whether it exists.
func (r Record) Lookup(name string) (string, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v.Text, true
		}
	}
	return "", false
}

// Field returns the text of a known field, or "" when absent.
func (r Record) Field(f Field) string {
	return r.Get(string(f))
}

// Set replaces the first value named name, or appends it when absent.
func (r *Record) Set(name, text string) {
	for i := range r.Values {
		if r.Values[i].Name == name {
			r.Values[i].Text = text
			return
		}
	}
	r.Values = append(r.Values, Value{Name: name, Text: text})
}

// Names returns the value names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Values))
	for i, v := range r.Values {
		names[i] = v.Name
	}
	return names
}

// =============================================================================
// TABLE
// =============================================================================

// Table is a header row plus data rows, as read from a spreadsheet export.
type Table struct {
	// Headers are the raw column headers, as found in the source.
	Headers []string

	// Rows are the data rows. Rows may be shorter or longer than Headers.
	Rows [][]string

	// RowNumbers holds, for each row, its 1-indexed position among the
	// source's data rows (skipped rows of empty cells still count).
	RowNumbers []int

	// SourceFile is the path the table was read from.
	SourceFile string
}

// Records converts the rows into records whose value names are names
// (one per header, typically the sanitized headers). Missing cells read
// as ""; cells beyond the last header are dropped.
func (t Table) Records(names []string) []Record {
	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		record := Record{Values: make([]Value, len(names))}
		if i < len(t.RowNumbers) {
			record.RowNumber = t.RowNumbers[i]
		} else {
			record.RowNumber = i + 1
		}
		for col, name := range names {
			record.Values[col].Name = name
			if col < len(row) {
				record.Values[col].Text = row[col]
			}
		}
		records = append(records, record)
	}
	return records
}
