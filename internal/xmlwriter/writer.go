// =============================================================================
// Incident Form Converter - XML Writer Module
// =============================================================================
//
// This module generates the XML record set from form submissions. Every
// submission becomes one element, and every answer one child element named
// after the sanitized question.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <Registros>                                  <!-- Root element -->
//     <Registro>                                 <!-- One per submission -->
//       <Nom_i_cognoms>Maria Garcia</Nom_i_cognoms>
//       <Adreca_electronica>maria@itb.cat</Adreca_electronica>
//       <Possible_motiu_de_l_incident/>          <!-- Empty answer -->
//     </Registro>
//   </Registros>
//
// Child order follows the source columns. Empty answers are written as
// self-closing elements; an empty record set is a self-closing root.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

// Default element names of the record set.
const (
	DefaultRootElement   = "Registros"
	DefaultRecordElement = "Registro"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration. The writer always
	// produces UTF-8; this only changes the declaration text.
	// Default: "UTF-8"
	Encoding string

	// RootElement is the name of the root element.
	// Default: "Registros"
	RootElement string

	// RecordElement is the name of each record element.
	// Default: "Registro"
	RecordElement string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
		RootElement:           DefaultRootElement,
		RecordElement:         DefaultRecordElement,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from the records with default options.
//
// PARAMETERS:
//   - records: The form submissions, in output order.
//
// RETURNS:
//   - The XML document as a byte slice.
func Generate(records []types.Record) []byte {
	return GenerateWithOptions(records, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML document with custom options.
func GenerateWithOptions(records []types.Record, options GenerateOptions) []byte {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		fmt.Fprintf(&buffer, "<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding)
	}

	writeElement(&buffer, buildDocument(records, options), options.Indent, 0)

	return buffer.Bytes()
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element: either a text value or a
// list of children, never both.
type XMLElement struct {
	Name     string
	Value    string
	Children []XMLElement
}

// buildDocument constructs the root element with one child per record.
func buildDocument(records []types.Record, options GenerateOptions) XMLElement {
	root := XMLElement{Name: options.RootElement}
	for _, record := range records {
		root.Children = append(root.Children, buildRecordElement(record, options))
	}
	return root
}

// buildRecordElement constructs a record element.
//
// Value names are sanitized again so that records built by hand (or read
// from a foreign XML file) still produce well-formed output; sanitizing an
// already sanitized name is a no-op.
func buildRecordElement(record types.Record, options GenerateOptions) XMLElement {
	element := XMLElement{Name: options.RecordElement}
	tags := SanitizeHeaders(record.Names())

	for i, value := range record.Values {
		element.Children = append(element.Children, XMLElement{
			Name:  tags[i],
			Value: value.Text,
		})
	}
	return element
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	writeIndent(buffer, indent, level)

	buffer.WriteString("<")
	buffer.WriteString(element.Name)

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		writeIndent(buffer, indent, level)
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}

func writeIndent(buffer *bytes.Buffer, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}
}

// escapeXML escapes special characters for XML text.
//
// Carriage returns are written as character references so that multi-line
// answers survive the line-ending normalization of conforming XML parsers.
// Characters that XML 1.0 cannot carry are replaced with U+FFFD.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		case '\r':
			buffer.WriteString("&#xD;")
		default:
			if !isXMLChar(r) {
				r = utf8.RuneError
			}
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
