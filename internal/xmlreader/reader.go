// =============================================================================
// Incident Form Converter - XML Reader Module
// =============================================================================
//
// This module loads a record set written by the XML writer (or by any tool
// producing the same shape) back into records:
//
//   <Registros>
//     <Registro>
//       <Tag>text</Tag>
//       ...
//     </Registro>
//   </Registros>
//
// Only direct children of the root named "Registro" are records. Each of
// their child elements becomes one value, in document order. Text of nested
// elements below a value is ignored.
//
// =============================================================================

package xmlreader

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

// Document is a parsed record set.
type Document struct {
	// Root is the name of the root element.
	Root string

	// Records holds one record per Registro element, in document order.
	Records []types.Record

	// SourceFile is the path the document was read from, if any.
	SourceFile string
}

type documentElement struct {
	XMLName xml.Name
	Records []recordElement `xml:"Registro"`
}

type recordElement struct {
	Values []valueElement `xml:",any"`
}

type valueElement struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// ReadFile parses the XML record set at filePath.
//
// PARAMETERS:
//   - filePath: The path to the XML file.
//
// RETURNS:
//   - The parsed document.
//   - An error if the file cannot be opened or is not well-formed.
func ReadFile(filePath string) (*Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	doc, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, err
	}
	doc.SourceFile = filePath
	return doc, nil
}

// Read parses an XML record set from r. Comments and processing
// instructions may follow the root element; anything else is an error.
func Read(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var root documentElement
	if err := decoder.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("failed to parse XML: document is empty")
		}
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	if err := checkTrailing(decoder); err != nil {
		return nil, err
	}

	doc := &Document{
		Root:    root.XMLName.Local,
		Records: make([]types.Record, 0, len(root.Records)),
	}

	for i, element := range root.Records {
		record := types.Record{
			Values:    make([]types.Value, 0, len(element.Values)),
			RowNumber: i + 1,
		}
		for _, v := range element.Values {
			record.Values = append(record.Values, types.Value{
				Name: v.XMLName.Local,
				Text: v.Text,
			})
		}
		doc.Records = append(doc.Records, record)
	}

	return doc, nil
}

// checkTrailing consumes the tokens after the root element.
func checkTrailing(decoder *xml.Decoder) error {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("failed to parse XML: junk after document element: <%s>", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("failed to parse XML: junk after document element: %q", string(bytes.TrimSpace(t)))
			}
		}
	}
}
