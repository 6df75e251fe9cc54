// =============================================================================
// Incident Form Converter - CSV Parser Module
// =============================================================================
//
// This module is responsible for parsing the CSV export of the incident form.
// The first row holds the questions; every following row is one submission.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, tab, pipe, ...)
//   - Charset decoding: UTF-8 (a leading BOM is stripped), ISO-8859-1 and
//     Windows-1252, via golang.org/x/text
//   - Quoted fields with embedded delimiters and line breaks
//   - Rows shorter than the header are padded with empty answers
//   - Blank rows are skipped
//
// Answers are kept byte-for-byte unless trim_values is enabled: whitespace
// inside an answer is significant to the validators.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its header and data rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the configuration.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or parsed.
//
// PARSING PROCESS:
//   1. Open the file and wrap it in the charset decoder
//   2. Configure the CSV reader with the delimiter
//   3. Read the header row
//   4. Read data rows, skipping blank ones
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader parses CSV data from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	configureReader(csvReader, settings)

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	table := &types.Table{Headers: headers}

	dataRow := 0
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		dataRow++

		if isRowEmpty(row) {
			continue
		}

		if settings.TrimValues {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}

		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, dataRow)
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = delimiterRune(settings.Delimiter)

	// Allow variable number of fields per row; short rows are padded when
	// records are built.
	reader.FieldsPerRecord = -1

	// Form exports occasionally contain stray quotes inside free text.
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = settings.TrimValues

	// Each row gets its own slice; rows are retained in the table.
	reader.ReuseRecord = false
}

// delimiterRune resolves the configured delimiter.
func delimiterRune(delimiter string) rune {
	switch delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		r, _ := utf8.DecodeRuneInString(delimiter)
		return r
	}
}

// decoderFor returns the decoder of a configured charset name.
//
// UTF-8 input may start with a byte order mark (spreadsheet tools add one
// when exporting); it is removed so that it does not end up in the first
// header.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToUpper(name) {
	case "", "UTF-8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "ISO-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "WINDOWS-1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
