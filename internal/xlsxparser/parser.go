// =============================================================================
// Incident Form Converter - XLSX Parser Module
// =============================================================================
//
// This module reads the XLSX export of the incident form. Form tools offer
// the responses as a spreadsheet as well as a CSV; both produce the same
// table shape:
//
//   | Marca de temps     | Nom i cognoms | Adreça electrònica | ... |
//   |--------------------|---------------|--------------------|-----|
//   | 15/10/2024 9:30:00 | Maria Garcia  | maria@itb.cat      | ... |
//
// The first row of the sheet is the header. Cell values are read as
// displayed (number formats applied), so dates keep their dd/mm/yyyy text.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

// Parse reads a worksheet of an XLSX file.
//
// PARAMETERS:
//   - filePath:   The path to the XLSX file.
//   - settings:   The XLSX settings; an empty Sheet selects the first sheet.
//   - trimValues: Whether to trim surrounding whitespace from answers.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file or sheet cannot be read.
func Parse(filePath string, settings config.XLSXSettings, trimValues bool) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %s)",
			sheetName, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	if len(rows) == 0 || isRowEmpty(rows[0]) {
		return nil, fmt.Errorf("sheet %q is empty: no header row", sheetName)
	}

	table := &types.Table{
		Headers:    rows[0],
		SourceFile: filePath,
	}

	for i, row := range rows[1:] {
		// Skip empty rows.
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		if trimValues {
			for j := range row {
				row[j] = strings.TrimSpace(row[j])
			}
		}

		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, i+1)
	}

	return table, nil
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
