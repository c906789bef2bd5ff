package handlers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"p9e.in/geolog/utils"
)

// Spreadsheet-export ingestion. Field teams frequently hand over the same
// report template as an .xlsx sheet: key/value rows for the header, then
// stratum rows leading with the two depths. The workbook is flattened back
// into report lines and fed through the same classifier/parser as raw text,
// so both ingestion paths share one set of semantics.

// FlattenWorkbook converts the first worksheet of an .xlsx report into
// report text lines.
func FlattenWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(flattenRow(row))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// flattenRow renders one worksheet row as a report line:
//   - two cells where the first is non-numeric  -> "Key: Value"
//   - a row leading with two numeric cells      -> stratum range line
//   - anything else                             -> cells joined with spaces
func flattenRow(row []string) string {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		c = strings.TrimSpace(c)
		if c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return ""
	}

	leadNumeric := utils.ParseFloat(cells[0]) != nil
	if !leadNumeric && len(cells) == 2 && !strings.Contains(cells[0], ":") {
		return cells[0] + ": " + cells[1]
	}
	if !leadNumeric && len(cells) == 1 {
		return cells[0]
	}
	return strings.Join(cells, " ")
}
