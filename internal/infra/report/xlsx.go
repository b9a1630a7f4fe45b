// Package report converts downloaded verification reports.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheet = "Report"

// CSVToXLSX rewrites a CSV report as a single-sheet workbook. The first CSV
// row becomes a frozen header row.
func CSVToXLSX(r io.Reader, w io.Writer) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	row := 1
	widths := map[int]int{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv row %d: %w", row, err)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		vals := make([]interface{}, len(rec))
		for i, v := range rec {
			vals[i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
		row++
	}

	if row > 2 {
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, float64(min(wd+2, 60)))
	}
	_, err := f.WriteTo(w)
	return err
}
