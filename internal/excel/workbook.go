// Package excel reads and writes survey and distribution workbooks in the
// xlsx format used by the program's staff.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names used for exported workbooks.
const (
	SheetOfficialSurveys = "공무원설문"
	SheetElderlySurveys  = "어르신설문"
	SheetDistributions   = "물품반출"
)

const (
	headerFill = "#E6F3FF"
	colWidth   = 16
)

// sheet is one worksheet's worth of output: a header row and data rows whose
// cells are written with excelize's native typing.
type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

// write renders s as a single-sheet workbook with a bold, shaded, frozen
// header row.
func (s sheet) write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	header := make([]any, len(s.headers))
	for i, h := range s.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(s.headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(s.name, "A", lastCol, colWidth); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// readRows returns the rows of the first sheet of the workbook in r.
func readRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return rows, nil
}
