// =============================================================================
// FIV Automation - XLSX Writer Module
// =============================================================================
//
// This module turns a typed sheet (column list plus Cell rows) into a
// single-sheet workbook. Both pipelines use it: the FIV projection and the
// filtered settlement table.
//
// LAYOUT:
//
//   Row 1      header, bold, one cell per Column in order
//   Row 2..n   data, one row per input row
//
// COLUMN TYPES:
//   - ColumnText    always written as a string (account codes keep zeros)
//   - ColumnNumber  numeric cells become real numbers; other text stays text
//   - ColumnDate    date cells become Excel dates shown as Options.DateFormat
//   - ColumnAuto    follows each cell's own kind
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// =============================================================================
// SHEET MODEL
// =============================================================================

// ColumnType controls how a column's cells are stored.
type ColumnType int

const (
	ColumnAuto ColumnType = iota
	ColumnText
	ColumnNumber
	ColumnDate
)

// Column is one output column.
type Column struct {
	Name string
	Type ColumnType
}

// Sheet is the content of one output worksheet.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]types.Cell
}

// Options contains options for workbook generation.
type Options struct {
	// DateFormat is the Excel number format applied to date cells.
	// Default: "dd/mm/yyyy"
	DateFormat string

	// BoldHeader makes the header row bold.
	// Default: true
	BoldHeader bool
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		DateFormat: "dd/mm/yyyy",
		BoldHeader: true,
	}
}

// =============================================================================
// GENERATION
// =============================================================================

// Write renders the sheet as an .xlsx document using DefaultOptions.
func Write(sheet Sheet) ([]byte, error) {
	return WriteWithOptions(sheet, DefaultOptions())
}

// WriteWithOptions renders the sheet as an .xlsx document.
//
// RETURNS:
//   - The workbook bytes.
//   - An error if the sheet name is invalid or a cell cannot be written.
func WriteWithOptions(sheet Sheet, options Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := sheet.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return nil, fmt.Errorf("failed to name sheet '%s': %w", name, err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &options.DateFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	// Header row.
	for col, column := range sheet.Columns {
		axis, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(name, axis, column.Name); err != nil {
			return nil, fmt.Errorf("failed to write header '%s': %w", column.Name, err)
		}
	}
	if options.BoldHeader && len(sheet.Columns) > 0 {
		headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(sheet.Columns), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	// Data rows.
	for r, row := range sheet.Rows {
		for col, cell := range row {
			axis, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			columnType := ColumnAuto
			if col < len(sheet.Columns) {
				columnType = sheet.Columns[col].Type
			}
			if err := writeCell(f, name, axis, cell, columnType, dateStyle); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", axis, err)
			}
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

// writeCell stores one cell according to its column type. Empty cells are
// left unwritten.
func writeCell(f *excelize.File, sheet, axis string, cell types.Cell, columnType ColumnType, dateStyle int) error {
	if cell.Kind == types.CellEmpty {
		return nil
	}

	switch columnType {
	case ColumnText:
		return f.SetCellStr(sheet, axis, textOf(cell))

	case ColumnNumber:
		if cell.Kind == types.CellNumber {
			if v, err := strconv.ParseFloat(cell.Text, 64); err == nil {
				return f.SetCellFloat(sheet, axis, v, -1, 64)
			}
		}
		return f.SetCellStr(sheet, axis, textOf(cell))

	case ColumnDate:
		if cell.Kind == types.CellDate {
			return writeDate(f, sheet, axis, cell, dateStyle)
		}
		return f.SetCellStr(sheet, axis, textOf(cell))
	}

	switch cell.Kind {
	case types.CellNumber:
		if v, err := strconv.ParseFloat(cell.Text, 64); err == nil {
			return f.SetCellFloat(sheet, axis, v, -1, 64)
		}
	case types.CellDate:
		return writeDate(f, sheet, axis, cell, dateStyle)
	}
	return f.SetCellStr(sheet, axis, cell.Text)
}

func writeDate(f *excelize.File, sheet, axis string, cell types.Cell, dateStyle int) error {
	if err := f.SetCellValue(sheet, axis, cell.Time); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, axis, axis, dateStyle)
}

// textOf renders a cell for a text column. Dates use the day-first display
// layout matching the date number format.
func textOf(cell types.Cell) string {
	if cell.Kind == types.CellDate {
		return cell.Time.Format("02/01/2006")
	}
	return cell.Text
}
