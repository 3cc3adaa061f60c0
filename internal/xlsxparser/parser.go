// =============================================================================
// FIV Automation - Workbook Reader
// =============================================================================
//
// This module turns uploaded spreadsheet bytes into the untyped RawGrid model
// (types.Workbook). No header is assumed here; header discovery happens in
// the header package.
//
// SUPPORTED FORMATS:
//   - .xlsx / .xlsm via excelize
//   - .xls (BIFF8) via xlsReader, falling back to excelize when the bytes
//     are really OOXML with a legacy extension
//
// CELL TYPING (xlsx):
//   - shared/inline strings        -> text, even when they look numeric
//                                     (tax codes keep their leading zeros)
//   - numbers with a date format   -> date
//   - other numbers                -> number, raw stored text preserved
//   - booleans                     -> text "TRUE"/"FALSE"
//
// CELL TYPING (xls):
//   - numbers whose XF format is a date -> date
//   - other numeric display strings     -> number
//   - everything else                   -> text
//
// MERGED CELLS:
//   Merged ranges are returned as metadata on the sheet; only the anchor
//   cell holds the value, as in the file itself.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// =============================================================================
// XLSX
// =============================================================================

// Parse reads every worksheet of an xlsx document.
//
// PARAMETERS:
//   - data: The document bytes.
//
// RETURNS:
//   - The workbook with sheets in workbook order.
//   - An error if the bytes are not a readable xlsx document.
func Parse(data []byte) (*types.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	r := &sheetReader{f: f, date1904: date1904, dateStyles: make(map[int]bool)}

	wb := &types.Workbook{}
	for _, name := range f.GetSheetList() {
		sheet, err := r.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("error reading sheet '%s': %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

// sheetReader carries per-file state while reading sheets.
type sheetReader struct {
	f        *excelize.File
	date1904 bool

	// dateStyles caches whether a style ID carries a date number format.
	dateStyles map[int]bool
}

func (r *sheetReader) readSheet(name string) (types.Sheet, error) {
	rows, err := r.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return types.Sheet{}, fmt.Errorf("failed to read rows: %w", err)
	}

	sheet := types.Sheet{Name: name, Rows: make([][]types.Cell, len(rows))}
	for i, row := range rows {
		cells := make([]types.Cell, len(row))
		for j, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := r.readCell(name, i, j, raw)
			if err != nil {
				return types.Sheet{}, err
			}
			cells[j] = cell
		}
		sheet.Rows[i] = cells
	}

	merges, err := r.f.GetMergeCells(name)
	if err != nil {
		return types.Sheet{}, fmt.Errorf("failed to read merged cells: %w", err)
	}
	for _, mc := range merges {
		startCol, startRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		endCol, endRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		sheet.Merges = append(sheet.Merges, types.MergedRange{
			StartRow: startRow - 1,
			StartCol: startCol - 1,
			EndRow:   endRow - 1,
			EndCol:   endCol - 1,
		})
	}

	return sheet, nil
}

func (r *sheetReader) readCell(sheet string, row, col int, raw string) (types.Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return types.Cell{}, err
	}

	cellType, err := r.f.GetCellType(sheet, axis)
	if err != nil {
		return types.Cell{}, fmt.Errorf("failed to read cell type of %s: %w", axis, err)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return types.Text(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return types.Text("TRUE"), nil
		}
		return types.Text("FALSE"), nil
	case excelize.CellTypeDate:
		if t, ok := parseISOCell(raw); ok {
			return types.DateCell(t), nil
		}
		return types.Text(raw), nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return types.Text(raw), nil
	}

	isDate, err := r.isDateStyled(sheet, axis)
	if err != nil {
		return types.Cell{}, err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(serial, r.date1904)
		if err == nil {
			return types.DateCell(t), nil
		}
	}
	return types.Number(raw), nil
}

func (r *sheetReader) isDateStyled(sheet, axis string) (bool, error) {
	styleID, err := r.f.GetCellStyle(sheet, axis)
	if err != nil {
		return false, fmt.Errorf("failed to read style of %s: %w", axis, err)
	}
	if cached, ok := r.dateStyles[styleID]; ok {
		return cached, nil
	}

	isDate := false
	if style, err := r.f.GetStyle(styleID); err == nil && style != nil {
		isDate = IsDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	r.dateStyles[styleID] = isDate
	return isDate, nil
}

// =============================================================================
// XLS
// =============================================================================

// ParseXLS reads every worksheet of a legacy .xls document. Numeric cells
// whose XF record points at a date number format become date cells; other
// cells are typed as number or text from their display string. Bytes that
// turn out to be xlsx are handed to Parse.
func ParseXLS(data []byte) (*types.Workbook, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		if wb, errX := Parse(data); errX == nil {
			return wb, nil
		}
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}

	formats := newXLSFormats(&workbook)

	wb := &types.Workbook{}
	for _, sheet := range workbook.GetSheets() {
		out := types.Sheet{Name: sheet.GetName()}
		for _, row := range sheet.GetRows() {
			var cells []types.Cell
			for _, cell := range row.GetCols() {
				cells = append(cells, xlsCell(cell, formats.isDate))
			}
			out.Rows = append(out.Rows, cells)
		}
		wb.Sheets = append(wb.Sheets, out)
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

// xlsNumericRecords are the BIFF record types that store a floating point
// value a date format can apply to.
var xlsNumericRecords = map[string]bool{
	"*record.Number":  true,
	"*record.Rk":      true,
	"*record.Formula": true,
}

// xlsCell types one BIFF cell. isDate reports whether an XF index carries a
// date number format.
func xlsCell(cell structure.CellData, isDate func(xfIndex int) bool) types.Cell {
	c := textOrNumber(cell.GetString())
	if c.Kind != types.CellNumber || !xlsNumericRecords[cell.GetType()] {
		return c
	}
	if !isDate(cell.GetXFIndex()) {
		return c
	}
	t, err := excelize.ExcelDateToTime(cell.GetFloat64(), false)
	if err != nil {
		return c
	}
	return types.DateCell(t)
}

// xlsFormats resolves XF indexes to number formats, caching the answer.
type xlsFormats struct {
	wb    *xls.Workbook
	cache map[int]bool
}

func newXLSFormats(wb *xls.Workbook) *xlsFormats {
	return &xlsFormats{wb: wb, cache: make(map[int]bool)}
}

func (f *xlsFormats) isDate(xfIndex int) bool {
	if cached, ok := f.cache[xfIndex]; ok {
		return cached
	}
	numFmt, code, ok := f.lookup(xfIndex)
	isDate := ok && IsDateFormat(numFmt, &code)
	f.cache[xfIndex] = isDate
	return isDate
}

// lookup returns the number format ID of an XF record and, for formats
// stored in the file, the format code. A workbook without the default XF
// table makes GetXFbyIndex panic; that reads as "no format".
func (f *xlsFormats) lookup(xfIndex int) (numFmt int, code string, ok bool) {
	defer func() {
		if recover() != nil {
			numFmt, code, ok = 0, "", false
		}
	}()

	xf := f.wb.GetXFbyIndex(xfIndex)
	numFmt = xf.GetFormatIndex()
	format := f.wb.GetFormatByIndex(numFmt)
	return numFmt, format.String(), true
}

func textOrNumber(s string) types.Cell {
	if strings.TrimSpace(s) == "" {
		return types.Cell{}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return types.Number(s)
	}
	return types.Text(s)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// builtinDateFormats are the built-in number format IDs that render a
// calendar date (time-only formats excluded).
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true,
	32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true,
	55: true, 56: true, 57: true, 58: true,
}

// IsDateFormat reports whether a number format renders a calendar date.
// Custom formats count as dates when, outside quoted literals, escapes and
// bracketed sections, they contain a day or year token.
func IsDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		code := strings.ToLower(stripFormatLiterals(*custom))
		if code == "general" {
			return false
		}
		return strings.ContainsAny(code, "dy")
	}
	return builtinDateFormats[numFmt]
}

func stripFormatLiterals(code string) string {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			if r == '"' {
				inQuote = false
			}
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var isoCellLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISOCell(raw string) (time.Time, bool) {
	for _, layout := range isoCellLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
