// =============================================================================
// FIV Automation - Shared Types
// =============================================================================
//
// This package contains the data model shared by the readers, the FIV
// pipeline and the settlement pipeline. Keeping it here avoids import cycles
// between:
//   - xlsxparser / csvparser (producers of Workbook)
//   - header, cleaner, resolver, projector (FIV pipeline stages)
//   - settlement (second pipeline)
//   - xlsxwriter (consumer of Cells)
//
// TWO-STAGE MODEL:
//   Stage 1 is untyped: a Workbook of Sheets, each an ordered grid of Cells
//   with no header assumed.
//   Stage 2 is typed: SourceRecord, whose optional fields are explicit
//   Optional values rather than empty cells.
//
// =============================================================================

package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CELLS
// =============================================================================

// CellKind classifies a cell read from a source document.
type CellKind int

const (
	// CellEmpty is a cell with no stored value.
	CellEmpty CellKind = iota

	// CellText is a string cell.
	CellText

	// CellNumber is a numeric cell. Text holds the stored value verbatim
	// (e.g. "1500000" or "0.1") so amounts can be parsed without float loss.
	CellNumber

	// CellDate is a numeric cell carrying a date number format, already
	// converted to a time.Time.
	CellDate
)

// Cell is one untyped value of a RawGrid.
type Cell struct {
	Kind CellKind
	Text string
	Time time.Time
}

// Text returns a text cell, or an empty cell for "".
func Text(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// Number returns a numeric cell holding the raw stored value.
func Number(raw string) Cell {
	return Cell{Kind: CellNumber, Text: raw}
}

// DateCell returns a date cell.
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Text: t.Format("2006-01-02"), Time: t}
}

// String returns the textual representation used for header matching.
func (c Cell) String() string {
	return c.Text
}

// IsBlank reports whether the cell is empty or whitespace-only text.
func (c Cell) IsBlank() bool {
	return c.Kind == CellEmpty || strings.TrimSpace(c.Text) == ""
}

// IsRowEmpty reports whether a row contains only blank cells.
func IsRowEmpty(row []Cell) bool {
	for _, cell := range row {
		if !cell.IsBlank() {
			return false
		}
	}
	return true
}

// =============================================================================
// RAW GRID
// =============================================================================

// MergedRange is a merged cell block, 0-based and inclusive on both ends.
type MergedRange struct {
	StartRow, StartCol int
	EndRow, EndCol     int
}

// Contains reports whether (row, col) falls inside the range.
func (m MergedRange) Contains(row, col int) bool {
	return row >= m.StartRow && row <= m.EndRow && col >= m.StartCol && col <= m.EndCol
}

// Sheet is a RawGrid: an ordered sequence of rows with no header assumed.
type Sheet struct {
	Name string

	// Rows holds the grid. Rows may be ragged; a missing trailing cell is
	// equivalent to an empty one.
	Rows [][]Cell

	// Merges lists merged ranges in grid coordinates.
	Merges []MergedRange

	// RowNumbers maps a grid row index to the 1-based row number in the
	// source document. Nil means identity (index + 1).
	RowNumbers []int
}

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Width returns the widest row length.
func (s *Sheet) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// SourceRow returns the 1-based document row number of grid row i.
func (s *Sheet) SourceRow(i int) int {
	if s.RowNumbers == nil || i < 0 || i >= len(s.RowNumbers) {
		return i + 1
	}
	return s.RowNumbers[i]
}

// DropRows returns a copy of the sheet without the rows for which drop
// returns true. Merged ranges anchored on a dropped row are discarded; the
// rest are shifted so they stay aligned with the remaining rows.
func (s *Sheet) DropRows(drop func(row []Cell) bool) Sheet {
	out := Sheet{Name: s.Name}
	newIndex := make([]int, len(s.Rows))
	for i, row := range s.Rows {
		if drop(row) {
			newIndex[i] = -1
			continue
		}
		newIndex[i] = len(out.Rows)
		out.Rows = append(out.Rows, row)
		out.RowNumbers = append(out.RowNumbers, s.SourceRow(i))
	}

	for _, m := range s.Merges {
		if m.StartRow >= len(newIndex) || newIndex[m.StartRow] < 0 {
			continue
		}
		shift := m.StartRow - newIndex[m.StartRow]
		out.Merges = append(out.Merges, MergedRange{
			StartRow: m.StartRow - shift,
			StartCol: m.StartCol,
			EndRow:   m.EndRow - shift,
			EndCol:   m.EndCol,
		})
	}
	return out
}

// Workbook is an uploaded document: one or more sheets in workbook order.
type Workbook struct {
	Sheets []Sheet
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// =============================================================================
// FLATTENED TABLE
// =============================================================================

// Table is a FlattenedTable: uniquely named columns over row-aligned cells.
type Table struct {
	Columns []string
	Rows    [][]Cell

	// SourceRows holds the 1-based document row of each entry in Rows.
	SourceRows []int
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, col), or an empty cell when out of range.
func (t *Table) Value(row, col int) Cell {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}

// Rename renames the column at index i.
func (t *Table) Rename(i int, name string) {
	t.Columns[i] = name
}

// SourceRow returns the 1-based document row of data row i.
func (t *Table) SourceRow(i int) int {
	if i < 0 || i >= len(t.SourceRows) {
		return i + 1
	}
	return t.SourceRows[i]
}

// =============================================================================
// TYPED RECORDS
// =============================================================================

// Optional is an explicitly optional value.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OrElse returns the value when present, else def.
func (o Optional[T]) OrElse(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}

// SourceRecord is one cleaned invoice row. BuyerName and RevenueExVAT are
// always present; IssueDate stays a raw cell until projection normalizes it.
type SourceRecord struct {
	BuyerName     string
	RevenueExVAT  decimal.Decimal
	IssueDate     Cell
	VATAmount     Optional[decimal.Decimal]
	InvoiceSerial Optional[string]
	InvoiceNumber Optional[string]
	TaxCode       Optional[string]

	// SourceRow is the 1-based row in the invoice document.
	SourceRow int
}
