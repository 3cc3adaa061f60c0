// =============================================================================
// FIV Automation - Settlement Filter
// =============================================================================
//
// The second pipeline. A travel-agency settlement export is reduced to the
// rows that fall inside a checkout-date window and carry positive amounts.
//
// SHEET DISCOVERY:
//   A worksheet is a candidate only if its header row holds all three
//   mandatory columns (checkout date, actual revenue, deducted amount).
//   The filter never picks among several candidates on its own; the caller
//   passes the chosen name.
//
// FILTER:
//   1. Normalize the checkout column to dates.
//   2. Parse both amount columns; blank or "nan" is absent, other
//      non-numeric text is ErrMalformedAmount.
//   3. Keep rows with start <= date <= end and both amounts > 0.
//   4. Drop synthetic "Unnamed" columns.
//
// =============================================================================

package settlement

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/fiv-automation/internal/columns"
	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/header"
	"github.com/ginjaninja78/fiv-automation/internal/money"
	"github.com/ginjaninja78/fiv-automation/internal/types"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxwriter"
)

// Result is the filtered settlement table.
type Result struct {
	// Sheet is the worksheet that was filtered.
	Sheet string

	// Output is ready for xlsxwriter.
	Output xlsxwriter.Sheet

	RowsRead    int
	RowsKept    int
	RowsNoDate  int
	DroppedCols []string
}

// Filter applies the settlement rules.
type Filter struct {
	rules       config.SettlementRules
	placeholder *regexp.Regexp
}

// New compiles the settlement rules.
func New(rules config.SettlementRules) (*Filter, error) {
	re, err := regexp.Compile(rules.PlaceholderPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile placeholder pattern: %w", err)
	}
	return &Filter{rules: rules, placeholder: re}, nil
}

func (f *Filter) mandatory() []string {
	return []string{f.rules.CheckoutColumn, f.rules.RevenueColumn, f.rules.DeductedColumn}
}

// =============================================================================
// SHEET DISCOVERY
// =============================================================================

// Candidates returns, in workbook order, the sheets whose header row holds
// every mandatory column.
func (f *Filter) Candidates(wb *types.Workbook) []string {
	candidates := make([]string, 0)
	for _, sheet := range wb.Sheets {
		have := make(map[string]bool)
		for _, label := range header.Labels(sheet) {
			have[label] = true
		}
		ok := true
		for _, name := range f.mandatory() {
			if !have[columns.Normalize(name)] {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, sheet.Name)
		}
	}
	return candidates
}

// SelectSheet resolves the sheet to filter.
//
// RETURNS:
//   - The named sheet, if it is a candidate.
//   - The only candidate, when name is "".
//   - types.ErrNoValidSheet when there are no candidates or name is not one.
//   - *types.AmbiguousSheetError when name is "" and several sheets qualify.
func (f *Filter) SelectSheet(wb *types.Workbook, name string) (*types.Sheet, error) {
	candidates := f.Candidates(wb)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no worksheet has columns %v", types.ErrNoValidSheet, f.mandatory())
	}

	if name == "" {
		if len(candidates) > 1 {
			return nil, &types.AmbiguousSheetError{Candidates: candidates}
		}
		name = candidates[0]
	}

	for _, c := range candidates {
		if c == name {
			sheet, _ := wb.Sheet(name)
			return sheet, nil
		}
	}
	return nil, fmt.Errorf("%w: worksheet '%s' is not a candidate", types.ErrNoValidSheet, name)
}

// =============================================================================
// FILTERING
// =============================================================================

// Apply filters the chosen sheet of wb to [start, end].
func (f *Filter) Apply(wb *types.Workbook, sheetName string, start, end dates.Date) (*Result, error) {
	if !start.Valid() || !end.Valid() || start.After(end) {
		return nil, fmt.Errorf("%w: start %s, end %s", types.ErrInvalidDateRange, start, end)
	}

	sheet, err := f.SelectSheet(wb, sheetName)
	if err != nil {
		return nil, err
	}

	table, err := header.Single(*sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement header: %w", err)
	}

	checkoutIdx := table.Index(columns.Normalize(f.rules.CheckoutColumn))
	revenueIdx := table.Index(columns.Normalize(f.rules.RevenueColumn))
	deductedIdx := table.Index(columns.Normalize(f.rules.DeductedColumn))

	result := &Result{Sheet: sheet.Name, RowsRead: len(table.Rows)}

	// Columns to keep, with their output types.
	var keep []int
	var outColumns []xlsxwriter.Column
	for i, name := range table.Columns {
		if f.placeholder.MatchString(name) {
			result.DroppedCols = append(result.DroppedCols, name)
			continue
		}
		column := xlsxwriter.Column{Name: name}
		switch i {
		case checkoutIdx:
			column.Type = xlsxwriter.ColumnDate
		case revenueIdx, deductedIdx:
			column.Type = xlsxwriter.ColumnNumber
		}
		keep = append(keep, i)
		outColumns = append(outColumns, column)
	}

	rows := make([][]types.Cell, 0)
	for r := range table.Rows {
		checkout := dates.Normalize(table.Value(r, checkoutIdx))
		if !checkout.Valid() {
			result.RowsNoDate++
		}

		revenue, revenueOK, err := f.amount(table, r, revenueIdx, f.rules.RevenueColumn)
		if err != nil {
			return nil, err
		}
		deducted, deductedOK, err := f.amount(table, r, deductedIdx, f.rules.DeductedColumn)
		if err != nil {
			return nil, err
		}

		if !checkout.Within(start, end) || !revenueOK || !deductedOK || !revenue.IsPositive() || !deducted.IsPositive() {
			continue
		}

		out := make([]types.Cell, len(keep))
		for j, i := range keep {
			switch i {
			case checkoutIdx:
				out[j] = types.DateCell(checkout.Time())
			case revenueIdx:
				out[j] = types.Number(revenue.String())
			case deductedIdx:
				out[j] = types.Number(deducted.String())
			default:
				out[j] = table.Value(r, i)
			}
		}
		rows = append(rows, out)
	}

	result.RowsKept = len(rows)
	result.Output = xlsxwriter.Sheet{Name: f.rules.OutputSheet, Columns: outColumns, Rows: rows}
	return result, nil
}

func (f *Filter) amount(table *types.Table, row, col int, name string) (decimal.Decimal, bool, error) {
	cell := table.Value(row, col)
	d, ok, err := money.Parse(cell)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w (%v)", &types.AmountError{
			Row:    table.SourceRow(row),
			Column: name,
			Value:  cell.String(),
		}, err)
	}
	return d, ok, nil
}
