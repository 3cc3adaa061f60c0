// =============================================================================
// FIV Automation - Record Cleaner
// =============================================================================
//
// The cleaner is the boundary between the untyped FlattenedTable and typed
// SourceRecords.
//
// STEPS:
//   1. Rename known source labels to canonical names (rename rule table).
//   2. Discover the tax-identifier column: the first remaining column whose
//      label contains one of the aliases becomes TaxCode.
//   3. Drop rows missing BuyerName or RevenueExVAT (blank counts as missing).
//   4. Convert surviving rows to SourceRecords, keeping input order.
//
// =============================================================================

package cleaner

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/fiv-automation/internal/columns"
	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/money"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// Canonical field names produced by the default rename map.
const (
	FieldBuyerName     = "Buyer Name"
	FieldIssueDate     = "ISSUE_DATE"
	FieldRevenueExVAT  = "Revenue_ex_VAT"
	FieldVATAmount     = "VAT_Amount"
	FieldInvoiceSerial = "InvoiceSerial"
	FieldInvoiceNumber = "InvoiceNumber"
	FieldTaxCode       = "TaxCode"
)

// TaxRule builds the tax-identifier discovery rule from an alias list.
func TaxRule(aliases []string) columns.Rule {
	return columns.Rule{Kind: columns.MatchContains, Patterns: aliases, Canonical: FieldTaxCode}
}

// DroppedRow records a row excluded for a missing mandatory field.
type DroppedRow struct {
	SourceRow int
	Field     string
}

// Result is the outcome of cleaning one invoice table.
type Result struct {
	Records []types.SourceRecord
	Dropped []DroppedRow

	// TaxColumn is the original label renamed to TaxCode, if any.
	TaxColumn string

	// MissingOptional lists optional canonical fields with no column.
	MissingOptional []string
}

// Cleaner applies the rename and alias rule tables.
type Cleaner struct {
	renames columns.RuleSet
	taxRule columns.Rule
}

// New builds a cleaner from the FIV rules.
func New(rules config.FIVRules) *Cleaner {
	return &Cleaner{
		renames: columns.RenameMap(rules.Renames),
		taxRule: TaxRule(rules.TaxAliases),
	}
}

// Clean renames the table's columns in place and converts its rows.
//
// RETURNS:
//   - The records in input order, with dropped rows listed separately.
//   - types.ErrMissingColumn if BuyerName or RevenueExVAT has no column.
//   - types.ErrMalformedAmount if an amount cell holds non-numeric text.
func (c *Cleaner) Clean(table *types.Table) (*Result, error) {
	result := &Result{}

	// Rename known labels.
	renamed := make(map[string]bool)
	for i, name := range table.Columns {
		if canonical, ok := c.renames.Lookup(name); ok {
			table.Rename(i, canonical)
			renamed[canonical] = true
		}
	}

	// Discover the tax column among the columns that were not renamed.
	taxIdx, found := columns.FirstMatch(table.Columns, c.taxRule, func(name string) bool {
		return renamed[name]
	})
	if found {
		result.TaxColumn = table.Columns[taxIdx]
		table.Rename(taxIdx, FieldTaxCode)
	}

	idx := func(name string) int { return table.Index(name) }
	buyerIdx, revenueIdx := idx(FieldBuyerName), idx(FieldRevenueExVAT)
	if buyerIdx < 0 {
		return nil, types.MissingColumnError(FieldBuyerName)
	}
	if revenueIdx < 0 {
		return nil, types.MissingColumnError(FieldRevenueExVAT)
	}
	dateIdx, vatIdx := idx(FieldIssueDate), idx(FieldVATAmount)
	serialIdx, numberIdx := idx(FieldInvoiceSerial), idx(FieldInvoiceNumber)
	for _, f := range []struct {
		name string
		idx  int
	}{
		{FieldIssueDate, dateIdx},
		{FieldVATAmount, vatIdx},
		{FieldInvoiceSerial, serialIdx},
		{FieldInvoiceNumber, numberIdx},
	} {
		if f.idx < 0 {
			result.MissingOptional = append(result.MissingOptional, f.name)
		}
	}

	for i := range table.Rows {
		sourceRow := table.SourceRow(i)

		buyer := table.Value(i, buyerIdx)
		if buyer.IsBlank() {
			result.Dropped = append(result.Dropped, DroppedRow{SourceRow: sourceRow, Field: FieldBuyerName})
			continue
		}

		revenue, ok, err := money.Parse(table.Value(i, revenueIdx))
		if err != nil {
			return nil, amountError(sourceRow, FieldRevenueExVAT, table.Value(i, revenueIdx), err)
		}
		if !ok {
			result.Dropped = append(result.Dropped, DroppedRow{SourceRow: sourceRow, Field: FieldRevenueExVAT})
			continue
		}

		record := types.SourceRecord{
			BuyerName:     strings.TrimSpace(buyer.String()),
			RevenueExVAT:  revenue,
			IssueDate:     table.Value(i, dateIdx),
			InvoiceSerial: optionalText(table.Value(i, serialIdx)),
			InvoiceNumber: optionalText(table.Value(i, numberIdx)),
			SourceRow:     sourceRow,
		}

		vat, ok, err := money.Parse(table.Value(i, vatIdx))
		if err != nil {
			return nil, amountError(sourceRow, FieldVATAmount, table.Value(i, vatIdx), err)
		}
		if ok {
			record.VATAmount = types.Some(vat)
		}

		if found {
			record.TaxCode = optionalText(table.Value(i, taxIdx))
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

func optionalText(c types.Cell) types.Optional[string] {
	if c.IsBlank() {
		return types.None[string]()
	}
	return types.Some(strings.TrimSpace(c.String()))
}

func amountError(row int, column string, c types.Cell, cause error) error {
	return fmt.Errorf("%w (%v)", &types.AmountError{Row: row, Column: column, Value: c.String()}, cause)
}
