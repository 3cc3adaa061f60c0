// =============================================================================
// FIV Automation - Record Projector
// =============================================================================
//
// The projector maps each (SourceRecord, Resolution) pair to one row of the
// fixed FIV import layout consumed by the ERP. The consumer reads columns by
// position, so Columns is the contract: order and header text (including the
// historical "Invocie" spelling) must not change.
//
// DERIVED FIELDS:
//   - IdRef        1-based position in the cleaned sequence, written as text
//   - TotalAmount  LineAmount + TaxAmount, exact decimal addition
//   - TaxAmount    VAT amount, or 0 when the invoice row has none
//   - three date columns, all the issue date, written as dd/mm/yyyy
//
// Everything else is a literal from config.FIVConstants.
//
// =============================================================================

package projector

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/resolver"
	"github.com/ginjaninja78/fiv-automation/internal/types"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxwriter"
)

// Columns is the FIV output layout in positional order.
var Columns = []xlsxwriter.Column{
	{Name: "IdRef", Type: xlsxwriter.ColumnText},
	{Name: "InvoiceDate", Type: xlsxwriter.ColumnDate},
	{Name: "DocumentDate", Type: xlsxwriter.ColumnDate},
	{Name: "CurrencyCode", Type: xlsxwriter.ColumnText},
	{Name: "CustAccount", Type: xlsxwriter.ColumnText},
	{Name: "InvoiceAccount", Type: xlsxwriter.ColumnText},
	{Name: "SalesName", Type: xlsxwriter.ColumnText},
	{Name: "APMA_DimA", Type: xlsxwriter.ColumnText},
	{Name: "APMC_DimC", Type: xlsxwriter.ColumnText},
	{Name: "APMD_DimD", Type: xlsxwriter.ColumnText},
	{Name: "APMF_DimF", Type: xlsxwriter.ColumnText},
	{Name: "TaxGroupHeader", Type: xlsxwriter.ColumnText},
	{Name: "PostingProfile", Type: xlsxwriter.ColumnText},
	{Name: "LineNum", Type: xlsxwriter.ColumnNumber},
	{Name: "Description", Type: xlsxwriter.ColumnText},
	{Name: "SalesPrice", Type: xlsxwriter.ColumnNumber},
	{Name: "SalesQty", Type: xlsxwriter.ColumnNumber},
	{Name: "LineAmount", Type: xlsxwriter.ColumnNumber},
	{Name: "TaxAmount", Type: xlsxwriter.ColumnNumber},
	{Name: "TotalAmount", Type: xlsxwriter.ColumnNumber},
	{Name: "TaxGroupLine", Type: xlsxwriter.ColumnText},
	{Name: "TaxItemGroup", Type: xlsxwriter.ColumnText},
	{Name: "Line_MainAccountId", Type: xlsxwriter.ColumnText},
	{Name: "Line_APMA_DimA", Type: xlsxwriter.ColumnText},
	{Name: "Line_APMC_DimC", Type: xlsxwriter.ColumnText},
	{Name: "Line_APMD_DimD", Type: xlsxwriter.ColumnText},
	{Name: "Line_APMF_DimF", Type: xlsxwriter.ColumnText},
	{Name: "BHS_VATInvocieDate_VATInvoice", Type: xlsxwriter.ColumnDate},
	{Name: "BHS_Form_VATInvoice", Type: xlsxwriter.ColumnText},
	{Name: "BHS_Serial_VATInvoice", Type: xlsxwriter.ColumnText},
	{Name: "BHS_Number_VATInvoice", Type: xlsxwriter.ColumnText},
	{Name: "BHS_Description_VATInvoice", Type: xlsxwriter.ColumnText},
}

// OutputRecord is one FIV row.
type OutputRecord struct {
	IdRef          string
	InvoiceDate    dates.Date
	DocumentDate   dates.Date
	CurrencyCode   string
	CustAccount    types.Optional[string]
	InvoiceAccount types.Optional[string]
	SalesName      string
	DimA           string
	DimC           string
	DimD           string
	DimF           string
	TaxGroupHeader string
	PostingProfile string
	LineNum        int
	Description    string
	SalesPrice     decimal.Decimal
	SalesQty       int
	LineAmount     decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	TaxGroupLine   string
	TaxItemGroup   string
	LineMainAcct   string
	LineDimA       string
	LineDimC       string
	LineDimD       string
	LineDimF       string
	VATInvoiceDate dates.Date
	VATForm        string
	VATSerial      string
	VATNumber      string
	VATDescription string
}

// Cells returns the record in Columns order.
func (o OutputRecord) Cells() []types.Cell {
	return []types.Cell{
		types.Text(o.IdRef),
		dateCell(o.InvoiceDate),
		dateCell(o.DocumentDate),
		types.Text(o.CurrencyCode),
		types.Text(o.CustAccount.OrElse("")),
		types.Text(o.InvoiceAccount.OrElse("")),
		types.Text(o.SalesName),
		types.Text(o.DimA),
		types.Text(o.DimC),
		types.Text(o.DimD),
		types.Text(o.DimF),
		types.Text(o.TaxGroupHeader),
		types.Text(o.PostingProfile),
		types.Number(strconv.Itoa(o.LineNum)),
		types.Text(o.Description),
		types.Number(o.SalesPrice.String()),
		types.Number(strconv.Itoa(o.SalesQty)),
		types.Number(o.LineAmount.String()),
		types.Number(o.TaxAmount.String()),
		types.Number(o.TotalAmount.String()),
		types.Text(o.TaxGroupLine),
		types.Text(o.TaxItemGroup),
		types.Text(o.LineMainAcct),
		types.Text(o.LineDimA),
		types.Text(o.LineDimC),
		types.Text(o.LineDimD),
		types.Text(o.LineDimF),
		dateCell(o.VATInvoiceDate),
		types.Text(o.VATForm),
		types.Text(o.VATSerial),
		types.Text(o.VATNumber),
		types.Text(o.VATDescription),
	}
}

func dateCell(d dates.Date) types.Cell {
	if !d.Valid() {
		return types.Cell{}
	}
	return types.DateCell(d.Time())
}

// Projector applies the FIV constants.
type Projector struct {
	constants config.FIVConstants
}

// New returns a projector for the given constants.
func New(constants config.FIVConstants) *Projector {
	return &Projector{constants: constants}
}

// Project emits exactly one OutputRecord per input record, in order.
// records and resolutions must have the same length.
func (p *Projector) Project(records []types.SourceRecord, resolutions []resolver.Resolution) []OutputRecord {
	out := make([]OutputRecord, len(records))
	for i, rec := range records {
		var res resolver.Resolution
		if i < len(resolutions) {
			res = resolutions[i]
		}
		out[i] = p.project(i+1, rec, res)
	}
	return out
}

func (p *Projector) project(seq int, rec types.SourceRecord, res resolver.Resolution) OutputRecord {
	c := p.constants

	account := types.None[string]()
	if acct, ok := res.Account(); ok {
		account = types.Some(acct)
	}

	issued := dates.Normalize(rec.IssueDate)
	line := rec.RevenueExVAT
	tax := rec.VATAmount.OrElse(decimal.Zero)

	return OutputRecord{
		IdRef:          strconv.Itoa(seq),
		InvoiceDate:    issued,
		DocumentDate:   issued,
		CurrencyCode:   c.CurrencyCode,
		CustAccount:    account,
		InvoiceAccount: account,
		SalesName:      rec.BuyerName,
		DimA:           c.DimA,
		DimC:           c.DimC,
		DimD:           c.DimD,
		DimF:           c.DimF,
		TaxGroupHeader: c.TaxGroupHeader,
		PostingProfile: c.PostingProfile,
		LineNum:        c.LineNum,
		Description:    c.Description,
		SalesPrice:     line,
		SalesQty:       c.SalesQty,
		LineAmount:     line,
		TaxAmount:      tax,
		TotalAmount:    line.Add(tax),
		TaxGroupLine:   c.TaxGroupLine,
		TaxItemGroup:   c.TaxItemGroup,
		LineMainAcct:   c.LineMainAccountID,
		LineDimA:       c.LineDimA,
		LineDimC:       c.LineDimC,
		LineDimD:       c.LineDimD,
		LineDimF:       c.LineDimF,
		VATInvoiceDate: issued,
		VATForm:        c.VATInvoiceForm,
		VATSerial:      rec.InvoiceSerial.OrElse(""),
		VATNumber:      rec.InvoiceNumber.OrElse(""),
		VATDescription: c.Description,
	}
}

// Sheet wraps projected records as a writable sheet.
func Sheet(name string, records []OutputRecord) xlsxwriter.Sheet {
	rows := make([][]types.Cell, len(records))
	for i, r := range records {
		rows[i] = r.Cells()
	}
	return xlsxwriter.Sheet{Name: name, Columns: Columns, Rows: rows}
}
